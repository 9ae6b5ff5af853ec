// ABOUTME: Shared contract pieces of the streaming pipelines
// ABOUTME: Legal sample rates and codec frame sizes, queue reader/writer shims
package opusstream

import (
	"io"

	"github.com/sonido-audio/sonido-go/internal/queue"
)

// The codec accepts exactly these sample rates; pipelines hand the declared
// rate straight to it, no hidden resampling.
var legalRates = map[int]bool{
	8000:  true,
	12000: true,
	16000: true,
	24000: true,
	48000: true,
}

// maxPacketSize bounds one encoded packet.
const maxPacketSize = 4000

// FrameSizes lists the legal PCM frame lengths at rate, the sample counts of
// the 2.5, 5, 10, 20, 40 and 60 ms codec frames.
func FrameSizes(rate int) []int {
	return []int{
		rate / 400,
		rate / 200,
		rate / 100,
		rate / 50,
		rate / 25,
		rate * 3 / 50,
	}
}

// maxFrameSamples is the longest packet a decoder can produce: 120 ms.
func maxFrameSamples(rate int) int {
	return rate * 3 / 25
}

func isLegalFrameSize(rate, n int) bool {
	for _, s := range FrameSizes(rate) {
		if n == s {
			return true
		}
	}
	return false
}

// queueReader adapts the byte-chunk input queue to io.Reader for the demuxer.
// It blocks in the worker goroutine until bytes arrive or the queue closes.
type queueReader struct {
	q    *queue.FIFO[[]byte]
	rest []byte
}

func (r *queueReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		chunk, ok := r.q.Pop()
		if !ok {
			return 0, io.EOF
		}
		r.rest = chunk
	}
	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

// queueWriter turns mux output into chunks on the byte output queue.
type queueWriter struct {
	q *queue.FIFO[[]byte]
}

func (w queueWriter) Write(p []byte) (int, error) {
	w.q.Push(append([]byte(nil), p...))
	return len(p), nil
}
