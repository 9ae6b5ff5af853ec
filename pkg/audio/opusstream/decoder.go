// ABOUTME: Streaming Ogg/Opus-to-PCM decode pipeline
// ABOUTME: Demuxes with jonas747/ogg on a worker fed by an unbounded queue
package opusstream

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	jogg "github.com/jonas747/ogg"
	opus "gopkg.in/hraban/opus.v2"

	oggmux "github.com/sonido-audio/sonido-go/internal/ogg"
	"github.com/sonido-audio/sonido-go/internal/queue"
	"github.com/sonido-audio/sonido-go/pkg/audio"
)

// Decoder turns incrementally appended Ogg/Opus bytes into mono PCM frames.
// AppendBytes and ReadPCM never block. Stereo streams are downmixed by
// averaging; output is always mono at the declared rate.
type Decoder struct {
	rate int

	in  *queue.FIFO[[]byte]
	out *queue.FIFO[[]float32]

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	// termErr is written by the worker before it closes out; the consumer
	// reads it only after observing the drained queue.
	termErr error
	errSeen bool
}

// NewDecoder starts a decode pipeline producing PCM at sampleRate, which
// must be one of 8, 12, 16, 24 or 48 kHz.
func NewDecoder(sampleRate int) (*Decoder, error) {
	if !legalRates[sampleRate] {
		return nil, fmt.Errorf("%w: opus cannot decode at %d Hz", audio.ErrContract, sampleRate)
	}

	d := &Decoder{
		rate: sampleRate,
		in:   queue.New[[]byte](),
		out:  queue.New[[]float32](),
		done: make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// SampleRate returns the pipeline's PCM sample rate.
func (d *Decoder) SampleRate() int { return d.rate }

// AppendBytes queues container bytes for decoding without blocking. Chunk
// boundaries are arbitrary; the slice is copied.
func (d *Decoder) AppendBytes(b []byte) error {
	if d.closed.Load() {
		return audio.ErrClosed
	}
	if !d.in.Push(append([]byte(nil), b...)) {
		return audio.ErrClosed
	}
	return nil
}

// ReadPCM returns the next decoded frame without blocking. A nil frame with
// nil error means nothing is ready yet. After Close has returned and the
// output is drained, ReadPCM returns io.EOF — or, exactly once, the error
// that terminated the stream.
func (d *Decoder) ReadPCM() ([]float32, error) {
	frame, ok, drained := d.out.TryPop()
	if ok {
		return frame, nil
	}
	if !drained {
		return nil, nil
	}
	if d.termErr != nil && !d.errSeen {
		d.errSeen = true
		return nil, d.termErr
	}
	return nil, io.EOF
}

// Close stops input and waits for the worker to decode what was appended.
// Decoded frames stay readable until drained. Close is idempotent.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		d.in.Close()
	})
	<-d.done
	return nil
}

func (d *Decoder) run() {
	defer close(d.done)
	defer d.out.Close()

	demux := jogg.NewPacketDecoder(jogg.NewDecoder(&queueReader{q: d.in}))

	first, _, err := demux.Decode()
	if err != nil {
		if err != io.EOF {
			d.termErr = fmt.Errorf("%w: %v", audio.ErrCorruptStream, err)
		}
		return
	}
	head, err := oggmux.ParseOpusHead(first)
	if err != nil {
		d.termErr = fmt.Errorf("%w: %v", audio.ErrCorruptStream, err)
		return
	}

	dec, err := opus.NewDecoder(d.rate, head.Channels)
	if err != nil {
		d.termErr = fmt.Errorf("opus decoder: %w", err)
		return
	}

	// Pre-skip counts 48 kHz samples; scale to the output rate.
	skip := int64(head.PreSkip) * int64(d.rate) / 48000
	pcm := make([]float32, maxFrameSamples(d.rate)*head.Channels)

	for {
		packet, _, err := demux.Decode()
		if err != nil {
			if err != io.EOF {
				log.Printf("opusstream: stream truncated, unreadable page: %v", err)
			}
			return
		}
		if oggmux.IsOpusTags(packet) || oggmux.IsOpusHead(packet) {
			continue
		}

		n, err := dec.DecodeFloat32(packet, pcm)
		if err != nil {
			log.Printf("opusstream: skipping malformed packet: %v", err)
			continue
		}
		if n == 0 {
			continue
		}

		frame := downmix(pcm[:n*head.Channels], head.Channels)
		if skip > 0 {
			if skip >= int64(len(frame)) {
				skip -= int64(len(frame))
				continue
			}
			frame = frame[skip:]
			skip = 0
		}
		d.out.Push(frame)
	}
}

// downmix folds interleaved PCM to a freshly allocated mono frame.
func downmix(pcm []float32, channels int) []float32 {
	if channels == 1 {
		return append([]float32(nil), pcm...)
	}
	frames := len(pcm) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		mono[i] = (pcm[i*2] + pcm[i*2+1]) / 2
	}
	return mono
}
