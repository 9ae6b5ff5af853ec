// ABOUTME: Streaming PCM-to-Ogg/Opus encode pipeline
// ABOUTME: One worker goroutine, unbounded queues on both sides
package opusstream

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	opus "gopkg.in/hraban/opus.v2"

	"github.com/sonido-audio/sonido-go/internal/ogg"
	"github.com/sonido-audio/sonido-go/internal/queue"
	"github.com/sonido-audio/sonido-go/pkg/audio"
)

// Encoder turns fixed-size mono PCM frames into Ogg/Opus bytes. AppendPCM
// and ReadBytes never block; the codec runs on a single worker goroutine.
type Encoder struct {
	rate        int
	bitrate     int
	application opus.Application

	in  *queue.FIFO[[]float32]
	out *queue.FIFO[[]byte]

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// EncoderOption configures an Encoder at construction.
type EncoderOption func(*Encoder)

// WithBitrate sets the target bitrate in bits per second.
func WithBitrate(bps int) EncoderOption {
	return func(e *Encoder) { e.bitrate = bps }
}

// WithApplication selects the codec application (voip, audio, lowdelay).
func WithApplication(app opus.Application) EncoderOption {
	return func(e *Encoder) { e.application = app }
}

// NewEncoder starts an encode pipeline producing a mono stream at
// sampleRate, which must be one of 8, 12, 16, 24 or 48 kHz. The Ogg headers
// are available from ReadBytes immediately.
func NewEncoder(sampleRate int, opts ...EncoderOption) (*Encoder, error) {
	if !legalRates[sampleRate] {
		return nil, fmt.Errorf("%w: opus cannot encode at %d Hz", audio.ErrContract, sampleRate)
	}

	e := &Encoder{
		rate:        sampleRate,
		bitrate:     64000,
		application: opus.AppAudio,
		in:          queue.New[[]float32](),
		out:         queue.New[[]byte](),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	enc, err := opus.NewEncoder(sampleRate, 1, e.application)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(e.bitrate); err != nil {
		return nil, fmt.Errorf("opus encoder bitrate: %w", err)
	}

	mux, err := ogg.NewWriter(queueWriter{e.out}, sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("ogg writer: %w", err)
	}

	go e.run(enc, mux)
	return e, nil
}

// SampleRate returns the pipeline's PCM sample rate.
func (e *Encoder) SampleRate() int { return e.rate }

// AppendPCM queues one frame for encoding without blocking. The frame length
// must be a legal codec frame size at the pipeline rate. The slice is copied.
func (e *Encoder) AppendPCM(frame []float32) error {
	if e.closed.Load() {
		return audio.ErrClosed
	}
	if !isLegalFrameSize(e.rate, len(frame)) {
		return fmt.Errorf("%w: %d samples at %d Hz (legal: %v)",
			audio.ErrBadFrameSize, len(frame), e.rate, FrameSizes(e.rate))
	}
	if !e.in.Push(append([]float32(nil), frame...)) {
		return audio.ErrClosed
	}
	return nil
}

// ReadBytes returns encoded bytes accumulated so far, or nil when none are
// pending. Nil after Close has returned means the stream is complete.
func (e *Encoder) ReadBytes() []byte {
	var all []byte
	for {
		chunk, ok, _ := e.out.TryPop()
		if !ok {
			return all
		}
		all = append(all, chunk...)
	}
}

// Close stops input, waits for queued frames to be encoded and the final
// page flagged end-of-stream to be written, then returns. Output remains
// readable until drained. Close is idempotent and safe to defer.
func (e *Encoder) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.in.Close()
	})
	<-e.done
	return nil
}

func (e *Encoder) run(enc *opus.Encoder, mux *ogg.Writer) {
	defer close(e.done)
	defer e.out.Close()

	packet := make([]byte, maxPacketSize)
	for {
		frame, ok := e.in.Pop()
		if !ok {
			break
		}
		n, err := enc.EncodeFloat32(frame, packet)
		if err != nil {
			log.Printf("opusstream: dropping frame, encode failed: %v", err)
			continue
		}
		granule := uint64(len(frame)) * 48000 / uint64(e.rate)
		if err := mux.WritePacket(packet[:n], granule); err != nil {
			log.Printf("opusstream: mux failed: %v", err)
			break
		}
	}
	if err := mux.Close(); err != nil {
		log.Printf("opusstream: finalizing stream failed: %v", err)
	}
}
