// ABOUTME: One-call convenience IO: read any file, write WAV or Ogg/Opus
// ABOUTME: Thin compositions of FileReader, the resampler and the codecs
package sonido

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/sonido-audio/sonido-go/internal/ogg"
	"github.com/sonido-audio/sonido-go/pkg/audio"
	"github.com/sonido-audio/sonido-go/pkg/audio/resample"
)

type readConfig struct {
	startSec    float64
	durationSec float64
	hasDuration bool
	sampleRate  int
}

// ReadOption adjusts what Read decodes.
type ReadOption func(*readConfig)

// WithStart skips the first sec seconds.
func WithStart(sec float64) ReadOption {
	return func(c *readConfig) { c.startSec = sec }
}

// WithDuration limits the read to sec seconds.
func WithDuration(sec float64) ReadOption {
	return func(c *readConfig) { c.durationSec = sec; c.hasDuration = true }
}

// WithSampleRate resamples the result to rate.
func WithSampleRate(rate int) ReadOption {
	return func(c *readConfig) { c.sampleRate = rate }
}

// Read decodes a file in one call and returns the samples and their rate.
func Read(path string, opts ...ReadOption) (audio.Buffer, int, error) {
	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	var buf audio.Buffer
	switch {
	case cfg.hasDuration:
		buf, err = r.Decode(cfg.startSec, cfg.durationSec)
	case cfg.startSec > 0:
		if d := r.DurationSec(); d >= 0 {
			buf, err = r.Decode(cfg.startSec, d-cfg.startSec)
		} else {
			// Unknown length: seek then drain.
			start := int64(math.Round(cfg.startSec * float64(r.SampleRate())))
			if err = r.dec.Seek(start); err == nil {
				buf, err = r.readUntilEOF(nil)
			}
		}
	default:
		buf, err = r.DecodeAll()
	}
	if err != nil {
		return nil, 0, err
	}

	rate := r.SampleRate()
	if cfg.sampleRate > 0 && cfg.sampleRate != rate {
		buf, err = resample.Resample(buf, rate, cfg.sampleRate)
		if err != nil {
			return nil, 0, err
		}
		rate = cfg.sampleRate
	}
	return buf, rate, nil
}

// WriteWav writes buf as a 16-bit PCM WAV file.
func WriteWav(path string, buf audio.Buffer, sampleRate int) error {
	if buf.Channels() == 0 {
		return fmt.Errorf("%w: buffer has no channels", audio.ErrContract)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", audio.ErrContract, sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, buf.Channels(), 1)
	inter := buf.Interleaved()
	intBuf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: buf.Channels(), SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(inter)),
	}
	for i, s := range inter {
		intBuf.Data[i] = int(audio.SampleToInt16(s))
	}
	if err := enc.Write(intBuf); err != nil {
		f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

// opusFileFrame is the packet duration WriteOpus uses: 20 ms at 48 kHz.
const opusFileFrame = 960

// WriteOpus writes buf as an Ogg/Opus file. Input at other rates is
// resampled to 48 kHz first; mono and stereo are supported. The final
// partial frame is zero-padded.
func WriteOpus(path string, buf audio.Buffer, sampleRate int) error {
	channels := buf.Channels()
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: opus needs mono or stereo, got %d channels",
			audio.ErrContract, channels)
	}

	if sampleRate != 48000 {
		resampled, err := resample.Resample(buf, sampleRate, 48000)
		if err != nil {
			return err
		}
		buf = resampled
	}

	enc, err := opus.NewEncoder(48000, channels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(64000 * channels); err != nil {
		return fmt.Errorf("opus encoder bitrate: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	mux, err := ogg.NewWriter(f, 48000, channels)
	if err != nil {
		f.Close()
		return fmt.Errorf("ogg writer: %w", err)
	}

	inter := buf.Interleaved()
	frameLen := opusFileFrame * channels
	packet := make([]byte, 4000)
	for off := 0; off < len(inter); off += frameLen {
		end := off + frameLen
		if end > len(inter) {
			end = len(inter)
		}
		frame := inter[off:end]
		// The final partial frame is zero-padded for the codec, but its
		// granule counts only the real samples so readers end-trim the pad.
		realFrames := uint64(len(frame) / channels)
		if len(frame) < frameLen {
			padded := make([]float32, frameLen)
			copy(padded, frame)
			frame = padded
		}

		n, err := enc.EncodeFloat32(frame, packet)
		if err != nil {
			f.Close()
			return fmt.Errorf("opus encode: %w", err)
		}
		if err := mux.WritePacket(packet[:n], realFrames); err != nil {
			f.Close()
			return fmt.Errorf("write page: %w", err)
		}
	}

	if err := mux.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize stream: %w", err)
	}
	return f.Close()
}

// ReadOpus decodes a whole Ogg/Opus file. The returned rate is always
// 48000, the codec's native decode rate.
func ReadOpus(path string) (audio.Buffer, int, error) {
	r, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	buf, err := r.DecodeAll()
	if err != nil {
		return nil, 0, err
	}
	return buf, r.SampleRate(), nil
}
