// ABOUTME: Time-addressed file reading with truncate and pad policies
// ABOUTME: Wraps the container decoders behind start/duration semantics
package sonido

import (
	"io"
	"math"

	"github.com/sonido-audio/sonido-go/pkg/audio"
	"github.com/sonido-audio/sonido-go/pkg/audio/decode"
)

// FileReader decodes time ranges of one audio file. Not safe for concurrent
// use; open one reader per goroutine.
type FileReader struct {
	dec  decode.Decoder
	path string
}

// Open opens an audio file for decoding. The container is identified by
// content with the extension as fallback.
func Open(path string) (*FileReader, error) {
	dec, err := decode.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileReader{dec: dec, path: path}, nil
}

// Path returns the path the reader was opened with.
func (r *FileReader) Path() string { return r.path }

// SampleRate returns the decoded sample rate in Hz.
func (r *FileReader) SampleRate() int { return r.dec.SampleRate() }

// Channels returns the decoded channel count.
func (r *FileReader) Channels() int { return r.dec.Channels() }

// DurationSec returns the stream duration in seconds, or -1 when the
// container does not declare its length.
func (r *FileReader) DurationSec() float64 {
	total := r.dec.TotalFrames()
	if total < 0 {
		return -1
	}
	return float64(total) / float64(r.dec.SampleRate())
}

// Decode reads durationSec seconds starting at startSec. The start is
// clamped into the file; reading past the end truncates, so the result may
// be shorter than requested. A start at or past the end yields zero samples
// and no error.
func (r *FileReader) Decode(startSec, durationSec float64) (audio.Buffer, error) {
	buf, _, err := r.decodeRange(startSec, durationSec)
	return buf, err
}

// DecodeWithPadding is Decode, but the result is zero-padded to exactly
// round(durationSec * rate) samples per channel. The second return is the
// unpadded sample count.
func (r *FileReader) DecodeWithPadding(startSec, durationSec float64) (audio.Buffer, int, error) {
	buf, want, err := r.decodeRange(startSec, durationSec)
	if err != nil {
		return nil, 0, err
	}
	got := buf.Frames()
	if got < want {
		for ch := range buf {
			padded := make([]float32, want)
			copy(padded, buf[ch])
			buf[ch] = padded
		}
	}
	return buf, got, nil
}

// DecodeAll reads the whole file from the beginning.
func (r *FileReader) DecodeAll() (audio.Buffer, error) {
	if err := r.dec.Seek(0); err != nil {
		return nil, err
	}
	return r.readUntilEOF(nil)
}

func (r *FileReader) Close() error {
	return r.dec.Close()
}

// decodeRange returns the decoded samples and the requested sample count.
func (r *FileReader) decodeRange(startSec, durationSec float64) (audio.Buffer, int, error) {
	rate := r.dec.SampleRate()
	channels := r.dec.Channels()

	if startSec < 0 || math.IsNaN(startSec) {
		startSec = 0
	}
	start := int64(math.Round(startSec * float64(rate)))
	if total := r.dec.TotalFrames(); total >= 0 && start > total {
		start = total
	}

	want := 0
	if durationSec > 0 {
		want = int(math.Round(durationSec * float64(rate)))
	}

	if err := r.dec.Seek(start); err != nil {
		return nil, 0, err
	}

	out := audio.NewBuffer(channels, 0)
	got := 0
	for got < want {
		step := want - got
		if step > 8192 {
			step = 8192
		}
		chunk, err := r.dec.ReadChunk(step)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Mid-stream corruption truncates at the last good sample, but
			// a file that never produced anything is an error.
			if got == 0 {
				return nil, 0, err
			}
			break
		}
		if chunk.Frames() == 0 {
			break
		}
		for ch := 0; ch < channels; ch++ {
			out[ch] = append(out[ch], chunk[ch]...)
		}
		got += chunk.Frames()
	}
	return out, want, nil
}

// readUntilEOF appends everything the decoder has left onto out.
func (r *FileReader) readUntilEOF(out audio.Buffer) (audio.Buffer, error) {
	channels := r.dec.Channels()
	if out == nil {
		out = audio.NewBuffer(channels, 0)
	}
	read := 0
	for {
		chunk, err := r.dec.ReadChunk(8192)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			if read == 0 {
				return nil, err
			}
			return out, nil
		}
		if chunk.Frames() == 0 {
			return out, nil
		}
		for ch := 0; ch < channels; ch++ {
			out[ch] = append(out[ch], chunk[ch]...)
		}
		read += chunk.Frames()
	}
}
