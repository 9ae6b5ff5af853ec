// ABOUTME: WAV decoding on top of go-audio/wav
// ABOUTME: Seeks by rewinding the RIFF stream and skipping samples
package decode

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

type wavDecoder struct {
	f          *os.File
	dec        *wav.Decoder
	sampleRate int
	channels   int
	bitDepth   int
	total      int64
	pos        int64
	intBuf     *goaudio.IntBuffer
}

func newWavDecoder(f *os.File) (Decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", audio.ErrUnsupportedFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: wav: %v", audio.ErrCorruptStream, err)
	}

	d := &wavDecoder{
		f:          f,
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		bitDepth:   int(dec.BitDepth),
	}
	if d.channels <= 0 || d.sampleRate <= 0 {
		return nil, fmt.Errorf("%w: wav: bad header", audio.ErrCorruptStream)
	}
	bytesPerFrame := int64(d.channels) * int64(d.bitDepth/8)
	if bytesPerFrame > 0 {
		d.total = dec.PCMLen() / bytesPerFrame
	}
	return d, nil
}

func (d *wavDecoder) SampleRate() int    { return d.sampleRate }
func (d *wavDecoder) Channels() int      { return d.channels }
func (d *wavDecoder) TotalFrames() int64 { return d.total }

func (d *wavDecoder) Seek(frame int64) error {
	if frame < d.pos {
		if _, err := d.f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("wav seek: %w", err)
		}
		dec := wav.NewDecoder(d.f)
		if !dec.IsValidFile() {
			return fmt.Errorf("%w: wav: rewind failed", audio.ErrCorruptStream)
		}
		if err := dec.FwdToPCM(); err != nil {
			return fmt.Errorf("%w: wav: %v", audio.ErrCorruptStream, err)
		}
		d.dec = dec
		d.pos = 0
	}
	return skipFrames(d, frame-d.pos)
}

func (d *wavDecoder) ReadChunk(maxFrames int) (audio.Buffer, error) {
	if maxFrames <= 0 {
		return audio.NewBuffer(d.channels, 0), nil
	}
	want := maxFrames * d.channels
	if d.intBuf == nil || cap(d.intBuf.Data) < want {
		d.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, want),
			Format: d.dec.Format(),
		}
	}
	d.intBuf.Data = d.intBuf.Data[:want]

	n, err := d.dec.PCMBuffer(d.intBuf)
	if n == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: wav: %v", audio.ErrCorruptStream, err)
		}
		return nil, io.EOF
	}

	frames := n / d.channels
	buf := intsToBuffer(d.intBuf.Data[:frames*d.channels], d.channels, d.bitDepth)
	d.pos += int64(frames)
	return buf, nil
}

func (d *wavDecoder) Close() error {
	return d.f.Close()
}

// intsToBuffer converts interleaved integer PCM to a normalized float buffer.
func intsToBuffer(data []int, channels, bitDepth int) audio.Buffer {
	var maxVal float32
	switch bitDepth {
	case 8:
		maxVal = 128.0
	case 16:
		maxVal = 32768.0
	case 24:
		maxVal = 8388608.0
	case 32:
		maxVal = 2147483648.0
	default:
		maxVal = 32768.0
	}

	frames := len(data) / channels
	buf := audio.NewBuffer(channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			buf[ch][i] = float32(data[i*channels+ch]) / maxVal
		}
	}
	return buf
}

// skipFrames discards n samples per channel by reading and dropping them.
func skipFrames(d Decoder, n int64) error {
	const chunk = 8192
	for n > 0 {
		step := chunk
		if n < chunk {
			step = int(n)
		}
		buf, err := d.ReadChunk(step)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		n -= int64(buf.Frames())
		if buf.Frames() == 0 {
			return nil
		}
	}
	return nil
}
