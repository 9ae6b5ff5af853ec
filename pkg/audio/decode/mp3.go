// ABOUTME: MP3 decoding on top of hajimehoshi/go-mp3
// ABOUTME: The library always emits 16-bit stereo; seeks are native byte seeks
package decode

import (
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

// go-mp3 output is always interleaved 16-bit stereo, 4 bytes per frame.
const mp3BytesPerFrame = 4

type mp3Decoder struct {
	f     *os.File
	dec   *mp3.Decoder
	total int64
}

func newMP3Decoder(f *os.File) (Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", audio.ErrCorruptStream, err)
	}

	total := int64(-1)
	if l := dec.Length(); l >= 0 {
		total = l / mp3BytesPerFrame
	}
	return &mp3Decoder{f: f, dec: dec, total: total}, nil
}

func (d *mp3Decoder) SampleRate() int    { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int      { return 2 }
func (d *mp3Decoder) TotalFrames() int64 { return d.total }

func (d *mp3Decoder) Seek(frame int64) error {
	if _, err := d.dec.Seek(frame*mp3BytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("%w: mp3 seek: %v", audio.ErrCorruptStream, err)
	}
	return nil
}

func (d *mp3Decoder) ReadChunk(maxFrames int) (audio.Buffer, error) {
	if maxFrames <= 0 {
		return audio.NewBuffer(2, 0), nil
	}
	raw := make([]byte, maxFrames*mp3BytesPerFrame)
	n, err := io.ReadFull(d.dec, raw)
	if n == 0 {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: mp3: %v", audio.ErrCorruptStream, err)
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: mp3: %v", audio.ErrCorruptStream, err)
	}

	frames := n / mp3BytesPerFrame
	buf := audio.NewBuffer(2, frames)
	for i := 0; i < frames; i++ {
		off := i * mp3BytesPerFrame
		l := int16(raw[off]) | int16(raw[off+1])<<8
		r := int16(raw[off+2]) | int16(raw[off+3])<<8
		buf[0][i] = audio.SampleFromInt16(l)
		buf[1][i] = audio.SampleFromInt16(r)
	}
	return buf, nil
}

func (d *mp3Decoder) Close() error {
	return d.f.Close()
}
