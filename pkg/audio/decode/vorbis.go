// ABOUTME: Ogg Vorbis decoding on top of jfreymuth/oggvorbis
// ABOUTME: Native sample positioning via SetPosition
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

type vorbisDecoder struct {
	f        *os.File
	r        *oggvorbis.Reader
	channels int
	total    int64
}

func newVorbisDecoder(f *os.File) (Decoder, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: vorbis: %v", audio.ErrCorruptStream, err)
	}

	total := r.Length()
	if total == 0 {
		total = -1
	}
	return &vorbisDecoder{
		f:        f,
		r:        r,
		channels: r.Channels(),
		total:    total,
	}, nil
}

func (d *vorbisDecoder) SampleRate() int    { return d.r.SampleRate() }
func (d *vorbisDecoder) Channels() int      { return d.channels }
func (d *vorbisDecoder) TotalFrames() int64 { return d.total }

func (d *vorbisDecoder) Seek(frame int64) error {
	if err := d.r.SetPosition(frame); err != nil {
		return fmt.Errorf("%w: vorbis seek: %v", audio.ErrCorruptStream, err)
	}
	return nil
}

func (d *vorbisDecoder) ReadChunk(maxFrames int) (audio.Buffer, error) {
	if maxFrames <= 0 {
		return audio.NewBuffer(d.channels, 0), nil
	}
	raw := make([]float32, maxFrames*d.channels)
	filled := 0
	for filled < len(raw) {
		n, err := d.r.Read(raw[filled:])
		filled += n
		if err == io.EOF {
			break
		}
		if err != nil {
			if filled == 0 {
				return nil, fmt.Errorf("%w: vorbis: %v", audio.ErrCorruptStream, err)
			}
			break
		}
		if n == 0 {
			break
		}
	}
	if filled == 0 {
		return nil, io.EOF
	}
	// Read returns whole frames, so filled divides evenly.
	return audio.Deinterleave(raw[:filled], d.channels), nil
}

func (d *vorbisDecoder) Close() error {
	return d.f.Close()
}
