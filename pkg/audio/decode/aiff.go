// ABOUTME: AIFF decoding on top of go-audio/aiff
// ABOUTME: Same reopen-and-skip seek strategy as the WAV decoder
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

type aiffDecoder struct {
	f          *os.File
	dec        *aiff.Decoder
	sampleRate int
	channels   int
	bitDepth   int
	total      int64
	pos        int64
	intBuf     *goaudio.IntBuffer
}

func newAiffDecoder(f *os.File) (Decoder, error) {
	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an aiff file", audio.ErrUnsupportedFormat)
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: aiff: bad header", audio.ErrCorruptStream)
	}

	return &aiffDecoder{
		f:          f,
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   int(dec.BitDepth),
		total:      int64(dec.NumSampleFrames),
	}, nil
}

func (d *aiffDecoder) SampleRate() int    { return d.sampleRate }
func (d *aiffDecoder) Channels() int      { return d.channels }
func (d *aiffDecoder) TotalFrames() int64 { return d.total }

func (d *aiffDecoder) Seek(frame int64) error {
	if frame < d.pos {
		if _, err := d.f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("aiff seek: %w", err)
		}
		dec := aiff.NewDecoder(d.f)
		if !dec.IsValidFile() {
			return fmt.Errorf("%w: aiff: rewind failed", audio.ErrCorruptStream)
		}
		dec.ReadInfo()
		d.dec = dec
		d.pos = 0
	}
	return skipFrames(d, frame-d.pos)
}

func (d *aiffDecoder) ReadChunk(maxFrames int) (audio.Buffer, error) {
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
			return nil, fmt.Errorf("%w: aiff: %v", audio.ErrCorruptStream, err)
		}
		return nil, io.EOF
	}

	frames := n / d.channels
	buf := intsToBuffer(d.intBuf.Data[:frames*d.channels], d.channels, d.bitDepth)
	d.pos += int64(frames)
	return buf, nil
}

func (d *aiffDecoder) Close() error {
	return d.f.Close()
}
