// ABOUTME: FLAC decoding on top of mewkiz/flac
// ABOUTME: Frame-granular native seeks plus sample-granular skip on top
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

type flacDecoder struct {
	f          *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	total      int64

	// pending holds the tail of the last parsed frame that ReadChunk has not
	// delivered yet.
	pending    audio.Buffer
	pendingOff int
	// skip counts samples to drop after a native seek, which lands on a
	// frame boundary at or before the target.
	skip int64
}

func newFlacDecoder(f *os.File) (Decoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("%w: flac: %v", audio.ErrCorruptStream, err)
	}

	info := stream.Info
	if info == nil || info.NChannels == 0 || info.SampleRate == 0 {
		return nil, fmt.Errorf("%w: flac: bad stream info", audio.ErrCorruptStream)
	}

	total := int64(-1)
	if info.NSamples > 0 {
		total = int64(info.NSamples)
	}
	return &flacDecoder{
		f:          f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		total:      total,
	}, nil
}

func (d *flacDecoder) SampleRate() int    { return d.sampleRate }
func (d *flacDecoder) Channels() int      { return d.channels }
func (d *flacDecoder) TotalFrames() int64 { return d.total }

func (d *flacDecoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	actual, err := d.stream.Seek(uint64(frame))
	if err != nil {
		return fmt.Errorf("%w: flac seek: %v", audio.ErrCorruptStream, err)
	}
	d.pending = nil
	d.pendingOff = 0
	d.skip = frame - int64(actual)
	if d.skip < 0 {
		d.skip = 0
	}
	return nil
}

func (d *flacDecoder) ReadChunk(maxFrames int) (audio.Buffer, error) {
	if maxFrames <= 0 {
		return audio.NewBuffer(d.channels, 0), nil
	}

	out := audio.NewBuffer(d.channels, maxFrames)
	filled := 0
	for filled < maxFrames {
		if d.pending == nil || d.pendingOff >= d.pending.Frames() {
			if err := d.parseNext(); err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
		}
		avail := d.pending.Frames() - d.pendingOff
		n := maxFrames - filled
		if n > avail {
			n = avail
		}
		for ch := 0; ch < d.channels; ch++ {
			copy(out[ch][filled:filled+n], d.pending[ch][d.pendingOff:d.pendingOff+n])
		}
		d.pendingOff += n
		filled += n
	}

	if filled == 0 {
		return nil, io.EOF
	}
	for ch := range out {
		out[ch] = out[ch][:filled]
	}
	return out, nil
}

// parseNext decodes the next FLAC frame into pending, honoring skip.
func (d *flacDecoder) parseNext() error {
	scale := float32(int64(1) << (d.bitDepth - 1))
	for {
		frame, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return fmt.Errorf("%w: flac: %v", audio.ErrCorruptStream, err)
		}
		if len(frame.Subframes) < d.channels {
			return fmt.Errorf("%w: flac: short frame", audio.ErrCorruptStream)
		}

		frames := len(frame.Subframes[0].Samples)
		if d.skip >= int64(frames) {
			d.skip -= int64(frames)
			continue
		}
		start := int(d.skip)
		d.skip = 0

		buf := audio.NewBuffer(d.channels, frames-start)
		for ch := 0; ch < d.channels; ch++ {
			samples := frame.Subframes[ch].Samples
			for i := start; i < frames; i++ {
				buf[ch][i-start] = float32(samples[i]) / scale
			}
		}
		d.pending = buf
		d.pendingOff = 0
		return nil
	}
}

func (d *flacDecoder) Close() error {
	err := d.stream.Close()
	// The stream may already have closed the file; a second close is harmless.
	d.f.Close()
	return err
}
