// ABOUTME: Ogg/Opus file decoding: jonas747/ogg demux feeding libopus
// ABOUTME: Duration comes from the final page granule; seeks decode-and-drop
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jonas747/ogg"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/sonido-audio/sonido-go/pkg/audio"
	oggmux "github.com/sonido-audio/sonido-go/internal/ogg"
)

const (
	// Opus always decodes natively at 48 kHz; granules count in the same unit.
	opusDecodeRate = 48000
	// Longest legal packet is 120 ms.
	maxOpusFrame = 5760
)

type opusFileDecoder struct {
	f        *os.File
	pd       *ogg.PacketDecoder
	dec      *opus.Decoder
	channels int
	preskip  int
	total    int64

	pos  int64 // next output sample index
	skip int64 // samples still to drop before delivering
	eof  bool

	pcm        []float32
	pending    audio.Buffer
	pendingOff int
}

func newOpusDecoder(f *os.File) (Decoder, error) {
	// First pass: header fields and the final granule for the duration.
	pd := ogg.NewPacketDecoder(ogg.NewDecoder(f))
	first, _, err := pd.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: opus: %v", audio.ErrCorruptStream, err)
	}
	head, err := oggmux.ParseOpusHead(first)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, err)
	}

	var lastGranule int64
	for {
		_, page, err := pd.Decode()
		if err != nil {
			break
		}
		if page.Granule > lastGranule {
			lastGranule = page.Granule
		}
	}
	total := lastGranule - int64(head.PreSkip)
	if total < 0 {
		total = 0
	}

	d := &opusFileDecoder{
		f:        f,
		channels: head.Channels,
		preskip:  head.PreSkip,
		total:    total,
		pcm:      make([]float32, maxOpusFrame*head.Channels),
	}
	if err := d.reset(); err != nil {
		return nil, err
	}
	return d, nil
}

// reset rewinds to the start of the audio packets with a fresh codec state.
func (d *opusFileDecoder) reset() error {
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("opus rewind: %w", err)
	}
	d.pd = ogg.NewPacketDecoder(ogg.NewDecoder(d.f))
	// Skip the OpusHead and OpusTags packets.
	for i := 0; i < 2; i++ {
		if _, _, err := d.pd.Decode(); err != nil {
			return fmt.Errorf("%w: opus: %v", audio.ErrCorruptStream, err)
		}
	}

	dec, err := opus.NewDecoder(opusDecodeRate, d.channels)
	if err != nil {
		return fmt.Errorf("opus decoder: %w", err)
	}
	d.dec = dec
	d.pos = 0
	d.skip = int64(d.preskip)
	d.eof = false
	d.pending = nil
	d.pendingOff = 0
	return nil
}

func (d *opusFileDecoder) SampleRate() int    { return opusDecodeRate }
func (d *opusFileDecoder) Channels() int      { return d.channels }
func (d *opusFileDecoder) TotalFrames() int64 { return d.total }

func (d *opusFileDecoder) Seek(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	// The packet stream is already past the undelivered tail of pending, so
	// the true cursor sits at pos+rem, not pos.
	rem := int64(0)
	if d.pending != nil {
		rem = int64(d.pending.Frames() - d.pendingOff)
	}
	switch {
	case frame < d.pos:
		if err := d.reset(); err != nil {
			return err
		}
		d.skip += frame
	case frame < d.pos+rem:
		// Target lands inside the tail; deliver from there.
		d.pendingOff += int(frame - d.pos)
	default:
		d.skip += frame - d.pos - rem
		d.pending = nil
		d.pendingOff = 0
	}
	d.pos = frame
	return nil
}

func (d *opusFileDecoder) ReadChunk(maxFrames int) (audio.Buffer, error) {
	if maxFrames <= 0 {
		return audio.NewBuffer(d.channels, 0), nil
	}
	// The final granule bounds the stream; samples past it are padding from
	// the last packet (RFC 7845 §4.2 end trimming).
	if remain := d.total - d.pos; remain <= 0 {
		return nil, io.EOF
	} else if int64(maxFrames) > remain {
		maxFrames = int(remain)
	}

	out := audio.NewBuffer(d.channels, maxFrames)
	filled := 0
	for filled < maxFrames {
		if d.pending == nil || d.pendingOff >= d.pending.Frames() {
			if err := d.decodeNext(); err != nil {
				break
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
	d.pos += int64(filled)
	return out, nil
}

// decodeNext fills pending from the next audio packet, honoring skip.
func (d *opusFileDecoder) decodeNext() error {
	if d.eof {
		return io.EOF
	}
	for {
		packet, _, err := d.pd.Decode()
		if err != nil {
			d.eof = true
			return io.EOF
		}
		if oggmux.IsOpusTags(packet) {
			continue
		}
		if oggmux.IsOpusHead(packet) {
			// A chained stream begins; stop at the end of the first one.
			d.eof = true
			return io.EOF
		}

		n, err := d.dec.DecodeFloat32(packet, d.pcm)
		if err != nil || n == 0 {
			// A single bad packet truncates nothing; move on.
			continue
		}
		if d.skip >= int64(n) {
			d.skip -= int64(n)
			continue
		}
		start := int(d.skip)
		d.skip = 0

		d.pending = audio.Deinterleave(d.pcm[start*d.channels:n*d.channels], d.channels)
		d.pendingOff = 0
		return nil
	}
}

func (d *opusFileDecoder) Close() error {
	return d.f.Close()
}
