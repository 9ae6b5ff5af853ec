// ABOUTME: Minimal Ogg page writer for Opus streams (RFC 3533 + RFC 7845)
// ABOUTME: Emits OpusHead/OpusTags header pages and one audio packet per page
package ogg

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
)

const (
	headerTypeContinuation = 0x00
	headerTypeBOS          = 0x02
	headerTypeEOS          = 0x04

	idSignature      = "OpusHead"
	commentSignature = "OpusTags"
	pageSignature    = "OggS"
	pageHeaderSize   = 27

	vendor = "sonido"
)

var errClosed = errors.New("ogg: writer closed")

// Writer muxes Opus packets into an Ogg stream. Page emission is delayed by
// one packet so the final page can carry the end-of-stream flag without
// seeking back into the sink. Granule positions count 48 kHz samples
// regardless of the declared input rate, per RFC 7845.
type Writer struct {
	stream        io.Writer
	sampleRate    uint32
	channels      uint16
	serial        uint32
	pageIndex     uint32
	granule       uint64
	checksumTable *[256]uint32

	pending        []byte
	pendingGranule uint64
	closed         bool
}

// NewWriter creates a writer and immediately emits the OpusHead and OpusTags
// header pages. sampleRate records the original rate of the input audio; it
// does not affect granule accounting. Pre-skip is zero: the packets come from
// our own encoder, not from a capture with priming samples.
func NewWriter(out io.Writer, sampleRate, channels int) (*Writer, error) {
	var serial uint32
	if err := binary.Read(rand.Reader, binary.LittleEndian, &serial); err != nil {
		return nil, err
	}

	w := &Writer{
		stream:        out,
		sampleRate:    uint32(sampleRate),
		channels:      uint16(channels),
		serial:        serial,
		checksumTable: generateChecksumTable(),
	}
	if err := w.writeHeaders(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeaders() error {
	// ID header, RFC 7845 §5.1.
	id := make([]byte, 19)
	copy(id[0:], idSignature)
	id[8] = 1                // version
	id[9] = uint8(w.channels)
	binary.LittleEndian.PutUint16(id[10:], 0)            // pre-skip
	binary.LittleEndian.PutUint32(id[12:], w.sampleRate) // original sample rate
	binary.LittleEndian.PutUint16(id[16:], 0)            // output gain
	id[18] = 0 // channel mapping 0: one stream, mono or stereo

	if err := w.writePage(id, headerTypeBOS, 0); err != nil {
		return err
	}

	// Comment header, RFC 7845 §5.2.
	comment := make([]byte, 12+len(vendor)+4)
	copy(comment[0:], commentSignature)
	binary.LittleEndian.PutUint32(comment[8:], uint32(len(vendor)))
	copy(comment[12:], vendor)
	binary.LittleEndian.PutUint32(comment[12+len(vendor):], 0) // no user comments

	return w.writePage(comment, headerTypeContinuation, 0)
}

// WritePacket queues one Opus packet. samples48k is the packet duration in
// 48 kHz samples. The previous packet, if any, is flushed as its own page.
func (w *Writer) WritePacket(packet []byte, samples48k uint64) error {
	if w.closed {
		return errClosed
	}
	if err := w.flushPending(headerTypeContinuation); err != nil {
		return err
	}
	w.granule += samples48k
	w.pending = append([]byte(nil), packet...)
	w.pendingGranule = w.granule
	return nil
}

// Close flushes the delayed packet on a page flagged end-of-stream. When no
// packet was ever written, an empty end-of-stream page is emitted so the
// stream is still well formed. Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.pending == nil {
		return w.writePage(nil, headerTypeEOS, w.granule)
	}
	return w.flushPending(headerTypeEOS)
}

func (w *Writer) flushPending(headerType uint8) error {
	if w.pending == nil {
		return nil
	}
	err := w.writePage(w.pending, headerType, w.pendingGranule)
	w.pending = nil
	return err
}

func (w *Writer) writePage(payload []byte, headerType uint8, granule uint64) error {
	page := w.createPage(payload, headerType, granule, w.pageIndex)
	w.pageIndex++
	_, err := w.stream.Write(page)
	return err
}

func (w *Writer) createPage(payload []byte, headerType uint8, granule uint64, pageIndex uint32) []byte {
	nSegments := (len(payload) / 255) + 1
	page := make([]byte, pageHeaderSize+nSegments+len(payload))

	copy(page[0:], pageSignature)
	page[4] = 0 // version
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:], granule)
	binary.LittleEndian.PutUint32(page[14:], w.serial)
	binary.LittleEndian.PutUint32(page[18:], pageIndex)
	page[26] = uint8(nSegments)

	// Lacing: runs of 255 terminated by the remainder.
	for i := 0; i < nSegments-1; i++ {
		page[pageHeaderSize+i] = 255
	}
	page[pageHeaderSize+nSegments-1] = uint8(len(payload) % 255)

	copy(page[pageHeaderSize+nSegments:], payload)

	// CRC over the whole page with the checksum field zeroed.
	var checksum uint32
	for i := range page {
		checksum = (checksum << 8) ^ w.checksumTable[byte(checksum>>24)^page[i]]
	}
	binary.LittleEndian.PutUint32(page[22:], checksum)

	return page
}

func generateChecksumTable() *[256]uint32 {
	var table [256]uint32
	const poly = 0x04c11db7

	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if (r & 0x80000000) != 0 {
				r = (r << 1) ^ poly
			} else {
				r <<= 1
			}
			table[i] = r & 0xffffffff
		}
	}
	return &table
}
