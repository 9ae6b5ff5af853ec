// ABOUTME: OpusHead identification header parsing (RFC 7845 §5.1)
package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Head is the decoded OpusHead identification header.
type Head struct {
	Channels   int
	PreSkip    int
	SampleRate int // original input rate; informational only
}

var errNotOpusHead = errors.New("ogg: not an OpusHead packet")

// IsOpusHead reports whether the packet starts with the OpusHead magic.
func IsOpusHead(packet []byte) bool {
	return len(packet) >= 8 && string(packet[0:8]) == idSignature
}

// IsOpusTags reports whether the packet starts with the OpusTags magic.
func IsOpusTags(packet []byte) bool {
	return len(packet) >= 8 && string(packet[0:8]) == commentSignature
}

// ParseOpusHead decodes an OpusHead packet. Only channel mapping family 0
// (mono or stereo, one stream) is supported.
func ParseOpusHead(packet []byte) (Head, error) {
	if !IsOpusHead(packet) {
		return Head{}, errNotOpusHead
	}
	if len(packet) < 19 {
		return Head{}, fmt.Errorf("ogg: short OpusHead: %d bytes", len(packet))
	}
	// Major version must be 0; minor revisions are compatible.
	if packet[8]>>4 != 0 {
		return Head{}, fmt.Errorf("ogg: unsupported OpusHead version %d", packet[8])
	}
	if packet[18] != 0 {
		return Head{}, fmt.Errorf("ogg: unsupported channel mapping family %d", packet[18])
	}

	h := Head{
		Channels:   int(packet[9]),
		PreSkip:    int(binary.LittleEndian.Uint16(packet[10:])),
		SampleRate: int(binary.LittleEndian.Uint32(packet[12:])),
	}
	if h.Channels != 1 && h.Channels != 2 {
		return Head{}, fmt.Errorf("ogg: mapping family 0 allows 1 or 2 channels, got %d", h.Channels)
	}
	return h, nil
}
