// ABOUTME: Container decoder selection: extension hint plus content sniffing
// ABOUTME: Defines the seekable Decoder interface all formats implement
package decode

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

// Decoder reads PCM from one audio file. Implementations are not safe for
// concurrent use.
type Decoder interface {
	// SampleRate returns the decode sample rate in Hz.
	SampleRate() int
	// Channels returns the channel count of the decoded output.
	Channels() int
	// TotalFrames returns the stream length in samples per channel, or -1
	// when the container does not declare it.
	TotalFrames() int64
	// Seek positions the stream at the given sample (per channel) from the
	// start.
	Seek(frame int64) error
	// ReadChunk decodes up to maxFrames samples per channel. It returns
	// io.EOF once the stream is exhausted.
	ReadChunk(maxFrames int) (audio.Buffer, error)
	Close() error
}

type format int

const (
	formatUnknown format = iota
	formatWav
	formatAiff
	formatMP3
	formatFlac
	formatVorbis
	formatOpus
)

// Open opens path and selects a decoder. The file extension is a hint; the
// first bytes of the file decide when they identify a known container.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", audio.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", audio.ErrNotFound, path, err)
	}

	kind, err := detectFormat(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}

	var dec Decoder
	switch kind {
	case formatWav:
		dec, err = newWavDecoder(f)
	case formatAiff:
		dec, err = newAiffDecoder(f)
	case formatMP3:
		dec, err = newMP3Decoder(f)
	case formatFlac:
		dec, err = newFlacDecoder(f)
	case formatVorbis:
		dec, err = newVorbisDecoder(f)
	case formatOpus:
		dec, err = newOpusDecoder(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, path)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return dec, nil
}

// detectFormat sniffs the first bytes of f and rewinds it. The extension
// breaks ties when the magic is ambiguous or absent.
func detectFormat(f *os.File, path string) (format, error) {
	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]
	if _, err := f.Seek(0, 0); err != nil {
		return formatUnknown, fmt.Errorf("%w: %v", audio.ErrCorruptStream, err)
	}

	switch {
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return formatWav, nil
	case len(head) >= 4 && string(head[0:4]) == "FORM":
		return formatAiff, nil
	case len(head) >= 4 && string(head[0:4]) == "fLaC":
		return formatFlac, nil
	case len(head) >= 4 && string(head[0:4]) == "OggS":
		// The first packet names the codec.
		if bytes.Contains(head, []byte("OpusHead")) {
			return formatOpus, nil
		}
		if bytes.Contains(head, []byte("\x01vorbis")) {
			return formatVorbis, nil
		}
		return formatUnknown, nil
	case len(head) >= 3 && string(head[0:3]) == "ID3":
		return formatMP3, nil
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return formatMP3, nil
	}

	// No recognizable magic; trust the extension for raw MP3 streams that
	// start mid-frame and the like.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return formatMP3, nil
	case ".wav":
		return formatWav, nil
	case ".aiff", ".aif":
		return formatAiff, nil
	case ".flac":
		return formatFlac, nil
	case ".ogg", ".oga":
		return formatVorbis, nil
	case ".opus":
		return formatOpus, nil
	}
	return formatUnknown, nil
}
