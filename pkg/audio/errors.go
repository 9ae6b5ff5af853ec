// ABOUTME: Sentinel errors shared by the decode, streaming and IO layers
// ABOUTME: Callers match these with errors.Is
package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that the file does not exist or cannot be opened.
	ErrNotFound = errors.New("audio: file not found")

	// ErrUnsupportedFormat reports a container or codec the library cannot
	// decode.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")

	// ErrCorruptStream reports malformed data where no valid frame could be
	// recovered.
	ErrCorruptStream = errors.New("audio: corrupt stream")

	// ErrContract reports a caller error: bad argument or misuse of an API.
	ErrContract = errors.New("audio: contract violation")

	// ErrBadFrameSize reports a PCM frame whose length is not a legal codec
	// frame size for the configured sample rate. Matches ErrContract.
	ErrBadFrameSize = fmt.Errorf("%w: illegal frame size", ErrContract)

	// ErrClosed reports an append to a pipeline that has been closed.
	// Matches ErrContract.
	ErrClosed = fmt.Errorf("%w: pipeline closed", ErrContract)
)
