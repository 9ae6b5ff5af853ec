// ABOUTME: Core PCM types and sample conversion helpers
// ABOUTME: Defines the channel-major Buffer used across the library
package audio

// Buffer holds decoded PCM as one float32 slice per channel.
// All channels have the same length; samples are nominally in [-1, 1].
type Buffer [][]float32

// NewBuffer allocates a buffer with the given channel count and frame count.
func NewBuffer(channels, frames int) Buffer {
	b := make(Buffer, channels)
	for ch := range b {
		b[ch] = make([]float32, frames)
	}
	return b
}

// Channels returns the number of channels.
func (b Buffer) Channels() int {
	return len(b)
}

// Frames returns the number of samples per channel.
func (b Buffer) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Interleaved flattens the buffer into frame-major order
// (L0 R0 L1 R1 ... for stereo).
func (b Buffer) Interleaved() []float32 {
	channels := b.Channels()
	frames := b.Frames()
	out := make([]float32, channels*frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			out[i*channels+ch] = b[ch][i]
		}
	}
	return out
}

// Deinterleave splits frame-major samples into a channel-major buffer.
// Trailing samples that do not fill a whole frame are dropped.
func Deinterleave(data []float32, channels int) Buffer {
	if channels <= 0 {
		return nil
	}
	frames := len(data) / channels
	b := NewBuffer(channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			b[ch][i] = data[i*channels+ch]
		}
	}
	return b
}

// SampleToInt16 converts a float32 sample to int16 with clipping.
func SampleToInt16(sample float32) int16 {
	s := sample * 32767.0
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

// SampleFromInt16 converts an int16 sample to float32 in [-1, 1).
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}
