// ABOUTME: Tests for PCM buffer helpers and sample conversions
package audio

import "testing"

func TestInterleaveRoundTrip(t *testing.T) {
	buf := Buffer{
		{0.1, 0.2, 0.3},
		{-0.1, -0.2, -0.3},
	}

	flat := buf.Interleaved()
	if len(flat) != 6 {
		t.Fatalf("expected 6 interleaved samples, got %d", len(flat))
	}
	if flat[0] != 0.1 || flat[1] != -0.1 || flat[2] != 0.2 {
		t.Errorf("unexpected interleave order: %v", flat)
	}

	back := Deinterleave(flat, 2)
	if back.Channels() != 2 || back.Frames() != 3 {
		t.Fatalf("expected 2x3 buffer, got %dx%d", back.Channels(), back.Frames())
	}
	for ch := range buf {
		for i := range buf[ch] {
			if back[ch][i] != buf[ch][i] {
				t.Errorf("sample [%d][%d] = %v, want %v", ch, i, back[ch][i], buf[ch][i])
			}
		}
	}
}

func TestDeinterleaveDropsPartialFrame(t *testing.T) {
	b := Deinterleave([]float32{1, 2, 3, 4, 5}, 2)
	if b.Frames() != 2 {
		t.Errorf("expected 2 full frames, got %d", b.Frames())
	}
}

func TestEmptyBuffer(t *testing.T) {
	var b Buffer
	if b.Channels() != 0 || b.Frames() != 0 {
		t.Errorf("empty buffer should report 0x0, got %dx%d", b.Channels(), b.Frames())
	}

	b = NewBuffer(2, 0)
	if b.Frames() != 0 {
		t.Errorf("zero-frame buffer should report 0 frames, got %d", b.Frames())
	}
	if len(b.Interleaved()) != 0 {
		t.Errorf("zero-frame buffer should interleave to nothing")
	}
}

func TestSampleConversionClips(t *testing.T) {
	if got := SampleToInt16(2.0); got != 32767 {
		t.Errorf("over-range sample should clip to 32767, got %d", got)
	}
	if got := SampleToInt16(-2.0); got != -32768 {
		t.Errorf("under-range sample should clip to -32768, got %d", got)
	}
	if got := SampleFromInt16(-32768); got != -1.0 {
		t.Errorf("expected -1.0, got %v", got)
	}
}
