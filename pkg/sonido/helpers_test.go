// ABOUTME: Shared fixture helpers for the facade tests
package sonido

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

// sineBuffer builds channels of a 440 Hz tone at rate.
func sineBuffer(channels, rate, frames int) audio.Buffer {
	buf := audio.NewBuffer(channels, frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			buf[ch][i] = float32(0.4 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		}
	}
	return buf
}

// tempWav writes a sine fixture and returns its path.
func tempWav(t *testing.T, channels, rate, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	if err := WriteWav(path, sineBuffer(channels, rate, frames), rate); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}
