// ABOUTME: Tests for the one-call read and write helpers
package sonido

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/sonido-audio/sonido-go/pkg/audio"
)

func TestWriteWavReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	src := sineBuffer(2, 44100, 44100)
	if err := WriteWav(path, src, 44100); err != nil {
		t.Fatalf("WriteWav: %v", err)
	}

	buf, rate, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}
	if buf.Channels() != 2 || buf.Frames() != 44100 {
		t.Fatalf("got %dx%d, want 2x44100", buf.Channels(), buf.Frames())
	}
	for i := 0; i < 1000; i++ {
		if diff := math.Abs(float64(buf[0][i] - src[0][i])); diff > 2.0/32768 {
			t.Fatalf("sample %d off by %v after 16-bit round trip", i, diff)
		}
	}
}

func TestReadWindowOptions(t *testing.T) {
	path := tempWav(t, 1, 16000, 32000)

	buf, _, err := Read(path, WithStart(0.5), WithDuration(0.5))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if buf.Frames() != 8000 {
		t.Errorf("windowed read = %d frames, want 8000", buf.Frames())
	}

	buf, _, err = Read(path, WithStart(1.5))
	if err != nil {
		t.Fatalf("Read from start offset: %v", err)
	}
	if buf.Frames() != 8000 {
		t.Errorf("tail read = %d frames, want 8000", buf.Frames())
	}
}

func TestReadResamples(t *testing.T) {
	path := tempWav(t, 1, 16000, 16000)

	buf, rate, err := Read(path, WithSampleRate(8000))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rate != 8000 {
		t.Errorf("rate = %d, want 8000", rate)
	}
	if buf.Frames() != 8000 {
		t.Errorf("resampled read = %d frames, want 8000", buf.Frames())
	}
}

func TestWriteWavRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWav(path, audio.Buffer{}, 44100); !errors.Is(err, audio.ErrContract) {
		t.Errorf("empty buffer: got %v, want contract violation", err)
	}
	if err := WriteWav(path, sineBuffer(1, 8000, 10), 0); !errors.Is(err, audio.ErrContract) {
		t.Errorf("zero rate: got %v, want contract violation", err)
	}
}

func TestWriteOpusRejectsChannelCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.opus")
	err := WriteOpus(path, sineBuffer(3, 48000, 4800), 48000)
	if !errors.Is(err, audio.ErrContract) {
		t.Errorf("3 channels: got %v, want contract violation", err)
	}
}

func TestWriteOpusReadOpusRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.opus")
	src := sineBuffer(1, 48000, 48000)
	if err := WriteOpus(path, src, 48000); err != nil {
		t.Fatalf("WriteOpus: %v", err)
	}

	buf, rate, err := ReadOpus(path)
	if err != nil {
		t.Fatalf("ReadOpus: %v", err)
	}
	if rate != 48000 {
		t.Errorf("rate = %d, want 48000", rate)
	}
	if buf.Channels() != 1 {
		t.Errorf("channels = %d, want 1", buf.Channels())
	}
	// 48000 input samples fill exactly 50 packets of 960.
	if diff := buf.Frames() - 48000; diff < -960 || diff > 960 {
		t.Errorf("decoded %d frames, want 48000 within one frame", buf.Frames())
	}

	var energy float64
	for _, s := range buf[0] {
		energy += float64(s) * float64(s)
	}
	if energy < 1 {
		t.Errorf("decoded audio is silent, energy %v", energy)
	}
}

func TestWriteOpusTailLengthExact(t *testing.T) {
	// 48100 samples do not fill the last 960-sample packet; the final
	// granule must count only the real samples so the pad is trimmed back.
	const frames = 48100
	path := filepath.Join(t.TempDir(), "tail.opus")
	if err := WriteOpus(path, sineBuffer(1, 48000, frames), 48000); err != nil {
		t.Fatalf("WriteOpus: %v", err)
	}

	buf, _, err := ReadOpus(path)
	if err != nil {
		t.Fatalf("ReadOpus: %v", err)
	}
	if buf.Frames() != frames {
		t.Errorf("decoded %d frames, want exactly %d", buf.Frames(), frames)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	want := float64(frames) / 48000
	if d := r.DurationSec(); math.Abs(d-want) > 1e-9 {
		t.Errorf("duration = %v, want %v", d, want)
	}
}

func TestWriteOpusResamplesInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone24k.opus")
	src := sineBuffer(1, 24000, 24000) // 1 second at 24 kHz
	if err := WriteOpus(path, src, 24000); err != nil {
		t.Fatalf("WriteOpus: %v", err)
	}

	buf, rate, err := ReadOpus(path)
	if err != nil {
		t.Fatalf("ReadOpus: %v", err)
	}
	if rate != 48000 {
		t.Errorf("rate = %d, want 48000", rate)
	}
	// One second of audio regardless of the input rate.
	if diff := buf.Frames() - 48000; diff < -960 || diff > 960 {
		t.Errorf("decoded %d frames, want ~48000", buf.Frames())
	}
}

func TestReadOpusViaGenericRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.opus")
	if err := WriteOpus(path, sineBuffer(1, 48000, 9600), 48000); err != nil {
		t.Fatalf("WriteOpus: %v", err)
	}

	// The sniffer must route .opus files through the opus decoder.
	buf, rate, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rate != 48000 {
		t.Errorf("rate = %d, want 48000", rate)
	}
	if buf.Frames() == 0 {
		t.Errorf("no samples decoded")
	}
}
