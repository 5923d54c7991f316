// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV creates a small PCM fixture. data is interleaved across channels
// at the given bit depth.
func writeWAV(t *testing.T, path string, sampleRate, bitDepth, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFileSourceWAVFirstChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	// Stereo, left channel carries 1..128, right channel is junk the
	// source must ignore.
	const frames = 128
	data := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		data[i*2] = i + 1
		data[i*2+1] = -999
	}
	writeWAV(t, path, 8000, 16, 2, data)

	src, err := NewFileSource(path, 64)
	if err != nil {
		t.Fatalf("NewFileSource() error: %v", err)
	}
	if src.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want the file's 8000", src.SampleRate())
	}

	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	f, err := src.NextFrame(500 * time.Millisecond)
	if err != nil {
		t.Fatalf("NextFrame() error: %v", err)
	}
	if f.Seq != 1 {
		t.Errorf("first frame seq = %d, want 1", f.Seq)
	}
	if len(f.Samples) != 64 {
		t.Fatalf("frame length = %d, want 64", len(f.Samples))
	}
	for i := 0; i < 4; i++ {
		want := int32(i+1) << 16
		if f.Samples[i] != want {
			t.Errorf("sample[%d] = %d, want %d (left channel scaled to 32-bit)", i, f.Samples[i], want)
		}
	}
}

func TestFileSourceLoopsSeamlessly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")

	// 96 mono samples with frame length 64: the second frame must wrap
	// back to the file start mid-frame.
	const total = 96
	data := make([]int, total)
	for i := range data {
		data[i] = i + 1
	}
	writeWAV(t, path, 8000, 16, 1, data)

	src, err := NewFileSource(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	f1, err := src.NextFrame(500 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f1.Samples[63], int32(64)<<16; got != want {
		t.Errorf("frame 1 last sample = %d, want %d", got, want)
	}

	f2, err := src.NextFrame(500 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f2.Samples[31], int32(96)<<16; got != want {
		t.Errorf("frame 2 sample[31] = %d, want file tail %d", got, want)
	}
	if got, want := f2.Samples[32], int32(1)<<16; got != want {
		t.Errorf("frame 2 sample[32] = %d, want wrapped file head %d", got, want)
	}
}

func TestFileSourcePacesAgainstWallClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pace.wav")
	data := make([]int, 256)
	writeWAV(t, path, 8000, 16, 1, data)

	src, err := NewFileSource(path, 64) // 8ms per frame
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := src.NextFrame(500 * time.Millisecond); err != nil {
			t.Fatalf("frame #%d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// First frame is immediate, the remaining four arrive on ticks.
	if elapsed < 20*time.Millisecond {
		t.Errorf("5 frames in %s, want wall-clock pacing near 32ms", elapsed)
	}
}

func TestFileSourceEightBitRecentered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u8.wav")

	// 8-bit WAV stores unsigned samples; 128 is silence.
	data := make([]int, 64)
	for i := range data {
		data[i] = 128
	}
	data[0] = 255
	data[1] = 0
	writeWAV(t, path, 8000, 8, 1, data)

	src, err := NewFileSource(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	f, err := src.NextFrame(500 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f.Samples[0], int32(127)<<24; got != want {
		t.Errorf("max sample = %d, want %d", got, want)
	}
	if got, want := f.Samples[1], int32(-128)<<24; got != want {
		t.Errorf("min sample = %d, want %d", got, want)
	}
	if f.Samples[2] != 0 {
		t.Errorf("silence sample = %d, want 0", f.Samples[2])
	}
}

func TestFileSourceShortFileZeroPadded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.wav")
	writeWAV(t, path, 8000, 16, 1, []int{100, 200, 300})

	src, err := NewFileSource(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	f, err := src.NextFrame(500 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f.Samples[0], int32(100)<<16; got != want {
		t.Errorf("sample[0] = %d, want %d", got, want)
	}
	for i := 3; i < len(f.Samples); i++ {
		if f.Samples[i] != 0 {
			t.Fatalf("sample[%d] = %d, want zero pad", i, f.Samples[i])
		}
	}
}

func TestFileSourceRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.ogg")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileSource(path, 64); err == nil {
		t.Fatal("NewFileSource() accepted an unsupported extension, want error")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope.wav"), 64); err == nil {
		t.Fatal("NewFileSource() with missing file, want error")
	}
}

func TestFileSourceStopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.wav")
	data := make([]int, 128)
	writeWAV(t, path, 8000, 16, 1, data)

	src, err := NewFileSource(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Start(); err != nil {
		t.Fatal(err)
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("first Stop() error: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}

	// Queued frames drain, then the closed source reports itself.
	var lastErr error
	for i := 0; i < ringSlots+1; i++ {
		if _, lastErr = src.NextFrame(20 * time.Millisecond); lastErr != nil {
			break
		}
	}
	if !errors.Is(lastErr, ErrSourceClosed) {
		t.Errorf("NextFrame() after Stop() = %v, want ErrSourceClosed", lastErr)
	}
}
