package testsignal

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100.0
	testFrequency  = 440.0 // A4 note
)

func TestSine(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		frequency float64
		amplitude float64
	}{
		{"Standard A4", testSize, testFrequency, 0.9},
		{"Low frequency", testSize, 55, 0.5},
		{"Full scale", 256, 1000, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sine(tt.size, testSampleRate, tt.frequency, tt.amplitude)

			if len(result) != tt.size {
				t.Fatalf("Sine() buffer size = %d, want %d", len(result), tt.size)
			}

			// Peak should approach amplitude * MaxInt32.
			var peak int32
			for _, v := range result {
				if v > peak {
					peak = v
				}
			}
			wantPeak := tt.amplitude * math.MaxInt32
			if float64(peak) < wantPeak*0.95 {
				t.Errorf("Sine() peak = %d, want >= %.0f", peak, wantPeak*0.95)
			}
		})
	}
}

func TestSilence(t *testing.T) {
	result := Silence(testSize)

	if len(result) != testSize {
		t.Fatalf("Silence() buffer size = %d, want %d", len(result), testSize)
	}
	for i, v := range result {
		if v != 0 {
			t.Fatalf("Silence()[%d] = %d, want 0", i, v)
		}
	}
}

func TestHarmonicsHasContent(t *testing.T) {
	result := Harmonics(testSize, testSampleRate)

	hasNonZero := false
	for _, v := range result {
		if v != 0 {
			hasNonZero = true
			break
		}
	}
	if !hasNonZero {
		t.Error("Harmonics() produced an all-zero buffer")
	}
}

func TestFindPeakBin(t *testing.T) {
	magnitudes := make([]float64, testSize)
	// Hill with a known peak at testSize/4.
	for i := range magnitudes {
		magnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name     string
		startBin int
		endBin   int
		expected int
	}{
		{"Full range", 0, testSize - 1, testSize / 4},
		{"Clamped negative start", -10, testSize - 1, testSize / 4},
		{"Clamped overlong end", 0, testSize * 2, testSize / 4},
		{"Window excludes peak", testSize / 2, testSize - 1, testSize / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeakBin(magnitudes, tt.startBin, tt.endBin)
			if got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}
