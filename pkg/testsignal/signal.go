// Package testsignal generates deterministic int32 audio buffers for
// analysis tests and benchmarks.
package testsignal

import "math"

// Sine returns n samples of a pure sine wave at the given frequency and
// amplitude (0..1 of full int32 scale).
func Sine(n int, sampleRate, frequency, amplitude float64) []int32 {
	buffer := make([]int32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * amplitude * math.MaxInt32)
	}
	return buffer
}

// Harmonics returns n samples of a 440Hz fundamental with two harmonics,
// a reasonable stand-in for musical content.
func Harmonics(n int, sampleRate float64) []int32 {
	buffer := make([]int32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// Silence returns n zero samples.
func Silence(n int) []int32 {
	return make([]int32, n)
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin..endBin], clamping the range to valid indices.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
