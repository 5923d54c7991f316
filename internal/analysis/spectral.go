// SPDX-License-Identifier: MIT
/*
Package analysis turns raw sample frames into smoothed per-band display
magnitudes: window → FFT → band aggregation → normalization (Analyzer),
then asymmetric attack/decay filtering (Smoother).

Thread Safety:
- Analyzer and Smoother are single-caller by design; the pipeline's audio
  cadence owns both. Neither allocates at steady state.
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"spectra/internal/audio"

	"gonum.org/v1/gonum/dsp/fourier"
)

// int32Scale converts full-scale int32 samples to the -1..1 float range.
const int32Scale = 1.0 / (1 << 31)

// SpectralFrame carries one frame's per-band magnitudes, tagged with the
// sequence number of the audio frame it derives from. Bands points into the
// Analyzer's workspace and is only valid until the next Analyze call.
type SpectralFrame struct {
	Bands []float64
	Seq   uint64
}

// Analyzer computes per-band spectral magnitudes from fixed-length sample
// frames. All buffers and the band partition are prepared at construction.
type Analyzer struct {
	fft        *fourier.FFT
	window     []float64    // precomputed window coefficients, length L
	samples    []float64    // windowed input, length L
	coeffs     []complex128 // FFT output, length L/2+1
	edges      []int        // band partition over bins 0..L/2
	bands      []float64    // output workspace, length N
	scale      float64      // 2/L x gain, applied to every magnitude
	noiseFloor float64
	sampleRate int
	seq        uint64
}

// NewAnalyzer prepares an analyzer for frameLength-sample input at the given
// rate, mapping L/2+1 FFT bins onto bandCount bands. Gain scales magnitudes
// after the 2/L normalization; with the default gain a full-scale sine lands
// near 1.0 in its band. Band values below noiseFloor clamp to zero and the
// remaining range is stretched back to 0..1.
func NewAnalyzer(frameLength, sampleRate, bandCount int, spacing Spacing, win WindowFunc, gain, noiseFloor float64) (*Analyzer, error) {
	if frameLength < 2 {
		return nil, fmt.Errorf("frame length must be >= 2, got %d", frameLength)
	}
	if bandCount < 1 || bandCount > frameLength/2 {
		return nil, fmt.Errorf("band count must be in 1..%d, got %d", frameLength/2, bandCount)
	}
	if gain <= 0 {
		return nil, fmt.Errorf("gain must be positive, got %g", gain)
	}
	if noiseFloor < 0 || noiseFloor >= 1 {
		return nil, fmt.Errorf("noise floor must be in [0, 1), got %g", noiseFloor)
	}

	window := make([]float64, frameLength)
	applyWindow(window, win)

	return &Analyzer{
		fft:        fourier.NewFFT(frameLength),
		window:     window,
		samples:    make([]float64, frameLength),
		coeffs:     make([]complex128, frameLength/2+1),
		edges:      bandEdges(frameLength/2, bandCount, spacing),
		bands:      make([]float64, bandCount),
		scale:      2.0 / float64(frameLength) * gain,
		noiseFloor: noiseFloor,
		sampleRate: sampleRate,
	}, nil
}

// Analyze computes the band magnitudes for one frame. The returned slice
// aliases the analyzer's workspace and is overwritten by the next call.
// Silence in yields all-zero bands out, never an error.
func (a *Analyzer) Analyze(frame audio.Frame) SpectralFrame {
	for i, s := range frame.Samples {
		a.samples[i] = float64(s) * int32Scale * a.window[i]
	}

	a.fft.Coefficients(a.coeffs, a.samples)

	// Each band takes the peak magnitude of its bin range. Peak rather
	// than mean keeps narrow tones visible in wide high-frequency bands.
	rescale := 1.0 / (1.0 - a.noiseFloor)
	for b := 0; b < len(a.bands); b++ {
		peak := 0.0
		for bin := a.edges[b]; bin < a.edges[b+1]; bin++ {
			if m := cmplx.Abs(a.coeffs[bin]); m > peak {
				peak = m
			}
		}
		v := (peak*a.scale - a.noiseFloor) * rescale
		if v < 0 {
			v = 0
		}
		a.bands[b] = v
	}

	a.seq = frame.Seq
	return SpectralFrame{Bands: a.bands, Seq: frame.Seq}
}

// BandCount returns the number of output bands.
func (a *Analyzer) BandCount() int {
	return len(a.bands)
}

// BandRange returns the frequency range [lo, hi) in Hz covered by band b.
func (a *Analyzer) BandRange(b int) (lo, hi float64) {
	binWidth := float64(a.sampleRate) / float64(len(a.samples))
	return float64(a.edges[b]) * binWidth, float64(a.edges[b+1]) * binWidth
}

// Smoother holds the live display magnitudes and moves them toward each new
// SpectralFrame with asymmetric rates: a short attack time constant on the
// way up, a longer decay constant on the way down. Rates derive from wall
// time between updates, so the animation looks the same at any call rate.
type Smoother struct {
	attack time.Duration
	decay  time.Duration
	bands  []float64
	last   time.Time
	primed bool
}

// NewSmoother creates a smoother for bandCount bands, all starting at zero.
func NewSmoother(bandCount int, attack, decay time.Duration) (*Smoother, error) {
	if bandCount < 1 {
		return nil, fmt.Errorf("band count must be >= 1, got %d", bandCount)
	}
	if attack <= 0 || decay <= 0 {
		return nil, fmt.Errorf("time constants must be positive, got attack=%s decay=%s", attack, decay)
	}
	return &Smoother{
		attack: attack,
		decay:  decay,
		bands:  make([]float64, bandCount),
	}, nil
}

// Update moves every band toward the frame's value and returns the live
// state. Targets are clamped to [0,1] first, so the output always stays in
// range. The first call snaps directly to the clamped targets; a non-positive
// elapsed time (clock adjustment) leaves the state unchanged.
func (s *Smoother) Update(frame SpectralFrame, now time.Time) []float64 {
	if !s.primed {
		for i := range s.bands {
			s.bands[i] = clamp01(frame.Bands[i])
		}
		s.primed = true
		s.last = now
		return s.bands
	}

	dt := now.Sub(s.last)
	if dt <= 0 {
		return s.bands
	}
	s.last = now

	// One exponential step per rate: alpha = 1 - e^(-dt/tau). Computing
	// the two alphas once per frame keeps the per-band loop branch-light.
	alphaUp := 1 - math.Exp(-float64(dt)/float64(s.attack))
	alphaDown := 1 - math.Exp(-float64(dt)/float64(s.decay))

	for i, v := range s.bands {
		target := clamp01(frame.Bands[i])
		alpha := alphaDown
		if target > v {
			alpha = alphaUp
		}
		v += (target - v) * alpha
		s.bands[i] = clamp01(v)
	}
	return s.bands
}

// Bands returns the live state slice. Single-writer: only the audio cadence
// may call Update, and readers elsewhere must work from a snapshot.
func (s *Smoother) Bands() []float64 {
	return s.bands
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
