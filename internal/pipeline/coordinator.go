// SPDX-License-Identifier: MIT
/*
Package pipeline owns the timing loop: an audio cadence that pulls frames
through analysis and smoothing, and a render cadence that composites the
latest smoothed bands at the display rate. The two cadences share exactly
one piece of state, the band snapshot. Readers copy it out under a short
read lock and release before any real work, so the audio cadence never
waits on a render in flight.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/display"
	applog "spectra/internal/log"
	"spectra/internal/render"

	"golang.org/x/sync/errgroup"
)

// Coordinator states.
const (
	stateStopped int32 = iota
	stateRunning
)

// maxConsecutiveTimeouts is how many AudioUnavailable reads in a row move
// the pipeline into degraded mode (frozen spectrum, live clock/overlay).
const maxConsecutiveTimeouts = 3

// overrunLogInterval throttles overrun warnings so a persistently slow
// stage cannot flood the log.
const overrunLogInterval = 5 * time.Second

// Stats is a point-in-time view of the pipeline counters.
type Stats struct {
	FramesAnalyzed  uint64
	FramesRendered  uint64
	FramesDropped   uint64 // source-side drops (consumer lagged)
	AudioTimeouts   uint64
	AnalysisOverrun uint64
	RenderOverrun   uint64
	Degraded        bool
}

// Coordinator drives the audio and render cadences between Start and Stop.
type Coordinator struct {
	source      audio.Source
	analyzer    *analysis.Analyzer
	smoother    *analysis.Smoother
	compositor  *render.Compositor
	surface     display.Surface
	readTimeout time.Duration
	audioBudget time.Duration
	renderTick  time.Duration

	state  atomic.Int32
	cancel atomic.Value // context.CancelFunc

	// The published snapshot. Both sides hold the lock only to copy, a
	// few hundred nanoseconds, so neither cadence can stall the other.
	snapMu    sync.RWMutex
	snapBands []float64
	snapSeq   uint64
	snapOK    bool

	// renderBands is the render cadence's private copy target. Zeroed
	// until the first snapshot lands, which is exactly what the first
	// frames should show.
	renderBands []float64

	framesAnalyzed  atomic.Uint64
	framesRendered  atomic.Uint64
	audioTimeouts   atomic.Uint64
	analysisOverrun atomic.Uint64
	renderOverrun   atomic.Uint64
	degraded        atomic.Bool

	lastAnalysisWarn time.Time
	lastRenderWarn   time.Time
}

// Options carries the pieces the coordinator wires together.
type Options struct {
	Source      audio.Source
	Analyzer    *analysis.Analyzer
	Smoother    *analysis.Smoother
	Compositor  *render.Compositor
	Surface     display.Surface
	ReadTimeout time.Duration
	AudioBudget time.Duration // one audio frame period
	RenderTick  time.Duration // one display refresh period
}

// New validates the options and builds a stopped coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Source == nil || opts.Analyzer == nil || opts.Smoother == nil ||
		opts.Compositor == nil || opts.Surface == nil {
		return nil, fmt.Errorf("pipeline: all stages must be provided")
	}
	if opts.ReadTimeout <= 0 || opts.AudioBudget <= 0 || opts.RenderTick <= 0 {
		return nil, fmt.Errorf("pipeline: timings must be positive")
	}

	n := opts.Analyzer.BandCount()
	c := &Coordinator{
		source:      opts.Source,
		analyzer:    opts.Analyzer,
		smoother:    opts.Smoother,
		compositor:  opts.Compositor,
		surface:     opts.Surface,
		readTimeout: opts.ReadTimeout,
		audioBudget: opts.AudioBudget,
		renderTick:  opts.RenderTick,
		snapBands:   make([]float64, n),
		renderBands: make([]float64, n),
	}
	return c, nil
}

// Run starts the source and both cadences and blocks until the surface
// quits, the context is canceled, Stop is called, or the source is lost.
// Only a terminal source failure returns an error.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateStopped, stateRunning) {
		return fmt.Errorf("pipeline: already running")
	}
	defer c.state.Store(stateStopped)

	ctx, cancel := context.WithCancel(ctx)
	c.cancel.Store(cancel)
	defer cancel()

	if err := c.source.Start(); err != nil {
		return fmt.Errorf("pipeline: starting audio source: %w", err)
	}
	defer func() {
		if err := c.source.Stop(); err != nil {
			applog.Warnf("pipeline: stopping audio source: %v", err)
		}
	}()
	defer func() {
		if err := c.surface.Close(); err != nil {
			applog.Warnf("pipeline: closing surface: %v", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.audioLoop(ctx) })
	g.Go(func() error { return c.renderLoop(ctx) })

	err := g.Wait()
	c.logStats()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop requests shutdown. Idempotent, non-blocking and safe to call from a
// signal handler while a render is in flight; canceling a context more than
// once is harmless.
func (c *Coordinator) Stop() {
	if cancel, ok := c.cancel.Load().(context.CancelFunc); ok {
		cancel()
	}
}

// audioLoop pulls frames, analyzes and smooths them, and publishes the
// result for the render side. It never touches the display surface.
func (c *Coordinator) audioLoop(ctx context.Context) error {
	consecutiveTimeouts := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, err := c.source.NextFrame(c.readTimeout)
		switch {
		case err == nil:
			// fall through to analysis
		case errors.Is(err, audio.ErrAudioUnavailable):
			c.audioTimeouts.Add(1)
			consecutiveTimeouts++
			if consecutiveTimeouts >= maxConsecutiveTimeouts && !c.degraded.Load() {
				c.degraded.Store(true)
				applog.Warnf("pipeline: no audio for %d reads, freezing spectrum (clock and overlay keep rendering)",
					consecutiveTimeouts)
			}
			continue
		case errors.Is(err, audio.ErrSourceClosed):
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("pipeline: audio source closed: %w", err)
		default:
			return fmt.Errorf("pipeline: reading audio frame: %w", err)
		}

		consecutiveTimeouts = 0
		if c.degraded.CompareAndSwap(true, false) {
			applog.Infof("pipeline: audio recovered, resuming spectrum updates")
		}

		start := time.Now()
		spectral := c.analyzer.Analyze(frame)
		elapsed := time.Since(start)

		// An overrun means analysis cannot keep up with the audio rate.
		// Drop the frame instead of queueing a backlog the renderer can
		// never catch up with.
		if elapsed > c.audioBudget {
			c.analysisOverrun.Add(1)
			if time.Since(c.lastAnalysisWarn) > overrunLogInterval {
				c.lastAnalysisWarn = time.Now()
				applog.Warnf("pipeline: analysis took %s, budget %s (frame %d dropped)",
					elapsed, c.audioBudget, frame.Seq)
			}
			continue
		}

		bands := c.smoother.Update(spectral, time.Now())
		c.publish(bands, spectral.Seq)
		c.framesAnalyzed.Add(1)
	}
}

// publish stores the smoothed bands for the render cadence and publishers.
// Single writer: only the audio loop calls this.
func (c *Coordinator) publish(bands []float64, seq uint64) {
	c.snapMu.Lock()
	copy(c.snapBands, bands)
	c.snapSeq = seq
	c.snapOK = true
	c.snapMu.Unlock()
}

// renderLoop composites and presents at the display cadence, copying the
// latest snapshot out (zero bands before the first one) so the audio side
// can keep publishing while a frame is being drawn.
func (c *Coordinator) renderLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.renderTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.surface.Done():
			applog.Infof("pipeline: surface closed, stopping")
			c.Stop()
			return context.Canceled
		case <-ticker.C:
		}

		c.SnapshotInto(c.renderBands)

		start := time.Now()
		frame := c.compositor.Render(c.renderBands, start)
		if err := c.surface.Present(frame); err != nil {
			applog.Errorf("pipeline: presenting frame: %v", err)
			continue
		}
		c.framesRendered.Add(1)

		if elapsed := time.Since(start); elapsed > c.renderTick {
			// The ticker drops missed ticks on its own; just count it.
			c.renderOverrun.Add(1)
			if time.Since(c.lastRenderWarn) > overrunLogInterval {
				c.lastRenderWarn = time.Now()
				applog.Warnf("pipeline: render took %s, tick is %s", elapsed, c.renderTick)
			}
		}
	}
}

// SnapshotInto copies the latest smoothed bands into dst and reports their
// sequence number, or ok=false before the first publish. It implements
// transport.SnapshotProvider; the render cadence uses it too, so every
// reader gets a consistent copy regardless of what the writer is doing.
func (c *Coordinator) SnapshotInto(dst []float64) (uint64, bool) {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	if !c.snapOK {
		return 0, false
	}
	copy(dst, c.snapBands)
	return c.snapSeq, true
}

// BandCount implements transport.SnapshotProvider.
func (c *Coordinator) BandCount() int {
	return len(c.snapBands)
}

// Stats returns the current counter values.
func (c *Coordinator) Stats() Stats {
	return Stats{
		FramesAnalyzed:  c.framesAnalyzed.Load(),
		FramesRendered:  c.framesRendered.Load(),
		FramesDropped:   c.source.Dropped(),
		AudioTimeouts:   c.audioTimeouts.Load(),
		AnalysisOverrun: c.analysisOverrun.Load(),
		RenderOverrun:   c.renderOverrun.Load(),
		Degraded:        c.degraded.Load(),
	}
}

func (c *Coordinator) logStats() {
	s := c.Stats()
	applog.Infof("pipeline: %d frames analyzed, %d rendered, %d dropped at source, %d audio timeouts, %d analysis overruns, %d render overruns",
		s.FramesAnalyzed, s.FramesRendered, s.FramesDropped,
		s.AudioTimeouts, s.AnalysisOverrun, s.RenderOverrun)
}
