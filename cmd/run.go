// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	"spectra/internal/display"
	applog "spectra/internal/log"
	"spectra/internal/pipeline"
	"spectra/internal/render"
	"spectra/internal/transport/udp"
	"spectra/internal/transport/ws"
	"spectra/pkg/build"
)

// runPipeline is the root command. The flow has three phases:
//
// 1. Startup (cold path): logging, audio source, analyzer, smoother,
// compositor, overlay, display surface, coordinator, publishers.
//
// 2. Concurrent (hot path): the coordinator drives the audio and render
// cadences until a signal arrives or the surface quits.
//
// 3. Shutdown (cold path): publishers stop, the coordinator releases the
// source and surface, the stats summary is logged.
func runPipeline(cfg *config.Config) error {
	// ==================== STARTUP PHASE ====================

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	applog.Infof("%s", build.GetBuildFlags())

	source, err := openSource(cfg)
	if err != nil {
		return err
	}
	if cfg.Audio.Source != config.SourceFile {
		defer audio.Terminate()
	}

	window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return err
	}
	spacing, err := analysis.ParseSpacing(string(cfg.Analysis.BandSpacing))
	if err != nil {
		return err
	}
	analyzer, err := analysis.NewAnalyzer(
		cfg.Audio.FrameLength, cfg.Audio.SampleRate, cfg.Analysis.BandCount,
		spacing, window, cfg.Analysis.Gain, cfg.Analysis.NoiseFloor)
	if err != nil {
		return fmt.Errorf("building analyzer: %w", err)
	}
	smoother, err := analysis.NewSmoother(
		cfg.Analysis.BandCount, cfg.Smoothing.Attack.Std(), cfg.Smoothing.Decay.Std())
	if err != nil {
		return fmt.Errorf("building smoother: %w", err)
	}

	compositor, err := render.NewCompositor(cfg)
	if err != nil {
		return fmt.Errorf("building compositor: %w", err)
	}
	if cfg.Overlay.Path != "" {
		overlay, err := render.LoadOverlay(cfg.Overlay, cfg.Render.Width, cfg.Render.Height)
		if err != nil {
			// Degrade: spectrum and clock render without the layer.
			applog.Warnf("overlay disabled: %v", err)
		} else {
			compositor.SetOverlay(overlay)
		}
	}

	surface, err := display.New(cfg.Display)
	if err != nil {
		return err
	}

	coord, err := pipeline.New(pipeline.Options{
		Source:      source,
		Analyzer:    analyzer,
		Smoother:    smoother,
		Compositor:  compositor,
		Surface:     surface,
		ReadTimeout: cfg.Audio.ReadTimeout.Std(),
		AudioBudget: cfg.FramePeriod(),
		RenderTick:  cfg.RenderPeriod(),
	})
	if err != nil {
		return err
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval.Std(), sender, coord)
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Stop()
	}

	if cfg.Transport.WSEnabled {
		broadcaster, err := ws.NewBroadcaster(cfg.Transport.WSPort, cfg.Transport.WSSendInterval.Std(), coord)
		if err != nil {
			return err
		}
		broadcaster.Start()
		defer broadcaster.Close()
	}

	// ==================== CONCURRENT PHASE ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applog.Infof("pipeline: %d Hz / %d-sample frames -> %d bands -> %dx%d @ %d fps",
		cfg.Audio.SampleRate, cfg.Audio.FrameLength, cfg.Analysis.BandCount,
		cfg.Render.Width, cfg.Render.Height, cfg.Render.TargetFPS)

	// Run blocks until the signal context cancels or the surface quits.
	runErr := coord.Run(ctx)

	// ==================== SHUTDOWN PHASE ====================

	// The coordinator has already released the source and surface; the
	// publishers and PortAudio wind down through the defers above.
	return runErr
}

// openSource builds the configured audio source. A file source's own sample
// rate overrides the configured one so analysis stays in tune with playback.
func openSource(cfg *config.Config) (audio.Source, error) {
	switch cfg.Audio.Source {
	case config.SourceFile:
		source, err := audio.NewFileSource(cfg.Audio.File, cfg.Audio.FrameLength)
		if err != nil {
			return nil, err
		}
		if source.SampleRate() != cfg.Audio.SampleRate {
			applog.Infof("audio: file sample rate %d Hz overrides configured %d Hz",
				source.SampleRate(), cfg.Audio.SampleRate)
			cfg.Audio.SampleRate = source.SampleRate()
		}
		return source, nil
	default:
		if err := audio.Initialize(); err != nil {
			return nil, err
		}
		source, err := audio.NewCaptureSource(cfg.Audio)
		if err != nil {
			audio.Terminate()
			return nil, err
		}
		return source, nil
	}
}
