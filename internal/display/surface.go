// SPDX-License-Identifier: MIT
/*
Package display is the boundary between the pipeline and whatever presents
its frames. Fullscreen windowing lives outside the core; the sinks here
serve development (terminal preview), headless runs (PNG sequence) and
tests/benchmarks (null).
*/
package display

import (
	"fmt"
	"image"

	"spectra/internal/config"
)

// Surface accepts one composited frame per render tick. Present must not
// retain img; it is the compositor's reused buffer. Done closes when the
// surface wants the pipeline to stop (user quit, sink failure); Close
// releases the surface and is safe to call more than once.
type Surface interface {
	Present(img *image.RGBA) error
	Done() <-chan struct{}
	Close() error
}

// New builds the configured surface variant.
func New(cfg config.DisplayConfig) (Surface, error) {
	switch cfg.Mode {
	case config.DisplayTerminal:
		return NewTerminal(), nil
	case config.DisplayPNG:
		return NewPNGDir(cfg.PNGDir)
	case config.DisplayNull:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("display: unknown mode %q", cfg.Mode)
	}
}
