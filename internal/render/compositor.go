// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"spectra/internal/config"

	"github.com/lucasb-eyer/go-colorful"
)

// Compositor renders smoothed band magnitudes, the overlay layer and the
// clock into one reused RGBA frame. Fixed z-order: spectrum, overlay, clock.
// Not safe for concurrent use; the render cadence is the single caller.
type Compositor struct {
	width  int
	height int
	barGap int

	bg      *image.Uniform
	palette *Palette
	clock   *clockLayer
	overlay *Overlay // nil renders without the layer

	frame *image.RGBA
}

// NewCompositor builds the compositor from validated configuration. The
// overlay is attached separately via SetOverlay so a failed asset load can
// degrade to a frame without the layer.
func NewCompositor(cfg *config.Config) (*Compositor, error) {
	palette, err := NewPalette(cfg.Render.Gradient)
	if err != nil {
		return nil, fmt.Errorf("building palette: %w", err)
	}

	clock, err := newClockLayer(cfg.Clock, cfg.Render.Height)
	if err != nil {
		return nil, fmt.Errorf("building clock layer: %w", err)
	}

	bg, err := colorful.Hex(cfg.Render.Background)
	if err != nil {
		return nil, fmt.Errorf("background color %q: %w", cfg.Render.Background, err)
	}
	r, g, b := bg.RGB255()

	return &Compositor{
		width:   cfg.Render.Width,
		height:  cfg.Render.Height,
		barGap:  cfg.Render.BarGap,
		bg:      image.NewUniform(color.RGBA{R: r, G: g, B: b, A: 255}),
		palette: palette,
		clock:   clock,
		frame:   image.NewRGBA(image.Rect(0, 0, cfg.Render.Width, cfg.Render.Height)),
	}, nil
}

// SetOverlay attaches (or with nil detaches) the overlay layer.
func (c *Compositor) SetOverlay(o *Overlay) {
	c.overlay = o
}

// Render draws one frame for the given band values at the given wall time.
// The returned image aliases the compositor's buffer and is valid until the
// next call. Identical inputs produce byte-identical pixels.
func (c *Compositor) Render(bands []float64, now time.Time) *image.RGBA {
	draw.Draw(c.frame, c.frame.Bounds(), c.bg, image.Point{}, draw.Src)

	n := len(bands)
	for i, v := range bands {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}

		// Slot boundaries distribute the width evenly even when it does
		// not divide by the band count; the gap is carved from each slot.
		x0 := i * c.width / n
		x1 := (i+1)*c.width/n - c.barGap
		if x1 <= x0 {
			x1 = x0 + 1
		}

		barH := int(v*float64(c.height) + 0.5)
		if barH == 0 {
			continue
		}
		c.fillRect(x0, c.height-barH, x1, c.height, c.palette.At(v))
	}

	if c.overlay != nil {
		c.overlay.drawTo(c.frame)
	}
	c.clock.drawTo(c.frame, now)

	return c.frame
}

// Size returns the frame dimensions.
func (c *Compositor) Size() (w, h int) {
	return c.width, c.height
}

// fillRect fills [x0,x1) x [y0,y1) with an opaque color, writing the first
// row by hand and copying it down the rest.
func (c *Compositor) fillRect(x0, y0, x1, y1 int, col color.RGBA) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > c.width {
		x1 = c.width
	}
	if y1 > c.height {
		y1 = c.height
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}

	rowStart := c.frame.PixOffset(x0, y0)
	rowEnd := c.frame.PixOffset(x1, y0)
	first := c.frame.Pix[rowStart:rowEnd]
	for i := 0; i < len(first); i += 4 {
		first[i] = col.R
		first[i+1] = col.G
		first[i+2] = col.B
		first[i+3] = col.A
	}
	for y := y0 + 1; y < y1; y++ {
		start := c.frame.PixOffset(x0, y)
		copy(c.frame.Pix[start:start+len(first)], first)
	}
}
