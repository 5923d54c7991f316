// SPDX-License-Identifier: MIT
/*
Package render composes the final frame: spectrum bars colored by a gradient
palette, an optional overlay image, and a clock layer on top. Rendering is
deterministic: identical bands, wall time and assets produce byte-identical
pixels.
*/
package render

import (
	"fmt"
	"image/color"

	"spectra/internal/config"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette maps a normalized magnitude to a display color by interpolating
// between ordered gradient stops. Immutable after construction.
type Palette struct {
	positions []float64
	colors    []colorful.Color
}

// NewPalette parses and validates gradient stops. At least two stops are
// required and positions must be strictly ascending within [0,1].
func NewPalette(stops []config.GradientStop) (*Palette, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("gradient needs at least 2 stops, got %d", len(stops))
	}

	p := &Palette{
		positions: make([]float64, len(stops)),
		colors:    make([]colorful.Color, len(stops)),
	}
	for i, stop := range stops {
		if stop.Pos < 0 || stop.Pos > 1 {
			return nil, fmt.Errorf("gradient stop %d position %g outside [0,1]", i, stop.Pos)
		}
		if i > 0 && stop.Pos <= p.positions[i-1] {
			return nil, fmt.Errorf("gradient stop %d position %g not above previous %g", i, stop.Pos, p.positions[i-1])
		}
		col, err := colorful.Hex(stop.Color)
		if err != nil {
			return nil, fmt.Errorf("gradient stop %d color %q: %w", i, stop.Color, err)
		}
		p.positions[i] = stop.Pos
		p.colors[i] = col
	}
	return p, nil
}

// At samples the gradient at position t. Values outside the stop range clamp
// to the first or last color. Blending happens in linear RGB so mid-gradient
// colors do not darken the way naive sRGB interpolation does.
func (p *Palette) At(t float64) color.RGBA {
	if t <= p.positions[0] {
		return toRGBA(p.colors[0])
	}
	last := len(p.positions) - 1
	if t >= p.positions[last] {
		return toRGBA(p.colors[last])
	}

	i := 0
	for t > p.positions[i+1] {
		i++
	}
	u := (t - p.positions[i]) / (p.positions[i+1] - p.positions[i])
	return toRGBA(blendLinear(p.colors[i], p.colors[i+1], u))
}

// blendLinear interpolates between two colors in linear RGB. go-colorful
// only ships sRGB/HSV/Lab/Luv blends, so the linear components are lerped
// directly.
func blendLinear(c1, c2 colorful.Color, u float64) colorful.Color {
	r1, g1, b1 := c1.LinearRgb()
	r2, g2, b2 := c2.LinearRgb()
	return colorful.LinearRgb(
		r1+u*(r2-r1),
		g1+u*(g2-g1),
		b1+u*(b2-b1),
	)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
