// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"spectra/internal/config"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// clockLayer draws the current wall time, formatted with a pre-translated Go
// layout, in the embedded Go Bold face. Multi-line layouts stack with a gap
// of a tenth of the line height.
type clockLayer struct {
	face   font.Face
	src    *image.Uniform
	layout string
	anchor config.Anchor
	margin int
}

// clockMargin is the inset from the anchored frame edges, in pixels.
const clockMargin = 24

func newClockLayer(cfg config.ClockConfig, frameH int) (*clockLayer, error) {
	layout := cfg.GoLayout
	if layout == "" {
		var err error
		layout, err = config.TranslateClockFormat(cfg.Format)
		if err != nil {
			return nil, fmt.Errorf("clock format: %w", err)
		}
	}

	ft, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing clock font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    float64(frameH) * cfg.SizeRatio,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("building clock face: %w", err)
	}

	col, err := colorful.Hex(cfg.Color)
	if err != nil {
		return nil, fmt.Errorf("clock color %q: %w", cfg.Color, err)
	}
	r, g, b := col.RGB255()
	alpha := uint8(cfg.Opacity*255 + 0.5)

	return &clockLayer{
		face:   face,
		src:    image.NewUniform(color.NRGBA{R: r, G: g, B: b, A: alpha}),
		layout: layout,
		anchor: cfg.Position,
		margin: clockMargin,
	}, nil
}

// drawTo renders the formatted time onto dst. The text block is measured
// first so anchoring works for any format; lines center within the block.
func (c *clockLayer) drawTo(dst *image.RGBA, now time.Time) {
	lines := strings.Split(now.Format(c.layout), "\n")

	metrics := c.face.Metrics()
	lineH := metrics.Height.Ceil()
	gap := lineH / 10

	widths := make([]int, len(lines))
	blockW := 0
	for i, line := range lines {
		widths[i] = font.MeasureString(c.face, line).Ceil()
		if widths[i] > blockW {
			blockW = widths[i]
		}
	}
	blockH := len(lines)*lineH + (len(lines)-1)*gap

	frameW := dst.Bounds().Dx()
	frameH := dst.Bounds().Dy()
	origin := anchorOrigin(c.anchor, frameW, frameH, blockW, blockH, c.margin)

	drawer := font.Drawer{Dst: dst, Src: c.src, Face: c.face}
	y := origin.Y + metrics.Ascent.Ceil()
	for i, line := range lines {
		x := origin.X + (blockW-widths[i])/2
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(line)
		y += lineH + gap
	}
}
