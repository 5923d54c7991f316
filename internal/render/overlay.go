// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	// Overlay decode support.
	_ "image/jpeg"
	_ "image/png"

	"spectra/internal/config"

	xdraw "golang.org/x/image/draw"
)

// AssetError reports an overlay image that could not be loaded. The
// compositor keeps rendering without the layer; only the load fails.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("render: overlay asset %q: %v", e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// Overlay is an immutable image layer, pre-scaled at load time to its final
// on-frame size so compositing is a single masked draw per frame.
type Overlay struct {
	img    *image.RGBA
	origin image.Point // top-left placement, may lie outside the frame for fill
	mask   *image.Uniform
}

// LoadOverlay decodes the configured image and prepares it for a frame of
// the given size. Scaling happens once here (ApproxBiLinear), placement
// follows the configured anchor. A missing or undecodable file returns an
// *AssetError.
func LoadOverlay(cfg config.OverlayConfig, frameW, frameH int) (*Overlay, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, &AssetError{Path: cfg.Path, Err: err}
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, &AssetError{Path: cfg.Path, Err: err}
	}

	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if srcW == 0 || srcH == 0 {
		return nil, &AssetError{Path: cfg.Path, Err: fmt.Errorf("empty image")}
	}

	w, h := scaledSize(cfg.Scale, srcW, srcH, frameW, frameH)

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	alpha := uint8(cfg.Opacity*255 + 0.5)
	return &Overlay{
		img:    scaled,
		origin: anchorOrigin(cfg.Position, frameW, frameH, w, h, 0),
		mask:   image.NewUniform(color.Alpha{A: alpha}),
	}, nil
}

// scaledSize computes the on-frame dimensions for a scale mode: fit keeps
// the whole image visible, fill covers the frame (cropped by placement),
// stretch ignores aspect.
func scaledSize(mode config.ScaleMode, srcW, srcH, frameW, frameH int) (int, int) {
	if mode == config.ScaleStretch {
		return frameW, frameH
	}

	sx := float64(frameW) / float64(srcW)
	sy := float64(frameH) / float64(srcH)
	s := sx
	if mode == config.ScaleFit && sy < s {
		s = sy
	}
	if mode == config.ScaleFill && sy > s {
		s = sy
	}

	w := int(float64(srcW)*s + 0.5)
	h := int(float64(srcH)*s + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// drawTo alpha-composites the overlay over dst, clipped to the frame.
func (o *Overlay) drawTo(dst *image.RGBA) {
	r := image.Rect(o.origin.X, o.origin.Y, o.origin.X+o.img.Bounds().Dx(), o.origin.Y+o.img.Bounds().Dy())
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sp := r.Min.Sub(o.origin)
	draw.DrawMask(dst, r, o.img, sp, o.mask, image.Point{}, draw.Over)
}

// anchorOrigin places a w x h box within a frameW x frameH frame, inset by
// margin on the anchored edges.
func anchorOrigin(a config.Anchor, frameW, frameH, w, h, margin int) image.Point {
	switch a {
	case config.AnchorTopLeft:
		return image.Pt(margin, margin)
	case config.AnchorTopRight:
		return image.Pt(frameW-w-margin, margin)
	case config.AnchorBottomLeft:
		return image.Pt(margin, frameH-h-margin)
	case config.AnchorBottomRight:
		return image.Pt(frameW-w-margin, frameH-h-margin)
	default: // center
		return image.Pt((frameW-w)/2, (frameH-h)/2)
	}
}
