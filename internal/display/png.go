// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// PNGDir writes each presented frame as a sequentially numbered PNG file,
// for headless runs and golden-frame inspection.
type PNGDir struct {
	dir  string
	next int
	done chan struct{}
}

var _ Surface = (*PNGDir)(nil)

// NewPNGDir creates the output directory if needed.
func NewPNGDir(dir string) (*PNGDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("display: creating png dir: %w", err)
	}
	return &PNGDir{dir: dir, done: make(chan struct{})}, nil
}

// Present encodes the frame to frame_NNNNNN.png.
func (p *PNGDir) Present(img *image.RGBA) error {
	path := filepath.Join(p.dir, fmt.Sprintf("frame_%06d.png", p.next))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("display: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("display: encoding %s: %w", path, err)
	}
	p.next++
	return nil
}

// Frames reports how many frames were written.
func (p *PNGDir) Frames() int {
	return p.next
}

// Done never closes; PNG output runs until the pipeline stops it.
func (p *PNGDir) Done() <-chan struct{} {
	return p.done
}

// Close is a no-op; every frame is flushed as it is written.
func (p *PNGDir) Close() error {
	return nil
}
