// SPDX-License-Identifier: MIT
package display

import (
	"image"
	"sync/atomic"
)

// Null discards frames and counts them. Used by benchmarks and pipeline
// tests that only care about cadence behavior.
type Null struct {
	frames atomic.Uint64
	done   chan struct{}
}

var _ Surface = (*Null)(nil)

// NewNull returns a surface that swallows every frame.
func NewNull() *Null {
	return &Null{done: make(chan struct{})}
}

// Present counts the frame and drops it.
func (n *Null) Present(_ *image.RGBA) error {
	n.frames.Add(1)
	return nil
}

// Frames reports how many frames were presented.
func (n *Null) Frames() uint64 {
	return n.frames.Load()
}

// Done never closes; the null surface has no way to quit.
func (n *Null) Done() <-chan struct{} {
	return n.done
}

// Close is a no-op.
func (n *Null) Close() error {
	return nil
}
