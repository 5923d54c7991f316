// SPDX-License-Identifier: MIT
/*
Package audio acquires fixed-length sample frames for analysis, either from
a live capture device (PortAudio) or from a looped audio file.

Thread Safety:
- One producer (capture callback or file pacer), one consumer (the pipeline)
- Frames move through a small ring of pre-allocated slots, no allocation
  after Start
- Producers drop frames instead of blocking when the consumer falls behind
*/
package audio

import (
	"errors"
	"sync/atomic"
	"time"
)

// ringSlots is the number of pre-allocated frame buffers. The delivery
// channel holds one less so the producer can never write into the slot the
// consumer most recently received.
const ringSlots = 4

var (
	// ErrAudioUnavailable means no frame arrived within the read timeout.
	// The condition is recoverable; callers keep rendering and retry.
	ErrAudioUnavailable = errors.New("audio: no frame available within timeout")

	// ErrSourceClosed means the source has stopped and will produce no
	// further frames.
	ErrSourceClosed = errors.New("audio: source closed")
)

// Frame is one fixed-length block of mono samples. Samples points into a
// ring slot owned by the source: it stays valid until the consumer has
// received ringSlots-1 further frames, so it must be consumed (or copied)
// before the next reads, never retained.
type Frame struct {
	Samples []int32
	Seq     uint64
}

// Source produces sequenced sample frames.
type Source interface {
	// Start begins frame production.
	Start() error

	// NextFrame blocks until a frame is available or the timeout expires.
	// It returns ErrAudioUnavailable on timeout and ErrSourceClosed once
	// the source has stopped.
	NextFrame(timeout time.Duration) (Frame, error)

	// SampleRate reports the actual sample rate of produced frames. For
	// file sources this is the file's rate, which takes precedence over
	// any configured rate.
	SampleRate() int

	// Dropped reports how many frames were discarded because the consumer
	// fell behind. Sequence numbers still advance across drops.
	Dropped() uint64

	// Stop ends production and releases resources. Safe to call more
	// than once.
	Stop() error
}

// frameRing hands frames from the producer to the consumer through
// pre-allocated slots. The producer checks channel occupancy before
// touching a slot; only the producer sends, so a stale len() reading can
// only cause a spurious drop, never a write into a held slot.
type frameRing struct {
	slots   [][]int32
	ready   chan Frame
	write   int
	seq     uint64
	dropped atomic.Uint64
	timer   *time.Timer
}

func newFrameRing(frameLen int) *frameRing {
	r := &frameRing{
		slots: make([][]int32, ringSlots),
		ready: make(chan Frame, ringSlots-1),
	}
	for i := range r.slots {
		r.slots[i] = make([]int32, frameLen)
	}
	return r
}

// publish copies one frame worth of samples into the next free slot and
// queues it for the consumer. src is read with the given channel stride,
// starting at channel 0. Called only from the producer goroutine.
func (r *frameRing) publish(src []int32, stride int) {
	r.seq++

	if len(r.ready) == cap(r.ready) {
		// Consumer is behind and the next slot may still be in its
		// hands. Count the drop; the sequence gap tells the story.
		r.dropped.Add(1)
		return
	}

	dst := r.slots[r.write]
	if stride == 1 {
		n := copy(dst, src)
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
	} else {
		for i := range dst {
			if j := i * stride; j < len(src) {
				dst[i] = src[j]
			} else {
				dst[i] = 0
			}
		}
	}

	r.ready <- Frame{Samples: dst, Seq: r.seq}
	r.write = (r.write + 1) % ringSlots
}

// next implements the consumer side with a bounded wait. The timer is
// reused across calls to keep the steady state allocation-free.
func (r *frameRing) next(timeout time.Duration) (Frame, error) {
	select {
	case f, ok := <-r.ready:
		if !ok {
			return Frame{}, ErrSourceClosed
		}
		return f, nil
	default:
	}

	if r.timer == nil {
		r.timer = time.NewTimer(timeout)
	} else {
		r.timer.Reset(timeout)
	}

	select {
	case f, ok := <-r.ready:
		if !r.timer.Stop() {
			<-r.timer.C
		}
		if !ok {
			return Frame{}, ErrSourceClosed
		}
		return f, nil
	case <-r.timer.C:
		return Frame{}, ErrAudioUnavailable
	}
}

// close ends delivery. Queued frames remain readable; after they drain the
// consumer sees ErrSourceClosed. Called only from the producer side, after
// production has stopped.
func (r *frameRing) close() {
	close(r.ready)
}
