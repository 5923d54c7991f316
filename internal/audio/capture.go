// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"time"

	"spectra/internal/config"

	"github.com/gordonklaus/portaudio"
)

// CaptureSource produces frames from a live PortAudio input stream. The
// stream callback copies the first channel of each buffer into the ring;
// everything it touches is pre-allocated.
type CaptureSource struct {
	device   *portaudio.DeviceInfo
	stream   *portaudio.Stream
	latency  time.Duration
	ring     *frameRing
	channels int

	sampleRate  int
	frameLength int
}

var _ Source = (*CaptureSource)(nil)

// NewCaptureSource resolves the input device and prepares buffers. PortAudio
// must already be initialized. The stream stays closed until Start.
func NewCaptureSource(cfg config.AudioConfig) (*CaptureSource, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", device.Name)
	}

	// Open stereo when the device offers it so loopback devices work; only
	// the first channel feeds analysis.
	channels := 2
	if device.MaxInputChannels < 2 {
		channels = 1
	}

	return &CaptureSource{
		device:      device,
		latency:     device.DefaultLowInputLatency,
		ring:        newFrameRing(cfg.FrameLength),
		channels:    channels,
		sampleRate:  cfg.SampleRate,
		frameLength: cfg.FrameLength,
	}, nil
}

// Start opens and starts the input stream.
func (s *CaptureSource) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: s.channels,
			Device:   s.device,
			Latency:  s.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: s.frameLength,
		SampleRate:      float64(s.sampleRate),
	}

	stream, err := portaudio.OpenStream(params, s.onInput)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		s.stream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	return nil
}

// onInput is the stream callback.
// Performance Critical:
// - Runs on PortAudio's audio thread (LockOSThread)
// - Pre-allocated ring slots only, no allocations
// - Drops the frame instead of blocking when the consumer is behind
func (s *CaptureSource) onInput(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.ring.publish(in, s.channels)
}

// NextFrame returns the next captured frame, waiting up to timeout.
func (s *CaptureSource) NextFrame(timeout time.Duration) (Frame, error) {
	return s.ring.next(timeout)
}

// SampleRate reports the configured capture rate.
func (s *CaptureSource) SampleRate() int {
	return s.sampleRate
}

// Dropped reports frames discarded because the consumer fell behind.
func (s *CaptureSource) Dropped() uint64 {
	return s.ring.dropped.Load()
}

// Stop stops and closes the stream, then closes the ring so the consumer
// unblocks with ErrSourceClosed. Calling Stop again is a no-op.
func (s *CaptureSource) Stop() error {
	if s.stream == nil {
		return nil
	}

	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	s.stream = nil

	s.ring.close()
	return nil
}
