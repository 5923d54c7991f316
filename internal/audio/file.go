// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// FileSource produces frames from a decoded audio file, paced against the
// wall clock at the file's own sample rate and looping at the end. The whole
// file is decoded to mono up front; emission then only copies.
type FileSource struct {
	samples []int32 // decoded mono samples, at least one frame long
	scratch []int32 // wrap-aware staging buffer, one frame long
	pos     int

	sampleRate  int
	frameLength int
	period      time.Duration

	ring     *frameRing
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once
}

var _ Source = (*FileSource)(nil)

// NewFileSource decodes the file at path (WAV or MP3, by extension) and
// prepares a source producing frameLength-sample frames. The file's sample
// rate takes precedence over any configured rate.
func NewFileSource(path string, frameLength int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var (
		samples []int32
		rate    int
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		samples, rate, err = decodeWAV(f)
	case ".mp3":
		samples, rate, err = decodeMP3(f)
	default:
		return nil, fmt.Errorf("unsupported audio format %q (wav, mp3)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("audio file %s contains no samples", path)
	}

	// Pad very short files to one full frame so the loop-wrap copy below
	// never has to wrap twice.
	if len(samples) < frameLength {
		padded := make([]int32, frameLength)
		copy(padded, samples)
		samples = padded
	}

	return &FileSource{
		samples:     samples,
		scratch:     make([]int32, frameLength),
		sampleRate:  rate,
		frameLength: frameLength,
		period:      time.Duration(float64(frameLength) / float64(rate) * float64(time.Second)),
		ring:        newFrameRing(frameLength),
	}, nil
}

// Start launches the pacing goroutine. One frame is emitted immediately so
// the first read does not have to wait a full frame period.
func (s *FileSource) Start() error {
	if s.started {
		return nil
	}
	s.started = true

	s.ticker = time.NewTicker(s.period)
	s.done = make(chan struct{})

	ticker := s.ticker
	done := s.done

	s.emit()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ticker.C:
				s.emit()
			case <-done:
				return
			}
		}
	}()

	return nil
}

// emit stages the next frame, wrapping to the file start at the end, and
// publishes it. Runs on the pacing goroutine only.
func (s *FileSource) emit() {
	n := copy(s.scratch, s.samples[s.pos:])
	if n < len(s.scratch) {
		copy(s.scratch[n:], s.samples)
	}
	s.pos = (s.pos + len(s.scratch)) % len(s.samples)

	s.ring.publish(s.scratch, 1)
}

// NextFrame returns the next paced frame, waiting up to timeout.
func (s *FileSource) NextFrame(timeout time.Duration) (Frame, error) {
	return s.ring.next(timeout)
}

// SampleRate reports the decoded file's sample rate.
func (s *FileSource) SampleRate() int {
	return s.sampleRate
}

// Dropped reports frames discarded because the consumer fell behind.
func (s *FileSource) Dropped() uint64 {
	return s.ring.dropped.Load()
}

// Stop halts pacing and closes the ring. Safe to call more than once; a
// stopped source cannot be restarted.
func (s *FileSource) Stop() error {
	if !s.started {
		return nil
	}
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.ticker.Stop()
		s.ring.close()
	})
	return nil
}

// decodeWAV loads the complete PCM payload and reduces it to first-channel
// mono at full 32-bit scale.
func decodeWAV(f *os.File) ([]int32, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("no channels in WAV data")
	}

	bitDepth := int(dec.BitDepth)
	var shift uint
	switch bitDepth {
	case 8, 16, 24, 32:
		shift = uint(32 - bitDepth)
	default:
		return nil, 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	mono := make([]int32, frames)
	for i := 0; i < frames; i++ {
		v := buf.Data[i*channels]
		if bitDepth == 8 {
			// 8-bit WAV is unsigned, recenter before scaling.
			v -= 128
		}
		mono[i] = int32(v) << shift
	}

	return mono, int(buf.Format.SampleRate), nil
}

// decodeMP3 reads the whole decoded stream (16-bit little-endian stereo)
// and keeps the left channel at full 32-bit scale.
func decodeMP3(f *os.File) ([]int32, int, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("reading MP3 stream: %w", err)
	}

	const bytesPerFrame = 4 // 2 channels x 16 bits
	frames := len(raw) / bytesPerFrame
	mono := make([]int32, frames)
	for i := 0; i < frames; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*bytesPerFrame:]))
		mono[i] = int32(v) << 16
	}

	return mono, dec.SampleRate(), nil
}
