// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"strings"

	"spectra/pkg/bitint"

	"github.com/lucasb-eyer/go-colorful"
)

// Error describes a single invalid configuration field. The pipeline never
// starts while one of these is outstanding.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func errf(field, format string, v ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, v...)}
}

// Validate checks the whole configuration and returns the first invalid
// field as a *Error. It also fills derived fields (the translated clock
// layout), so it must run before the config is used.
func (c *Config) Validate() error {
	if _, ok := parseLogLevel(c.LogLevel); !ok {
		return errf("log_level", "unknown level %q (debug, info, warn, error)", c.LogLevel)
	}

	// Audio
	if !c.Audio.Source.IsValid() {
		return errf("audio.source", "unknown source %q (capture, file)", c.Audio.Source)
	}
	if c.Audio.Source == SourceFile && c.Audio.File == "" {
		return errf("audio.file", "required when audio.source is %q", SourceFile)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return errf("audio.input_device", "must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return errf("audio.sample_rate", "must be in %d..%d Hz, got %d", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FrameLength) {
		return errf("audio.frame_length", "must be a power of two, got %d (next: %d)",
			c.Audio.FrameLength, bitint.NextPowerOfTwo(c.Audio.FrameLength))
	}
	if c.Audio.FrameLength < MinFrameLength || c.Audio.FrameLength > MaxFrameLength {
		return errf("audio.frame_length", "must be in %d..%d, got %d", MinFrameLength, MaxFrameLength, c.Audio.FrameLength)
	}
	if c.Audio.ReadTimeout.Std() <= 0 {
		return errf("audio.read_timeout", "must be positive, got %s", c.Audio.ReadTimeout.Std())
	}

	// Analysis
	if c.Analysis.BandCount < 1 || c.Analysis.BandCount > c.Audio.FrameLength/2 {
		return errf("analysis.band_count", "must be in 1..frame_length/2 (%d), got %d",
			c.Audio.FrameLength/2, c.Analysis.BandCount)
	}
	if !c.Analysis.BandSpacing.IsValid() {
		return errf("analysis.band_spacing", "unknown spacing %q (log, linear)", c.Analysis.BandSpacing)
	}
	if c.Analysis.Gain <= 0 {
		return errf("analysis.gain", "must be positive, got %g", c.Analysis.Gain)
	}
	if c.Analysis.NoiseFloor < 0 || c.Analysis.NoiseFloor > 0.5 {
		return errf("analysis.noise_floor", "must be in 0..0.5, got %g", c.Analysis.NoiseFloor)
	}

	// Smoothing
	if c.Smoothing.Attack.Std() <= 0 {
		return errf("smoothing.attack", "must be positive, got %s", c.Smoothing.Attack.Std())
	}
	if c.Smoothing.Decay.Std() <= 0 {
		return errf("smoothing.decay", "must be positive, got %s", c.Smoothing.Decay.Std())
	}

	// Render
	if c.Render.Width < 16 || c.Render.Width > 7680 {
		return errf("render.width", "must be in 16..7680, got %d", c.Render.Width)
	}
	if c.Render.Height < 16 || c.Render.Height > 4320 {
		return errf("render.height", "must be in 16..4320, got %d", c.Render.Height)
	}
	if c.Render.TargetFPS < 1 || c.Render.TargetFPS > MaxTargetFPS {
		return errf("render.target_fps", "must be in 1..%d, got %d", MaxTargetFPS, c.Render.TargetFPS)
	}
	if _, err := colorful.Hex(c.Render.Background); err != nil {
		return errf("render.background", "invalid color %q: %v", c.Render.Background, err)
	}
	if c.Render.BarGap < 0 {
		return errf("render.bar_gap", "must be >= 0, got %d", c.Render.BarGap)
	}
	if len(c.Render.Gradient) < 2 {
		return errf("render.gradient", "needs at least 2 stops, got %d", len(c.Render.Gradient))
	}
	for i, stop := range c.Render.Gradient {
		if stop.Pos < 0 || stop.Pos > 1 {
			return errf("render.gradient", "stop %d position must be in 0..1, got %g", i, stop.Pos)
		}
		if i > 0 && stop.Pos <= c.Render.Gradient[i-1].Pos {
			return errf("render.gradient", "stop positions must be strictly ascending (stop %d: %g after %g)",
				i, stop.Pos, c.Render.Gradient[i-1].Pos)
		}
		if _, err := colorful.Hex(stop.Color); err != nil {
			return errf("render.gradient", "stop %d has invalid color %q: %v", i, stop.Color, err)
		}
	}

	// Clock
	if !c.Clock.Position.IsValid() {
		return errf("clock.position", "unknown anchor %q", c.Clock.Position)
	}
	if c.Clock.SizeRatio <= 0 || c.Clock.SizeRatio > 1 {
		return errf("clock.size_ratio", "must be in (0, 1], got %g", c.Clock.SizeRatio)
	}
	if _, err := colorful.Hex(c.Clock.Color); err != nil {
		return errf("clock.color", "invalid color %q: %v", c.Clock.Color, err)
	}
	if c.Clock.Opacity < 0 || c.Clock.Opacity > 1 {
		return errf("clock.opacity", "must be in 0..1, got %g", c.Clock.Opacity)
	}
	layout, err := TranslateClockFormat(c.Clock.Format)
	if err != nil {
		return errf("clock.format", "%v", err)
	}
	c.Clock.GoLayout = layout

	// Overlay (path existence is a runtime concern, not a config one)
	if !c.Overlay.Scale.IsValid() {
		return errf("overlay.scale", "unknown scale mode %q (fit, fill, stretch)", c.Overlay.Scale)
	}
	if !c.Overlay.Position.IsValid() {
		return errf("overlay.position", "unknown anchor %q", c.Overlay.Position)
	}
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		return errf("overlay.opacity", "must be in 0..1, got %g", c.Overlay.Opacity)
	}

	// Display
	if !c.Display.Mode.IsValid() {
		return errf("display.mode", "unknown mode %q (terminal, png, null)", c.Display.Mode)
	}
	if c.Display.Mode == DisplayPNG && c.Display.PNGDir == "" {
		return errf("display.png_dir", "required when display.mode is %q", DisplayPNG)
	}

	// Transport
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return errf("transport.udp_target_address", "%q looks invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval.Std() <= 0 {
			return errf("transport.udp_send_interval", "must be positive when UDP is enabled")
		}
	}
	if c.Transport.WSEnabled {
		if c.Transport.WSPort == "" {
			return errf("transport.ws_port", "required when WebSocket transport is enabled")
		}
		if c.Transport.WSSendInterval.Std() <= 0 {
			return errf("transport.ws_send_interval", "must be positive when WebSocket transport is enabled")
		}
	}

	return nil
}

// parseLogLevel mirrors the accepted level names without dragging the log
// package into every config consumer.
func parseLogLevel(s string) (string, bool) {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return strings.ToLower(s), true
	}
	return "", false
}

// strftime verbs the clock layer understands, mapped to Go reference layout
// fragments. Anything else after a '%' is rejected at validation time.
var clockVerbs = map[byte]string{
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'd': "02",
	'm': "01",
	'Y': "2006",
	'y': "06",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
}

// TranslateClockFormat converts a strftime-style pattern into a Go time
// layout. Literal text passes through unchanged, including newlines (which
// the compositor renders as stacked lines). Note that literal digits in the
// pattern would collide with Go's reference layout and are rejected.
func TranslateClockFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("clock format must not be empty")
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			if ch >= '0' && ch <= '9' {
				return "", fmt.Errorf("literal digit %q not supported in clock format", ch)
			}
			b.WriteByte(ch)
			continue
		}
		i++
		if i >= len(format) {
			return "", fmt.Errorf("trailing '%%' in clock format")
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}
		verb, ok := clockVerbs[format[i]]
		if !ok {
			return "", fmt.Errorf("unsupported clock format verb %%%c", format[i])
		}
		b.WriteString(verb)
	}
	return b.String(), nil
}
