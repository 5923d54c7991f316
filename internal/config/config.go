// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Limits and defaults for the renderer configuration.
const (
	MinDeviceID    = -1     // -1 selects the system default input device
	MinSampleRate  = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate  = 192000 // Maximum supported sample rate (Hz)
	MinFrameLength = 32     // Smallest FFT frame (power of 2)
	MaxFrameLength = 8192   // Largest FFT frame (power of 2)
	MaxTargetFPS   = 240    // Render cadence ceiling
)

// SourceKind selects where audio frames come from.
type SourceKind string

const (
	SourceCapture SourceKind = "capture" // live input device
	SourceFile    SourceKind = "file"    // looped WAV/MP3 file
)

// IsValid reports whether k is a recognised source kind.
func (k SourceKind) IsValid() bool {
	return k == SourceCapture || k == SourceFile
}

// BandSpacing selects how FFT bins are distributed across visual bands.
type BandSpacing string

const (
	SpacingLog    BandSpacing = "log"
	SpacingLinear BandSpacing = "linear"
)

// IsValid reports whether s is a recognised band spacing.
func (s BandSpacing) IsValid() bool {
	return s == SpacingLog || s == SpacingLinear
}

// ScaleMode selects how the overlay image is sized against the frame.
type ScaleMode string

const (
	ScaleFit     ScaleMode = "fit"     // contain, aspect preserved
	ScaleFill    ScaleMode = "fill"    // cover, aspect preserved, cropped
	ScaleStretch ScaleMode = "stretch" // exact frame size, aspect ignored
)

// IsValid reports whether m is a recognised scale mode.
func (m ScaleMode) IsValid() bool {
	return m == ScaleFit || m == ScaleFill || m == ScaleStretch
}

// Anchor places a layer within the frame.
type Anchor string

const (
	AnchorCenter      Anchor = "center"
	AnchorTopLeft     Anchor = "top-left"
	AnchorTopRight    Anchor = "top-right"
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottomRight Anchor = "bottom-right"
)

// IsValid reports whether a is a recognised anchor.
func (a Anchor) IsValid() bool {
	switch a {
	case AnchorCenter, AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight:
		return true
	}
	return false
}

// DisplayMode selects the surface the composited frames are presented on.
type DisplayMode string

const (
	DisplayTerminal DisplayMode = "terminal" // half-block preview in the terminal
	DisplayPNG      DisplayMode = "png"      // numbered PNG files for headless runs
	DisplayNull     DisplayMode = "null"     // discard frames (benchmarks, tests)
)

// IsValid reports whether m is a recognised display mode.
func (m DisplayMode) IsValid() bool {
	return m == DisplayTerminal || m == DisplayPNG || m == DisplayNull
}

// Duration wraps time.Duration so YAML configs can use strings like "250ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string node.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"250ms\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML renders the duration back to its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GradientStop is one (position, color) point of the bar color ramp.
type GradientStop struct {
	Pos   float64 `yaml:"pos"`   // 0..1, strictly ascending across the list
	Color string  `yaml:"color"` // "#RRGGBB"
}

// Config is the root configuration, loaded from YAML with defaults applied first.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error
	Audio     AudioConfig     `yaml:"audio"`     // frame acquisition
	Analysis  AnalysisConfig  `yaml:"analysis"`  // FFT and banding
	Smoothing SmoothingConfig `yaml:"smoothing"` // attack/decay filtering
	Render    RenderConfig    `yaml:"render"`    // frame composition
	Clock     ClockConfig     `yaml:"clock"`     // clock layer
	Overlay   OverlayConfig   `yaml:"overlay"`   // overlay image layer
	Display   DisplayConfig   `yaml:"display"`   // presentation sink
	Transport TransportConfig `yaml:"transport"` // outbound band publishers
}

// AudioConfig holds frame acquisition settings.
type AudioConfig struct {
	Source      SourceKind `yaml:"source"`       // capture or file
	InputDevice int        `yaml:"input_device"` // PortAudio index, -1 for default
	File        string     `yaml:"file"`         // audio file path when source=file
	SampleRate  int        `yaml:"sample_rate"`  // Hz
	FrameLength int        `yaml:"frame_length"` // samples per frame, power of 2
	ReadTimeout Duration   `yaml:"read_timeout"` // bounded wait per frame
}

// AnalysisConfig holds spectral analysis settings.
type AnalysisConfig struct {
	BandCount   int         `yaml:"band_count"`   // visual bands N, 1..frame_length/2
	BandSpacing BandSpacing `yaml:"band_spacing"` // log or linear bin distribution
	Window      string      `yaml:"window"`       // window function name (e.g. "hann")
	Gain        float64     `yaml:"gain"`         // magnitude gain after 2/L normalization
	NoiseFloor  float64     `yaml:"noise_floor"`  // band values below this clamp to zero
}

// SmoothingConfig holds the attack/decay time constants. Both are wall-time
// based so the animation looks the same at any frame rate.
type SmoothingConfig struct {
	Attack Duration `yaml:"attack"` // rise time constant
	Decay  Duration `yaml:"decay"`  // fall time constant, typically ~10x attack
}

// RenderConfig holds frame composition settings.
type RenderConfig struct {
	Width      int            `yaml:"width"`      // frame width in pixels
	Height     int            `yaml:"height"`     // frame height in pixels
	TargetFPS  int            `yaml:"target_fps"` // render cadence
	Background string         `yaml:"background"` // "#RRGGBB" fill color
	BarGap     int            `yaml:"bar_gap"`    // pixels between bars
	Gradient   []GradientStop `yaml:"gradient"`   // bar color ramp, >= 2 stops
}

// ClockConfig holds the clock layer settings.
type ClockConfig struct {
	Format    string  `yaml:"format"`     // strftime-style pattern, "\n" stacks lines
	Position  Anchor  `yaml:"position"`   // placement within the frame
	SizeRatio float64 `yaml:"size_ratio"` // glyph height as a fraction of frame height
	Color     string  `yaml:"color"`      // "#RRGGBB"
	Opacity   float64 `yaml:"opacity"`    // 0..1

	// GoLayout is the translated Go time layout, filled by Validate.
	GoLayout string `yaml:"-"`
}

// OverlayConfig holds the overlay image layer settings. An empty path
// disables the layer; a path that fails to load degrades at runtime
// instead of failing validation.
type OverlayConfig struct {
	Path     string    `yaml:"path"`
	Scale    ScaleMode `yaml:"scale"`
	Position Anchor    `yaml:"position"`
	Opacity  float64   `yaml:"opacity"`
}

// DisplayConfig selects and parameterizes the presentation sink.
type DisplayConfig struct {
	Mode   DisplayMode `yaml:"mode"`
	PNGDir string      `yaml:"png_dir"` // output directory for mode=png
}

// TransportConfig holds the outbound band publishers.
type TransportConfig struct {
	UDPEnabled       bool     `yaml:"udp_enabled"`
	UDPTargetAddress string   `yaml:"udp_target_address"` // "host:port"
	UDPSendInterval  Duration `yaml:"udp_send_interval"`
	WSEnabled        bool     `yaml:"ws_enabled"`
	WSPort           string   `yaml:"ws_port"`
	WSSendInterval   Duration `yaml:"ws_send_interval"`
}

// Defaults returns the built-in configuration: 44.1kHz capture, 1024-sample
// frames, 48 log-spaced bands, warm two-stop gradient, centered clock,
// terminal preview, publishers off.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Source:      SourceCapture,
			InputDevice: MinDeviceID,
			SampleRate:  44100,
			FrameLength: 1024,
			ReadTimeout: Duration(250 * time.Millisecond),
		},
		Analysis: AnalysisConfig{
			BandCount:   48,
			BandSpacing: SpacingLog,
			Window:      "hann",
			Gain:        2.0,
			NoiseFloor:  0.02,
		},
		Smoothing: SmoothingConfig{
			Attack: Duration(40 * time.Millisecond),
			Decay:  Duration(400 * time.Millisecond),
		},
		Render: RenderConfig{
			Width:      1280,
			Height:     720,
			TargetFPS:  60,
			Background: "#101010",
			BarGap:     2,
			Gradient: []GradientStop{
				{Pos: 0.0, Color: "#DE726E"},
				{Pos: 1.0, Color: "#F0B781"},
			},
		},
		Clock: ClockConfig{
			Format:    "%H:%M",
			Position:  AnchorCenter,
			SizeRatio: 0.2,
			Color:     "#FFFFFF",
			Opacity:   0.85,
		},
		Overlay: OverlayConfig{
			Path:     "",
			Scale:    ScaleFit,
			Position: AnchorCenter,
			Opacity:  1.0,
		},
		Display: DisplayConfig{
			Mode:   DisplayTerminal,
			PNGDir: "frames",
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  Duration(33 * time.Millisecond),
			WSEnabled:        false,
			WSPort:           "8080",
			WSSendInterval:   Duration(33 * time.Millisecond),
		},
	}
}

// FramePeriod returns the duration of one audio frame, the budget the
// analysis stage must stay within.
func (c *Config) FramePeriod() time.Duration {
	return time.Duration(float64(c.Audio.FrameLength) / float64(c.Audio.SampleRate) * float64(time.Second))
}

// RenderPeriod returns the duration of one render tick.
func (c *Config) RenderPeriod() time.Duration {
	return time.Second / time.Duration(c.Render.TargetFPS)
}
