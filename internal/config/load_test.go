// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() failed validation: %v", err)
	}
	if cfg.Clock.GoLayout != "15:04" {
		t.Errorf("default clock layout = %q, want %q", cfg.Clock.GoLayout, "15:04")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
audio:
  source: capture
  sample_rate: 48000
  frame_length: 2048
  read_timeout: 100ms
analysis:
  band_count: 32
  band_spacing: linear
smoothing:
  attack: 25ms
  decay: 300ms
render:
  width: 640
  height: 360
  target_fps: 30
transport:
  udp_enabled: true
  udp_target_address: "10.0.0.5:7000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.FrameLength != 2048 {
		t.Errorf("frame_length = %d, want 2048", cfg.Audio.FrameLength)
	}
	if cfg.Audio.ReadTimeout.Std() != 100*time.Millisecond {
		t.Errorf("read_timeout = %s, want 100ms", cfg.Audio.ReadTimeout.Std())
	}
	if cfg.Analysis.BandCount != 32 {
		t.Errorf("band_count = %d, want 32", cfg.Analysis.BandCount)
	}
	if cfg.Analysis.BandSpacing != SpacingLinear {
		t.Errorf("band_spacing = %q, want linear", cfg.Analysis.BandSpacing)
	}
	if cfg.Smoothing.Attack.Std() != 25*time.Millisecond {
		t.Errorf("attack = %s, want 25ms", cfg.Smoothing.Attack.Std())
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("udp_enabled = false, want true")
	}
	if cfg.Transport.UDPTargetAddress != "10.0.0.5:7000" {
		t.Errorf("udp_target_address = %q, want 10.0.0.5:7000", cfg.Transport.UDPTargetAddress)
	}

	// Fields the file left out keep their defaults.
	if cfg.Analysis.Window != "hann" {
		t.Errorf("window = %q, want default hann", cfg.Analysis.Window)
	}
	if cfg.Render.Background != "#101010" {
		t.Errorf("background = %q, want default #101010", cfg.Render.Background)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("audio:\n  smaple_rate: 48000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() accepted a misspelled key, want error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadConfig() with missing explicit path, want error")
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("audio:\n  frame_length: 1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() accepted frame_length 1000, want error")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v is not a *config.Error", err)
	}
	if cerr.Field != "audio.frame_length" {
		t.Errorf("error field = %q, want audio.frame_length", cerr.Field)
	}
	if !strings.Contains(cerr.Reason, "1024") {
		t.Errorf("error %q should hint at the next power of two 1024", cerr.Reason)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPECTRA_LOG_LEVEL", "debug")
	t.Setenv("SPECTRA_OVERLAY", "/tmp/logo.png")
	t.Setenv("SPECTRA_UDP_ENABLED", "true")
	t.Setenv("SPECTRA_UDP_TARGET_ADDRESS", "192.168.1.2:9999")

	cfg := Defaults()
	cfg.applyEnvOverrides()

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Overlay.Path != "/tmp/logo.png" {
		t.Errorf("overlay.path = %q, want /tmp/logo.png", cfg.Overlay.Path)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("udp_enabled = false, want true")
	}
	if cfg.Transport.UDPTargetAddress != "192.168.1.2:9999" {
		t.Errorf("udp_target_address = %q, want 192.168.1.2:9999", cfg.Transport.UDPTargetAddress)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"bad source", func(c *Config) { c.Audio.Source = "microphone" }, "audio.source"},
		{"file source without path", func(c *Config) { c.Audio.Source = SourceFile }, "audio.file"},
		{"device below -1", func(c *Config) { c.Audio.InputDevice = -2 }, "audio.input_device"},
		{"sample rate too low", func(c *Config) { c.Audio.SampleRate = 4000 }, "audio.sample_rate"},
		{"sample rate too high", func(c *Config) { c.Audio.SampleRate = 384000 }, "audio.sample_rate"},
		{"frame length not power of two", func(c *Config) { c.Audio.FrameLength = 1000 }, "audio.frame_length"},
		{"frame length too large", func(c *Config) { c.Audio.FrameLength = 16384 }, "audio.frame_length"},
		{"zero read timeout", func(c *Config) { c.Audio.ReadTimeout = 0 }, "audio.read_timeout"},
		{"zero bands", func(c *Config) { c.Analysis.BandCount = 0 }, "analysis.band_count"},
		{"more bands than bins", func(c *Config) { c.Analysis.BandCount = 513 }, "analysis.band_count"},
		{"bad spacing", func(c *Config) { c.Analysis.BandSpacing = "mel" }, "analysis.band_spacing"},
		{"zero gain", func(c *Config) { c.Analysis.Gain = 0 }, "analysis.gain"},
		{"noise floor too high", func(c *Config) { c.Analysis.NoiseFloor = 0.7 }, "analysis.noise_floor"},
		{"zero attack", func(c *Config) { c.Smoothing.Attack = 0 }, "smoothing.attack"},
		{"negative decay", func(c *Config) { c.Smoothing.Decay = Duration(-time.Second) }, "smoothing.decay"},
		{"width too small", func(c *Config) { c.Render.Width = 8 }, "render.width"},
		{"height too small", func(c *Config) { c.Render.Height = 8 }, "render.height"},
		{"zero fps", func(c *Config) { c.Render.TargetFPS = 0 }, "render.target_fps"},
		{"fps too high", func(c *Config) { c.Render.TargetFPS = 1000 }, "render.target_fps"},
		{"bad background", func(c *Config) { c.Render.Background = "red" }, "render.background"},
		{"negative bar gap", func(c *Config) { c.Render.BarGap = -1 }, "render.bar_gap"},
		{"single gradient stop", func(c *Config) {
			c.Render.Gradient = c.Render.Gradient[:1]
		}, "render.gradient"},
		{"gradient stop out of range", func(c *Config) {
			c.Render.Gradient[1].Pos = 1.5
		}, "render.gradient"},
		{"gradient stops not ascending", func(c *Config) {
			c.Render.Gradient[0].Pos = 0.9
			c.Render.Gradient[1].Pos = 0.1
		}, "render.gradient"},
		{"gradient bad color", func(c *Config) {
			c.Render.Gradient[0].Color = "#GGHHII"
		}, "render.gradient"},
		{"bad clock anchor", func(c *Config) { c.Clock.Position = "middle" }, "clock.position"},
		{"clock size ratio zero", func(c *Config) { c.Clock.SizeRatio = 0 }, "clock.size_ratio"},
		{"clock size ratio too large", func(c *Config) { c.Clock.SizeRatio = 1.2 }, "clock.size_ratio"},
		{"bad clock color", func(c *Config) { c.Clock.Color = "white" }, "clock.color"},
		{"clock opacity out of range", func(c *Config) { c.Clock.Opacity = 1.1 }, "clock.opacity"},
		{"bad clock verb", func(c *Config) { c.Clock.Format = "%H:%M %Q" }, "clock.format"},
		{"bad overlay scale", func(c *Config) { c.Overlay.Scale = "tile" }, "overlay.scale"},
		{"bad overlay anchor", func(c *Config) { c.Overlay.Position = "left" }, "overlay.position"},
		{"overlay opacity negative", func(c *Config) { c.Overlay.Opacity = -0.1 }, "overlay.opacity"},
		{"bad display mode", func(c *Config) { c.Display.Mode = "sdl" }, "display.mode"},
		{"png mode without dir", func(c *Config) {
			c.Display.Mode = DisplayPNG
			c.Display.PNGDir = ""
		}, "display.png_dir"},
		{"udp address without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "transport.udp_target_address"},
		{"udp zero interval", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPSendInterval = 0
		}, "transport.udp_send_interval"},
		{"ws empty port", func(c *Config) {
			c.Transport.WSEnabled = true
			c.Transport.WSPort = ""
		}, "transport.ws_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("error %v is not a *config.Error", err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", cerr.Field, tt.wantField)
			}
		})
	}
}

func TestTranslateClockFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"%H:%M", "15:04", false},
		{"%H:%M:%S", "15:04:05", false},
		{"%I:%M %p", "03:04 PM", false},
		{"%a %d %b", "Mon 02 Jan", false},
		{"%Y-%m-%d", "2006-01-02", false},
		{"%H:%M\n%d %b", "15:04\n02 Jan", false},
		{"vol. %%", "vol. %", false},
		{"", "", true},
		{"%Q", "", true},
		{"%H:%M %", "", true},
		// Literal digits would collide with Go's reference layout.
		{"at 5 o'clock", "", true},
		{"100%%", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := TranslateClockFormat(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("TranslateClockFormat(%q) = %q, want error", tt.format, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("TranslateClockFormat(%q) error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("TranslateClockFormat(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(250 * time.Millisecond)
	out, err := d.MarshalYAML()
	if err != nil {
		t.Fatal(err)
	}
	if out != "250ms" {
		t.Errorf("MarshalYAML() = %v, want 250ms", out)
	}
}
