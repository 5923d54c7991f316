package audio

import (
	"fmt"

	"spectra/internal/config"

	"github.com/gordonklaus/portaudio"
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any capture operations and paired with a
// Terminate() call. File sources do not need it.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes one audio device for listings.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatency        float64 // milliseconds
	HighLatency       float64 // milliseconds
}

// String renders the device the way `spectra list` prints it.
func (d Device) String() string {
	kind := ""
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		kind = "Input/Output"
	case d.MaxInputChannels > 0:
		kind = "Input"
	case d.MaxOutputChannels > 0:
		kind = "Output"
	}
	return fmt.Sprintf("[%d] %s (%s)\n    Input channels: %d, Output channels: %d\n    Default sample rate: %.0f Hz\n    Latency: Low=%.2fms, High=%.2fms",
		d.ID, d.Name, kind,
		d.MaxInputChannels, d.MaxOutputChannels,
		d.DefaultSampleRate, d.LowLatency, d.HighLatency)
}

// Devices returns all audio devices PortAudio knows about. PortAudio must
// already be initialized.
func Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowLatency:        info.DefaultLowInputLatency.Seconds() * 1000,
			HighLatency:       info.DefaultHighInputLatency.Seconds() * 1000,
		}
	}

	return devices, nil
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is config.MinDeviceID (-1), returns the system default input
// device. Returns an error if no such device exists.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	return devices[deviceID], nil
}
