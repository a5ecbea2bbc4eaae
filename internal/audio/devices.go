// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"pitch/internal/config"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
// Returns an error if the device ID is invalid or the device has no inputs.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		return paLibDefaultInputDeviceFunc()
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// OutputDevice is InputDevice for playback.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		return paLibDefaultOutputDeviceFunc()
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support output", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// ListDevices writes information about all available audio devices to w.
// For each device, it shows:
// - Device ID and name
// - Device type (Input/Output/Input+Output)
// - Channel count
// - Default sample rate
// - Latency ranges
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		if d.HostAPI != "" {
			fmt.Fprintf(w, "    Host API: %s\n", d.HostAPI)
		}
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowLatency.Seconds()*1000,
			d.HighLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all available PortAudio devices, never a nil slice on
// success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}

// paOpenInput opens a mono capture stream on the configured input device.
func (e *Engine) paOpenInput(sampleRate, framesPerBuffer int, callback func([]int16)) (stream, error) {
	dev, err := InputDevice(e.config.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	if e.config.Audio.LowLatency {
		params = portaudio.LowLatencyParameters(dev, nil)
	}
	params.Input.Channels = recordChannels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerBuffer
	e.logger.Debugf("input %q latency %s", dev.Name, params.Input.Latency)

	return openStream(params, callback)
}

// paOpenOutput opens a mono playback stream on the configured output device.
func (e *Engine) paOpenOutput(sampleRate, framesPerBuffer int, callback func([]int16)) (stream, error) {
	dev, err := OutputDevice(e.config.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	params := portaudio.HighLatencyParameters(nil, dev)
	if e.config.Audio.LowLatency {
		params = portaudio.LowLatencyParameters(nil, dev)
	}
	params.Output.Channels = recordChannels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = framesPerBuffer
	e.logger.Debugf("output %q latency %s", dev.Name, params.Output.Latency)

	return openStream(params, callback)
}

func openStream(params portaudio.StreamParameters, callback func([]int16)) (stream, error) {
	s, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, err
	}
	return s, nil
}
