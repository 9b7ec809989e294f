// ABOUTME: Malgo-based duplex audio host
// ABOUTME: Captures every input bus and plays the routed output via miniaudio
package host

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// Malgo host implementation using malgo/miniaudio library
type Malgo struct {
	config   Config
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	driver   *driver
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo host
func NewMalgo(config Config) *Malgo {
	return &Malgo{config: config}
}

// SampleRate returns the configured device rate
func (m *Malgo) SampleRate() int {
	return m.config.SampleRate
}

// Start opens a duplex device with Inputs*Channels capture channels and
// Channels playback channels, both 32-bit float.
func (m *Malgo) Start(process ProcessFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo host already started")
	}
	if err := m.config.Layout.Validate(); err != nil {
		return err
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("malgo: %s", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx

	m.driver = newDriver(m.config, process)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.config.Layout.CaptureChannels())
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(m.config.Layout.Channels)
	deviceConfig.SampleRate = uint32(m.config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.driver.block.MaxFrames())
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		m.driver.run(bytesToFloat32(pInput), bytesToFloat32(pOutput), int(frameCount))
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		m.freeContext()
		return fmt.Errorf("failed to initialize duplex device: %w", err)
	}

	if rate := int(device.SampleRate()); rate != m.config.SampleRate {
		device.Uninit()
		m.freeContext()
		return fmt.Errorf("device runs at %dHz, need %dHz", rate, m.config.SampleRate)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		m.freeContext()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device

	log.Printf("Audio host initialized: %dHz, %d inputs x %d channels, period %d (malgo/F32)",
		m.config.SampleRate, m.config.Layout.Inputs, m.config.Layout.Channels, m.driver.block.MaxFrames())

	return nil
}

// Close stops the device and releases the context
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotStarted
	}

	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil

	m.freeContext()
	return nil
}

// freeContext releases the malgo context (must hold m.mu)
func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

// bytesToFloat32 reinterprets a device buffer of native-endian float32
// samples without copying.
func bytesToFloat32(data []byte) []float32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}
