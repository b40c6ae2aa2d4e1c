// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     audio
// Description: Microphone capture using PortAudio
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	SampleRate int
	BufferSize int
	DeviceName string // empty or "default" selects the default input
	QueueSize  int
}

// DefaultCaptureConfig returns default capture configuration
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate: DefaultSampleRate,
		BufferSize: DefaultFramesPerBuffer,
		QueueSize:  100,
	}
}

// Capture is a Source reading mono float32 frames from a PortAudio input
type Capture struct {
	mu          sync.Mutex
	cfg         CaptureConfig
	logger      *logging.Logger
	stream      *portaudio.Stream
	cancel      context.CancelFunc
	done        chan struct{}
	initialized bool
}

// NewCapture initializes PortAudio and creates a capture source
func NewCapture(cfg CaptureConfig, logger *logging.Logger) (*Capture, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultFramesPerBuffer
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if logger == nil {
		logger = logging.New("capture")
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureFailed, "failed to initialize PortAudio")
	}
	return &Capture{cfg: cfg, logger: logger, initialized: true}, nil
}

// Start opens the input stream and begins a capture segment
func (c *Capture) Start(ctx context.Context) (<-chan Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil, apperr.New(apperr.CodeCaptureFailed, "capture already running")
	}

	buffer := make([]float32, c.cfg.BufferSize)
	stream, err := c.openStream(buffer)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeCaptureFailed, "failed to open audio stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, apperr.Wrap(err, apperr.CodeCaptureFailed, "failed to start audio stream")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	out := make(chan Frame, c.cfg.QueueSize)
	done := make(chan struct{})

	c.stream = stream
	c.cancel = cancel
	c.done = done

	go c.captureLoop(loopCtx, stream, buffer, out, done)

	c.logger.Debug("Capture started", "device", c.cfg.DeviceName, "sample_rate", c.cfg.SampleRate)
	return out, nil
}

func (c *Capture) openStream(buffer []float32) (*portaudio.Stream, error) {
	if c.cfg.DeviceName != "" && c.cfg.DeviceName != "default" {
		device, err := findInputDevice(c.cfg.DeviceName)
		if err == nil {
			params := portaudio.StreamParameters{
				Input: portaudio.StreamDeviceParameters{
					Device:   device,
					Channels: DefaultChannels,
					Latency:  device.DefaultLowInputLatency,
				},
				SampleRate:      float64(c.cfg.SampleRate),
				FramesPerBuffer: c.cfg.BufferSize,
			}
			return portaudio.OpenStream(params, buffer)
		}
		c.logger.Warn("Input device not found, using default", "device", c.cfg.DeviceName)
	}
	return portaudio.OpenDefaultStream(DefaultChannels, 0, float64(c.cfg.SampleRate), c.cfg.BufferSize, buffer)
}

// captureLoop stamps frames from a sample clock so timestamps stay
// monotonic and gap-free even when the reader falls behind.
func (c *Capture) captureLoop(ctx context.Context, stream *portaudio.Stream, buffer []float32, out chan<- Frame, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	base := time.Now()
	var captured int64
	dropped := 0

	for {
		if ctx.Err() != nil {
			break
		}
		if err := stream.Read(); err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Debug("Audio read error", "error", err)
			continue
		}

		samples := make([]float32, len(buffer))
		copy(samples, buffer)
		frame := Frame{
			Samples:    samples,
			SampleRate: c.cfg.SampleRate,
			CapturedAt: base.Add(time.Duration(captured) * time.Second / time.Duration(c.cfg.SampleRate)),
		}
		captured += int64(len(samples))

		select {
		case out <- frame:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		c.logger.Warn("Dropped audio frames", "count", dropped)
	}
}

// Stop ends the current capture segment and closes its frame channel
func (c *Capture) Stop() error {
	c.mu.Lock()
	stream, cancel, done := c.stream, c.cancel, c.done
	c.stream, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}

	cancel()
	if err := stream.Stop(); err != nil {
		c.logger.Debug("Failed to stop stream", "error", err)
	}
	<-done
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	c.logger.Debug("Capture stopped")
	return nil
}

// Close stops capture and terminates PortAudio
func (c *Capture) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		c.initialized = false
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
	}
	return nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

// DeviceInfo holds information about an input device
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices returns the available input devices
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	var inputs []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputs = append(inputs, DeviceInfo{
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultName,
			})
		}
	}
	return inputs, nil
}
