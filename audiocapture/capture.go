// Package audiocapture provides exclusive microphone capture in fixed-size frames.
package audiocapture

import (
	"errors"
	"sync"
	"time"
)

// ErrAlreadyCapturing is returned when trying to start capture while already capturing.
var ErrAlreadyCapturing = errors.New("already capturing audio")

// ErrPermissionDenied is returned when the platform denies microphone access.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ErrNoDevice is returned when no audio input device exists.
var ErrNoDevice = errors.New("no audio input device available")

// FrameHandler receives one fixed-size frame of normalized samples in [-1, 1].
type FrameHandler func(samples []float32)

// captureImpl is the platform-specific capture implementation interface.
type captureImpl interface {
	start(sampleRate, frameSize int, handler FrameHandler) error
	stop() error
}

// Config holds configuration for microphone capture.
type Config struct {
	SampleRate int // Sample rate, default 16000 Hz
	FrameSize  int // Samples per frame, default 4096
}

// DefaultConfig returns the default capture configuration.
// 16 kHz mono matches what the remote agent's recognizer expects.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameSize:  4096,
	}
}

// Capture owns one exclusive microphone input and emits fixed-size frames
// at the device's native callback cadence.
type Capture struct {
	mu sync.RWMutex

	// State
	capturing  bool
	startTime  time.Time
	sampleRate int
	frameSize  int

	// Callbacks
	onFrame []FrameHandler

	// Platform-specific implementation
	impl captureImpl
}

// New creates a new microphone capture instance.
func New(cfg Config) (*Capture, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = 4096
	}

	impl, err := newCaptureImpl()
	if err != nil {
		return nil, err
	}

	return &Capture{
		sampleRate: cfg.SampleRate,
		frameSize:  cfg.FrameSize,
		onFrame:    make([]FrameHandler, 0),
		impl:       impl,
	}, nil
}

// OnFrame registers a callback for captured frames.
// Every frame has exactly FrameSize samples.
func (c *Capture) OnFrame(handler FrameHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = append(c.onFrame, handler)
}

// Start begins capturing microphone audio. It returns ErrPermissionDenied
// if the platform denies microphone access, ErrNoDevice if no input device
// exists, and ErrAlreadyCapturing on a double start. On failure the capture
// stays idle.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing {
		return ErrAlreadyCapturing
	}

	err := c.impl.start(c.sampleRate, c.frameSize, func(samples []float32) {
		c.handleFrame(samples)
	})
	if err != nil {
		return err
	}

	c.capturing = true
	c.startTime = time.Now()
	return nil
}

// Stop stops capturing and releases the device handle.
// Safe to call when already stopped.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.capturing {
		return nil
	}

	err := c.impl.stop()
	c.capturing = false
	return err
}

// IsCapturing returns true if currently capturing audio.
func (c *Capture) IsCapturing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capturing
}

// Duration returns how long capture has been running.
func (c *Capture) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.capturing {
		return 0
	}
	return time.Since(c.startTime)
}

// SampleRate returns the configured sample rate.
func (c *Capture) SampleRate() int {
	return c.sampleRate
}

// FrameSize returns the number of samples per frame.
func (c *Capture) FrameSize() int {
	return c.frameSize
}

// handleFrame forwards one captured frame to the registered callbacks.
func (c *Capture) handleFrame(samples []float32) {
	c.mu.RLock()
	callbacks := c.onFrame
	c.mu.RUnlock()

	for _, cb := range callbacks {
		cb(samples)
	}
}
