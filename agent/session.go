package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/voxlet/voxlet/audiocapture"
	"github.com/voxlet/voxlet/pcm"
)

// ErrAlreadyRecording is returned when starting a session while one is active.
var ErrAlreadyRecording = errors.New("a recording session is already active")

// State of a recording session.
type State int

const (
	// StateIdle means no capture or connection is held.
	StateIdle State = iota
	// StateRecording means the microphone and the channel are live.
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// transport is the duplex channel side of a session; satisfied by *Client.
type transport interface {
	Dial(ctx context.Context) error
	IsOpen() bool
	SendFrame(ctx context.Context, frame []byte) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// capturer is the microphone side of a session; satisfied by *audiocapture.Capture.
type capturer interface {
	OnFrame(audiocapture.FrameHandler)
	Start() error
	Stop() error
}

// Session binds one exclusive microphone capture to one live agent
// connection. Captured frames are PCM16-encoded and streamed out; inbound
// events are dispatched to the handler one at a time, in receipt order.
//
// Frames produced while the channel is not open are dropped, not buffered:
// the session favors real-time liveness over completeness. For the same
// reason a dead connection does not stop the capture; frames simply stop
// being delivered.
type Session struct {
	onEvent func(Event)

	mu      sync.Mutex
	state   State
	capture capturer
	client  transport
	cancel  context.CancelFunc
	done    chan struct{}

	meter   *audiocapture.Meter
	dropped atomic.Int64

	// Factories, replaceable in tests.
	newCapture func() (capturer, error)
	newClient  func() (transport, error)
}

// NewSession creates a session for the agent behind serverURL, capturing
// with the given config (zero fields take the capture defaults).
// onEvent receives every inbound event; invocations never overlap.
func NewSession(serverURL string, cap audiocapture.Config, onEvent func(Event)) *Session {
	return &Session{
		onEvent: onEvent,
		meter:   audiocapture.NewMeter(0, 0),
		newCapture: func() (capturer, error) {
			return audiocapture.New(cap)
		},
		newClient: func() (transport, error) {
			return NewClient(serverURL)
		},
	}
}

// Start acquires the microphone, opens the channel, and begins streaming.
// Device acquisition errors (audiocapture.ErrPermissionDenied,
// audiocapture.ErrNoDevice) abort the start and leave the session idle.
// The channel is dialed in the background; until it opens, captured frames
// are dropped.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecording {
		return ErrAlreadyRecording
	}

	client, err := s.newClient()
	if err != nil {
		return err
	}

	capture, err := s.newCapture()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)

	s.meter.Reset()
	capture.OnFrame(func(samples []float32) {
		s.meter.Observe(samples)
		frame := pcm.Bytes(pcm.Encode(samples))
		if !client.IsOpen() {
			s.dropped.Add(1)
			return
		}
		if err := client.SendFrame(ctx, frame); err != nil {
			s.dropped.Add(1)
		}
	})

	if err := capture.Start(); err != nil {
		cancel()
		_ = client.Close()
		return err
	}

	s.capture = capture
	s.client = client
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRecording

	// Dial without blocking the caller; a failed or slow connection only
	// means frames are dropped until it opens.
	go func() {
		if err := client.Dial(ctx); err != nil {
			slog.Warn("agent connection failed, dropping frames", "error", err)
		}
	}()

	go s.pumpEvents(client, s.done)

	return nil
}

// pumpEvents delivers inbound events sequentially until the connection
// terminates or the session is stopped. Connection errors are logged but do
// not stop the capture.
func (s *Session) pumpEvents(client transport, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			if s.onEvent != nil {
				s.onEvent(ev)
			}
		case err, ok := <-client.Errors():
			if !ok {
				return
			}
			slog.Warn("agent channel error", "error", err)
		}
	}
}

// Stop releases the microphone and tears down the connection, returning the
// session to idle. In-flight remote processing is not cancelled; events
// arriving after Stop are never delivered. Safe to call when already idle.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return nil
	}

	if err := s.capture.Stop(); err != nil {
		slog.Error("stop audio capture", "error", err)
	}
	if err := s.client.Close(); err != nil {
		slog.Error("close agent channel", "error", err)
	}
	s.cancel()
	close(s.done)

	s.capture = nil
	s.client = nil
	s.cancel = nil
	s.done = nil
	s.state = StateIdle

	if n := s.dropped.Load(); n > 0 {
		slog.Debug("session dropped frames while channel not ready", "frames", n)
	}
	return nil
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Speaking reports whether the microphone currently picks up speech.
// Always false when idle.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRecording && s.meter.Speaking()
}

// InputLevel returns the RMS level of the most recent captured frame.
func (s *Session) InputLevel() float32 {
	return s.meter.Level()
}

// Dropped returns the number of frames dropped while the channel was not
// accepting them.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}
