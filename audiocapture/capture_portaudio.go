package audiocapture

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// portaudioImpl drives the default input device through PortAudio.
// Frames are read synchronously in a dedicated goroutine so the handler
// always receives exactly frameSize samples per callback.
type portaudioImpl struct {
	stream *portaudio.Stream
	buffer []float32
	done   chan struct{}
}

func newCaptureImpl() (captureImpl, error) {
	return &portaudioImpl{}, nil
}

func (p *portaudioImpl) start(sampleRate, frameSize int, handler FrameHandler) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	p.buffer = make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, p.buffer)
	if err != nil {
		_ = portaudio.Terminate()
		return classifyOpenError(err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start input stream: %w", err)
	}

	p.stream = stream
	p.done = make(chan struct{})
	go p.readLoop(handler)
	return nil
}

func (p *portaudioImpl) readLoop(handler FrameHandler) {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		if err := p.stream.Read(); err != nil {
			// Device went away mid-capture; stop emitting frames.
			return
		}

		frame := make([]float32, len(p.buffer))
		copy(frame, p.buffer)
		handler(frame)
	}
}

func (p *portaudioImpl) stop() error {
	if p.stream == nil {
		return nil
	}

	close(p.done)

	err := p.stream.Stop()
	if closeErr := p.stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}

	p.stream = nil
	return err
}

// classifyOpenError maps PortAudio open failures onto the package's sentinel
// errors. PortAudio surfaces these conditions only as message text.
func classifyOpenError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
	case strings.Contains(msg, "no default input") || strings.Contains(msg, "device unavailable") ||
		strings.Contains(msg, "invalid device"):
		return fmt.Errorf("%w: %s", ErrNoDevice, err)
	}
	return fmt.Errorf("open input stream: %w", err)
}
