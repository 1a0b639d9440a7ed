package playback

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const playbackFrameSize = 2048 // frames per buffer written to the output stream

// PortAudioPlayer renders clips through the default output device.
// Play blocks until the clip has been written out, which is exactly what
// the queue's one-at-a-time contract needs.
type PortAudioPlayer struct {
	mu          sync.Mutex
	initialized bool
}

// NewPortAudioPlayer creates a player. PortAudio is initialized lazily on
// first play and released by Close.
func NewPortAudioPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{}
}

// Play writes the clip to the default output device and returns when done.
func (p *PortAudioPlayer) Play(clip *Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if clip.Channels <= 0 || clip.SampleRate <= 0 {
		return fmt.Errorf("invalid clip: %d channels at %d Hz", clip.Channels, clip.SampleRate)
	}

	if !p.initialized {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize portaudio: %w", err)
		}
		p.initialized = true
	}

	buf := make([]int16, playbackFrameSize*clip.Channels)
	stream, err := portaudio.OpenDefaultStream(0, clip.Channels, float64(clip.SampleRate), playbackFrameSize, buf)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	samples := clip.Samples
	for len(samples) > 0 {
		n := copy(buf, samples)
		samples = samples[n:]
		// Zero-pad the final partial buffer.
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}

	return nil
}

// Close releases the audio subsystem.
func (p *PortAudioPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}
