package audiocapture

import (
	"math"
	"sync"
	"time"
)

// DefaultSpeechThreshold is an RMS level that separates speech from room
// noise for typical microphones.
const DefaultSpeechThreshold = 0.01

// DefaultSpeechHold is how long the meter keeps reporting speech after the
// level drops, bridging the short gaps between words.
const DefaultSpeechHold = 500 * time.Millisecond

// Meter tracks the input level of a capture stream and derives a speaking
// flag with hysteresis: the flag rises as soon as a frame crosses the
// threshold and falls only after the level has stayed below it for the hold
// duration.
type Meter struct {
	threshold float32
	hold      time.Duration

	mu        sync.Mutex
	level     float32
	speaking  bool
	lastAbove time.Time

	now func() time.Time
}

// NewMeter creates a meter. Zero threshold or hold select the defaults.
func NewMeter(threshold float32, hold time.Duration) *Meter {
	if threshold <= 0 {
		threshold = DefaultSpeechThreshold
	}
	if hold <= 0 {
		hold = DefaultSpeechHold
	}
	return &Meter{threshold: threshold, hold: hold, now: time.Now}
}

// Observe feeds one frame of samples and reports whether the stream
// currently counts as speech.
func (m *Meter) Observe(samples []float32) bool {
	level := rms(samples)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.level = level
	now := m.now()

	if level > m.threshold {
		m.speaking = true
		m.lastAbove = now
	} else if m.speaking && now.Sub(m.lastAbove) > m.hold {
		m.speaking = false
	}
	return m.speaking
}

// Level returns the RMS level of the most recent frame.
func (m *Meter) Level() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Speaking reports the current speech flag.
func (m *Meter) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// Reset clears the meter, e.g. when a new capture starts.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = 0
	m.speaking = false
	m.lastAbove = time.Time{}
}

func rms(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
