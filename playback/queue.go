// Package playback serializes decoding and playing of synthesized speech
// chunks so they are always heard in arrival order, never overlapping.
package playback

import (
	"encoding/base64"
	"log/slog"
	"sync"
)

// Clip is decoded PCM audio ready for output.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Decoder turns one opaque chunk payload into a playable clip.
type Decoder interface {
	Decode(data []byte) (*Clip, error)
}

// Player plays one decoded clip to completion.
type Player interface {
	Play(clip *Clip) error
}

// Queue holds pending audio chunks and drains them strictly FIFO, one
// decode+play operation at a time. A chunk that fails to decode is logged
// and skipped; it never blocks the queue and never drops later chunks.
type Queue struct {
	decoder Decoder
	player  Player

	mu      sync.Mutex
	cond    *sync.Cond
	pending []string // base64 payloads, arrival order
	playing bool
}

// NewQueue creates a playback queue draining through the given decoder and
// player.
func NewQueue(decoder Decoder, player Player) *Queue {
	q := &Queue{
		decoder: decoder,
		player:  player,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends one base64-encoded chunk to the tail. If the queue is
// idle it starts draining; if a drain is already running the chunk only
// waits its turn, a second drain is never started.
func (q *Queue) Enqueue(b64 string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, b64)
	if !q.playing {
		q.playing = true
		go q.drain()
	}
}

// drain is the work loop: pop, decode, play, repeat until the queue is
// empty. An explicit loop, so arbitrarily long chunk sequences never grow
// the stack.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.playing = false
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}
		head := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.playOne(head)
	}
}

// playOne decodes and plays a single chunk. Failures are logged and
// swallowed so the drain advances to the next chunk.
func (q *Queue) playOne(b64 string) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		slog.Warn("skipping undecodable audio chunk", "error", err)
		return
	}

	clip, err := q.decoder.Decode(data)
	if err != nil {
		slog.Warn("skipping undecodable audio chunk", "error", err)
		return
	}

	if err := q.player.Play(clip); err != nil {
		slog.Warn("audio playback failed", "error", err)
	}
}

// Idle reports whether the queue is empty and nothing is playing.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.playing && len(q.pending) == 0
}

// Wait blocks until the queue has fully drained.
func (q *Queue) Wait() {
	q.mu.Lock()
	for q.playing || len(q.pending) > 0 {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// Len returns the number of chunks still waiting, excluding the one
// currently being processed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
