// Package app provides the core application service tying capture,
// transport, playback, and chat storage together behind the front end.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxlet/voxlet/agent"
	"github.com/voxlet/voxlet/audiocapture"
	"github.com/voxlet/voxlet/chatstore"
	"github.com/voxlet/voxlet/config"
	"github.com/voxlet/voxlet/playback"
	"github.com/voxlet/voxlet/speech"
)

// agentAPI is the HTTP side of the agent; satisfied by *agent.API.
type agentAPI interface {
	Chat(ctx context.Context, message, chatID string) (*agent.ChatResponse, error)
	Upload(ctx context.Context, path string) (*agent.UploadResult, error)
	Translate(ctx context.Context, text, targetLanguage, persona string) (*agent.TranslationResult, error)
}

// audioSink receives base64 clips for ordered playback; satisfied by
// *playback.Queue.
type audioSink interface {
	Enqueue(payload string)
}

// recorder is one live voice session; satisfied by *agent.Session.
type recorder interface {
	Start(ctx context.Context) error
	Stop() error
	Dropped() int64
}

// Service orchestrates the application: it owns the current transcript,
// routes agent events into it, and persists every change.
// This struct focuses on orchestration; business logic lives in the
// sub-packages.
type Service struct {
	cfg   *config.Config
	store *chatstore.Store
	queue audioSink
	api   agentAPI
	tts   speech.Synthesizer

	// UI callbacks, set via OnTranscript / OnStatus before use.
	onTranscript func([]chatstore.Message)
	onStatus     func(string)

	mu            sync.Mutex
	session       recorder
	chatID        string
	transcript    []chatstore.Message
	assistantOpen bool

	// Factory, replaceable in tests.
	newRecorder func(onEvent func(agent.Event)) recorder
}

// New creates the service and resumes the most recent chat session.
// tts may be nil when no local synthesizer is available.
func New(cfg *config.Config, store *chatstore.Store, queue *playback.Queue, api *agent.API, tts speech.Synthesizer) (*Service, error) {
	s := &Service{
		cfg:   cfg,
		store: store,
		queue: queue,
		api:   api,
		tts:   tts,
	}
	s.newRecorder = func(onEvent func(agent.Event)) recorder {
		return agent.NewSession(cfg.ServerURL, audiocapture.Config{
			SampleRate: cfg.SampleRate,
			FrameSize:  cfg.FrameSize,
		}, onEvent)
	}

	sess, err := store.Resume()
	if err != nil {
		return nil, err
	}
	s.chatID = sess.ID
	s.transcript = sess.Messages

	return s, nil
}

// OnTranscript registers the callback invoked with a copy of the transcript
// after every change.
func (s *Service) OnTranscript(fn func([]chatstore.Message)) {
	s.onTranscript = fn
}

// OnStatus registers the callback for short status lines.
func (s *Service) OnStatus(fn func(string)) {
	s.onStatus = fn
}

// ChatID returns the id of the chat currently on screen.
func (s *Service) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// Transcript returns a copy of the current transcript.
func (s *Service) Transcript() []chatstore.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chatstore.Message(nil), s.transcript...)
}

// Close stops any live recording. The store and playback device are owned
// by the caller.
func (s *Service) Close() {
	s.StopRecording()
}

func (s *Service) setStatus(text string) {
	if s.onStatus != nil {
		s.onStatus(text)
	}
}

// publishTranscript pushes the current transcript to the UI. Call without
// the lock held.
func (s *Service) publishTranscript() {
	if s.onTranscript == nil {
		return
	}
	s.onTranscript(s.Transcript())
}

// appendAndSave appends one message, persists the transcript, and notifies
// the UI. A user message closes any in-progress assistant turn.
func (s *Service) appendAndSave(m chatstore.Message) {
	s.mu.Lock()
	s.transcript = append(s.transcript, m)
	if m.Role == chatstore.RoleUser {
		s.assistantOpen = false
	}
	s.saveLocked()
	s.mu.Unlock()

	s.publishTranscript()
}

// saveLocked persists the transcript; must be called with s.mu held.
// A failed save is logged, not surfaced: the on-screen transcript stays
// authoritative and the next change retries.
func (s *Service) saveLocked() {
	if err := s.store.Save(s.chatID, s.transcript); err != nil {
		slog.Error("save chat session", "chat_id", s.chatID, "error", err)
	}
}
