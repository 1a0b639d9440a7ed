package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/voxlet/voxlet/agent"
	"github.com/voxlet/voxlet/audiocapture"
	"github.com/voxlet/voxlet/chatstore"
)

// StartRecording opens a voice session against the agent. Only one session
// can be live at a time.
func (s *Service) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return agent.ErrAlreadyRecording
	}
	rec := s.newRecorder(s.handleAgentEvent)
	s.session = rec
	s.mu.Unlock()

	if err := rec.Start(ctx); err != nil {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()

		switch {
		case errors.Is(err, audiocapture.ErrPermissionDenied):
			s.setStatus("Microphone access is required to use the voice agent.")
		case errors.Is(err, audiocapture.ErrNoDevice):
			s.setStatus("No microphone input device was found.")
		}
		return err
	}

	s.setStatus("Listening...")
	return nil
}

// StopRecording ends the voice session, if any. Safe to call when idle.
func (s *Service) StopRecording() {
	s.mu.Lock()
	rec := s.session
	s.session = nil
	s.mu.Unlock()

	if rec == nil {
		return
	}
	if err := rec.Stop(); err != nil {
		slog.Error("stop recording session", "error", err)
	}
	if n := rec.Dropped(); n > 0 {
		slog.Debug("frames dropped during session", "frames", n)
	}
	s.setStatus("Ready to chat!")
}

// Recording reports whether a voice session is live.
func (s *Service) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// ToggleRecording flips the session on or off, like the mic button.
func (s *Service) ToggleRecording(ctx context.Context) error {
	if s.Recording() {
		s.StopRecording()
		return nil
	}
	return s.StartRecording(ctx)
}

// handleAgentEvent routes one inbound voice-channel event. Invocations never
// overlap; the session delivers them one at a time.
//
// A streamed assistant event overwrites the in-progress assistant message
// until a user turn arrives; after that the next assistant event starts a
// fresh message.
func (s *Service) handleAgentEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventAssistant:
		s.mu.Lock()
		last := len(s.transcript) - 1
		if s.assistantOpen && last >= 0 && s.transcript[last].Role == chatstore.RoleAssistant {
			s.transcript[last].Text = ev.Text
		} else {
			s.transcript = append(s.transcript, chatstore.Message{Role: chatstore.RoleAssistant, Text: ev.Text})
			s.assistantOpen = true
		}
		s.saveLocked()
		s.mu.Unlock()
		s.publishTranscript()

	case agent.EventFinal:
		s.appendAndSave(chatstore.Message{Role: chatstore.RoleUser, Text: ev.Text})

	case agent.EventAudio:
		s.queue.Enqueue(ev.B64)

	default:
		slog.Warn("unknown agent event type", "type", ev.Type)
	}
}
