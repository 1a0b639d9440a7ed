package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/voxlet/voxlet/agent"
	"github.com/voxlet/voxlet/chatstore"
)

const (
	chatProcessingError = "Sorry, I encountered an error processing your message. Please check if API keys are configured."
	chatConnectError    = "Sorry, I couldn't connect to the server. Please check if the server is running and API keys are configured."
)

// SendText sends one typed message for the current chat and appends the
// assistant's reply. Failures surface as a canned assistant message, so the
// transcript always records that the turn happened.
func (s *Service) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.appendAndSave(chatstore.Message{Role: chatstore.RoleUser, Text: text})

	resp, err := s.api.Chat(ctx, text, s.ChatID())
	if err != nil {
		slog.Warn("chat request failed", "error", err)
		s.appendAndSave(chatstore.Message{Role: chatstore.RoleAssistant, Text: chatMessageFor(err)})
		return err
	}

	s.appendAndSave(chatstore.Message{Role: chatstore.RoleAssistant, Text: resp.Response})
	if resp.Audio != "" {
		s.queue.Enqueue(resp.Audio)
	}
	return nil
}

// chatMessageFor distinguishes the agent rejecting a turn from the request
// never getting through.
func chatMessageFor(err error) string {
	if errors.Is(err, agent.ErrRequestFailed) {
		return chatProcessingError
	}
	return chatConnectError
}

// NewChat starts a fresh chat session and switches to it.
func (s *Service) NewChat() error {
	sess, err := s.store.Create()
	if err != nil {
		return err
	}
	s.adopt(sess)
	return nil
}

// LoadChat switches to a stored chat session.
func (s *Service) LoadChat(id string) error {
	sess, err := s.store.Load(id)
	if err != nil {
		return err
	}
	s.adopt(sess)
	return nil
}

// DeleteChat removes a chat session. Deleting the one on screen switches to
// its replacement.
func (s *Service) DeleteChat(id string) error {
	replacement, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	if replacement != nil {
		s.adopt(replacement)
	}
	return nil
}

// ListChats returns all stored sessions, most recent first.
func (s *Service) ListChats() []*chatstore.Session {
	return s.store.List()
}

// adopt makes the given session the one on screen.
func (s *Service) adopt(sess *chatstore.Session) {
	s.mu.Lock()
	s.chatID = sess.ID
	s.transcript = sess.Messages
	s.assistantOpen = false
	s.mu.Unlock()

	s.publishTranscript()
}
