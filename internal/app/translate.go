package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/voxlet/voxlet/chatstore"
)

var titleCaser = cases.Title(language.English)

// Translate asks the agent for a persona-voiced translation, appends the
// result to the current chat, and queues the generated audio. Empty target
// language and persona fall back to the configured defaults.
func (s *Service) Translate(ctx context.Context, text, targetLanguage, persona string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		s.setStatus("Please enter some text to translate")
		return nil
	}
	if targetLanguage == "" {
		targetLanguage = s.cfg.TargetLanguage
	}
	if persona == "" {
		persona = s.cfg.Persona
	}

	s.setStatus(fmt.Sprintf("Translating to %s with %s voice...", targetLanguage, persona))

	res, err := s.api.Translate(ctx, text, targetLanguage, persona)
	if err != nil {
		slog.Warn("translation failed", "language", targetLanguage, "error", err)
		s.setStatus("Translation failed")
		return err
	}

	s.appendAndSave(chatstore.Message{
		Role: chatstore.RoleAssistant,
		Text: translationSummary(res.OriginalText, res.TranslatedText, targetLanguage, persona),
	})

	if res.Audio != "" {
		s.queue.Enqueue(res.Audio)
		s.setStatus(fmt.Sprintf("Playing %s voice in %s", persona, targetLanguage))
	}
	return nil
}

func translationSummary(original, translated, targetLanguage, persona string) string {
	return fmt.Sprintf("Translation complete\nOriginal: %q\n%s: %q\nVoice: %s persona",
		original, titleCaser.String(targetLanguage), translated, persona)
}
