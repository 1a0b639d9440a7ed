package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/voxlet/voxlet/agent"
	"github.com/voxlet/voxlet/chatstore"
)

// UploadFile sends a document for analysis and appends the analysis to the
// current chat. Files with an unsupported extension are rejected before any
// network call.
func (s *Service) UploadFile(ctx context.Context, path string) error {
	s.setStatus("Uploading and analyzing...")

	res, err := s.api.Upload(ctx, path)
	if err != nil {
		if errors.Is(err, agent.ErrUnsupportedFileType) {
			s.setStatus("Please upload CSV, PDF, or Excel files only")
		} else {
			slog.Warn("upload failed", "path", path, "error", err)
			s.setStatus("Upload failed")
		}
		return err
	}

	s.setStatus(res.Filename + " analyzed successfully")
	s.appendAndSave(chatstore.Message{Role: chatstore.RoleAssistant, Text: uploadSummary(res)})

	// Speak the insights without blocking the caller; local synthesis is
	// best effort.
	if res.AIInsights != "" && s.tts != nil {
		go func() {
			if err := s.tts.Speak(context.Background(), res.AIInsights); err != nil {
				slog.Debug("local speech unavailable", "error", err)
			}
		}()
	}
	return nil
}

func uploadSummary(res *agent.UploadResult) string {
	shape := "processed"
	if len(res.Shape) == 2 {
		shape = fmt.Sprintf("%d rows, %d columns", res.Shape[0], res.Shape[1])
	}
	return fmt.Sprintf("Analysis complete: %s (%s, %s)\n\n%s", res.Filename, res.FileType, shape, res.AIInsights)
}
