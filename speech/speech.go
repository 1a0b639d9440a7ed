// Package speech provides a local text-to-speech fallback used when the
// server does not return synthesized audio for a response.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// ErrUnavailable is returned when no speech synthesizer exists on this host.
var ErrUnavailable = errors.New("no speech synthesizer available")

// Synthesizer speaks text out loud. Implementations block until playback
// finishes or ctx is canceled.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Local shells out to the host's speech command. The zero value is usable;
// the command is resolved on first use.
type Local struct {
	path string
	args []string
}

// NewLocal probes the host for a usable speech command.
// Returns ErrUnavailable when none is installed.
func NewLocal() (*Local, error) {
	for _, c := range candidates() {
		path, err := exec.LookPath(c.name)
		if err != nil {
			continue
		}
		slog.Debug("speech synthesizer found", "command", c.name)
		return &Local{path: path, args: c.args}, nil
	}
	return nil, ErrUnavailable
}

type candidate struct {
	name string
	args []string
}

func candidates() []candidate {
	if runtime.GOOS == "darwin" {
		return []candidate{{name: "say"}}
	}
	return []candidate{
		{name: "espeak"},
		{name: "spd-say", args: []string{"--wait"}},
	}
}

// Speak runs the synthesizer and waits for it to finish.
func (l *Local) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	args := append(append([]string(nil), l.args...), text)
	cmd := exec.CommandContext(ctx, l.path, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run speech command: %w", err)
	}
	return nil
}
