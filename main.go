package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/voxlet/voxlet/agent"
	"github.com/voxlet/voxlet/chatstore"
	"github.com/voxlet/voxlet/config"
	"github.com/voxlet/voxlet/internal/app"
	"github.com/voxlet/voxlet/playback"
	"github.com/voxlet/voxlet/speech"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("VOXLET_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	slog.Info("voxlet starting", "version", version, "commit", commit, "built", date)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	storePath, err := cfg.StorePath()
	if err != nil {
		return fmt.Errorf("resolve store path: %w", err)
	}
	store, err := chatstore.Open(storePath)
	if err != nil {
		return fmt.Errorf("open chat store: %w", err)
	}
	defer store.Close()

	player := playback.NewPortAudioPlayer()
	defer player.Close()
	queue := playback.NewQueue(playback.WAVDecoder{}, player)

	api := agent.NewAPI(cfg.ServerURL)

	var synth speech.Synthesizer
	if local, err := speech.NewLocal(); err == nil {
		synth = local
	} else {
		slog.Debug("local speech disabled", "reason", err)
	}

	svc, err := app.New(cfg, store, queue, api, synth)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	defer svc.Close()

	svc.OnStatus(func(text string) {
		fmt.Println("·", text)
	})
	svc.OnTranscript(func(messages []chatstore.Message) {
		if len(messages) == 0 {
			return
		}
		printMessage(messages[len(messages)-1])
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, m := range svc.Transcript() {
		printMessage(m)
	}
	fmt.Println("· Ready to chat! Type a message, or /help for commands.")

	return repl(ctx, svc, cfg)
}

func repl(ctx context.Context, svc *app.Service, cfg *config.Config) error {
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := dispatch(ctx, svc, cfg, line)
			if err != nil {
				slog.Error("command failed", "error", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func dispatch(ctx context.Context, svc *app.Service, cfg *config.Config, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, svc.SendText(ctx, line)
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		printHelp()
		return false, nil

	case "/rec":
		return false, svc.ToggleRecording(ctx)

	case "/new":
		return false, svc.NewChat()

	case "/list":
		for _, sess := range svc.ListChats() {
			marker := " "
			if sess.ID == svc.ChatID() {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  (%s)\n", marker, sess.ID, sess.Title, sess.Timestamp.Format("1/2/2006 3:04 PM"))
		}
		return false, nil

	case "/open":
		if rest == "" {
			return false, fmt.Errorf("usage: /open <chat-id>")
		}
		return false, svc.LoadChat(rest)

	case "/delete":
		if rest == "" {
			return false, fmt.Errorf("usage: /delete <chat-id>")
		}
		return false, svc.DeleteChat(rest)

	case "/upload":
		if rest == "" {
			return false, fmt.Errorf("usage: /upload <file>")
		}
		return false, svc.UploadFile(ctx, rest)

	case "/translate":
		lang, text, _ := strings.Cut(rest, " ")
		if lang == "" || strings.TrimSpace(text) == "" {
			return false, fmt.Errorf("usage: /translate <language> <text>")
		}
		return false, svc.Translate(ctx, strings.TrimSpace(text), lang, cfg.Persona)

	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
}

func printMessage(m chatstore.Message) {
	prefix := "you"
	if m.Role == chatstore.RoleAssistant {
		prefix = "agent"
	}
	fmt.Printf("[%s] %s\n", prefix, m.Text)
}

func printHelp() {
	fmt.Print(`commands:
  /rec                      start or stop voice recording
  /new                      start a new chat
  /list                     list chat sessions
  /open <chat-id>           switch to a chat
  /delete <chat-id>         delete a chat
  /upload <file>            upload a CSV, PDF, or Excel file for analysis
  /translate <lang> <text>  translate text with the configured persona voice
  /quit                     exit
anything else is sent as a chat message
`)
}
