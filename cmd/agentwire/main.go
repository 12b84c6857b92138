// Command agentwire is a terminal host for the streaming conversation
// session engine: it wires the transport, storage, probe, and event
// publisher together and drives one session from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/avasile/agentwire/internal/config"
	"github.com/avasile/agentwire/internal/domain"
	"github.com/avasile/agentwire/internal/events/direct"
	"github.com/avasile/agentwire/internal/feedback"
	"github.com/avasile/agentwire/internal/ports"
	"github.com/avasile/agentwire/internal/probe"
	"github.com/avasile/agentwire/internal/session"
	"github.com/avasile/agentwire/internal/storage/memory"
	"github.com/avasile/agentwire/internal/storage/sqlite"
	"github.com/avasile/agentwire/internal/telemetry"
	"github.com/avasile/agentwire/internal/tokens"
	"github.com/avasile/agentwire/internal/transport/agenthttp"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	sessionID := flag.String("session", "", "session id to resume (empty starts a new one)")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.Init("agentwire", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open transcript store: %v", err)
	}
	defer store.Close()

	transport, err := agenthttp.New(cfg.Agent.Endpoint, cfg.Agent.APIKey, cfg.Agent.AppID,
		agenthttp.WithMaxRetries(cfg.Agent.MaxRetries),
		agenthttp.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create transport: %v", err)
	}

	publisher := direct.NewPublisher(0)
	defer publisher.Close()

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithStore(store),
		session.WithPublisher(publisher),
		session.WithSystemPrompt(cfg.Agent.SystemPrompt),
		session.WithTurnTimeout(cfg.Session.TurnTimeout),
		session.WithMaxInputLength(cfg.Session.MaxInputLength),
		session.WithTurnOptions(ports.TurnOptions{
			Temperature: cfg.Agent.Temperature,
			MaxTokens:   cfg.Agent.MaxTokens,
		}),
	}
	if !cfg.Agent.Streaming {
		opts = append(opts, session.WithStreaming(false))
	}
	if cfg.Session.TokenBudget > 0 {
		opts = append(opts, session.WithTokenBudget(tokens.NewCounter(), cfg.Session.TokenBudget))
	}
	if cfg.Feedback.Endpoint != "" {
		sink, err := feedback.NewSink(cfg.Feedback.Endpoint, cfg.Agent.APIKey)
		if err != nil {
			log.Fatalf("Failed to create feedback sink: %v", err)
		}
		opts = append(opts, session.WithFeedbackSink(sink))
	}

	ctrl, err := session.New(*sessionID, cfg.Agent.AppID, transport, opts...)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	if err := ctrl.LoadTranscript(context.Background()); err != nil {
		logger.Warn("starting with empty transcript", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Edits to the config file retune the live session without a restart.
	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, logger, func(next *config.Config) {
				ctrl.ApplyTuning(session.Tuning{
					SystemPrompt:   next.Agent.SystemPrompt,
					TurnTimeout:    next.Session.TurnTimeout,
					MaxInputLength: next.Session.MaxInputLength,
					Temperature:    next.Agent.Temperature,
					MaxTokens:      next.Agent.MaxTokens,
				})
			})
			if err != nil {
				logger.Warn("config watch unavailable", slog.String("error", err.Error()))
			}
		}()
	}

	probeURL := cfg.Probe.URL
	if probeURL == "" {
		probeURL = strings.TrimSuffix(cfg.Agent.Endpoint, "/") + "/api/health"
	}
	go probe.New(probeURL,
		probe.WithInterval(cfg.Probe.Interval),
		probe.WithLogger(logger),
	).Run(ctx, ctrl)

	fmt.Printf("session %s ready (agent %s). /cancel aborts a turn, /quit exits.\n", ctrl.ID(), cfg.Agent.AppID)
	repl(ctx, ctrl, publisher)
}

func openStore(cfg *config.Config) (ports.TranscriptStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite", "":
		if err := os.MkdirAll(dirOf(cfg.Storage.SQLite.Path), 0o755); err != nil {
			return nil, err
		}
		return sqlite.New(cfg.Storage.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return "."
	}
	return path[:idx]
}

// repl reads user lines, runs turns, and renders settled assistant
// messages. It waits on the publisher's event stream for each turn to
// reach a terminal state.
func repl(ctx context.Context, ctrl *session.Controller, publisher *direct.Publisher) {
	events, unsubscribe := publisher.Subscribe()
	defer unsubscribe()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return
		case "/cancel":
			ctrl.Cancel(ctx)
			continue
		}

		if err := ctrl.Send(ctx, line); err != nil {
			fmt.Printf("rejected: %v\n", err)
			continue
		}
		waitForTurn(ctx, ctrl, events)
		renderReply(ctx, ctrl, scanner, events)
	}
}

// waitForTurn blocks until the session settles back to idle or offline.
func waitForTurn(ctx context.Context, ctrl *session.Controller, events <-chan *ports.SessionEvent) {
	for {
		status := ctrl.Status()
		if status == domain.SessionIdle || status == domain.SessionOffline {
			return
		}
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}
	}
}

// renderReply prints the newest assistant message and, when it carries an
// unanswered prompt, collects the user's choice and resumes the turn.
func renderReply(ctx context.Context, ctrl *session.Controller, scanner *bufio.Scanner, events <-chan *ports.SessionEvent) {
	msgs := ctrl.Messages()
	var last *domain.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant {
			last = msgs[i]
			break
		}
	}
	if last == nil {
		return
	}
	fmt.Println(last.Content)

	if last.Interactive == nil || last.Interactive.Processed {
		return
	}
	prompt := last.Interactive
	switch prompt.Kind {
	case domain.PromptUserSelect:
		fmt.Println("choose an option:")
		for i, opt := range prompt.Options {
			fmt.Printf("  %d. %s\n", i+1, opt.Value)
		}
		fmt.Print("? ")
		if !scanner.Scan() {
			return
		}
		choice := strings.TrimSpace(scanner.Text())
		for i, opt := range prompt.Options {
			if choice == fmt.Sprintf("%d", i+1) || choice == opt.Value {
				if err := ctrl.ResolveInteraction(ctx, last.ID, opt.Value, opt.Key); err != nil {
					fmt.Printf("rejected: %v\n", err)
					return
				}
				waitForTurn(ctx, ctrl, events)
				renderReply(ctx, ctrl, scanner, events)
				return
			}
		}
		fmt.Println("no such option")
	case domain.PromptUserInput:
		for _, field := range prompt.Fields {
			fmt.Printf("%s: ", field.Label)
		}
		if !scanner.Scan() {
			return
		}
		value := strings.TrimSpace(scanner.Text())
		if value == "" {
			return
		}
		if err := ctrl.ResolveInteraction(ctx, last.ID, value, ""); err != nil {
			fmt.Printf("rejected: %v\n", err)
			return
		}
		waitForTurn(ctx, ctrl, events)
		renderReply(ctx, ctrl, scanner, events)
	}
}
