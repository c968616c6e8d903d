package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/freshplate/supportchat/api"
	"github.com/freshplate/supportchat/identity"
	"github.com/freshplate/supportchat/observability"
	"github.com/freshplate/supportchat/push"
	"github.com/freshplate/supportchat/session"
)

// programRelay forwards session snapshots into the bubbletea loop. The
// program does not exist yet when the controller is constructed, so the
// relay buffers nothing and simply drops snapshots sent before attach.
type programRelay struct {
	mu      sync.Mutex
	program *tea.Program
}

func (r *programRelay) attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

func (r *programRelay) send(snap session.Snapshot) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(snapshotMsg(snap))
	}
}

func main() {
	var (
		configFile = flag.String("config", "", "Path to client config JSON file")
		baseURL    = flag.String("api", "", "Storefront API base URL (overrides config)")
		pushURL    = flag.String("push", "", "Websocket push endpoint (overrides config)")
		customerID = flag.String("customer", "", "Customer id; empty opens a guest session")
		lang       = flag.String("lang", "", "Language hint for outbound messages (overrides config)")
		cachePath  = flag.String("cache", "", "Guest conversation cache file (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to the log file")
		logFile    = flag.String("log", "", "Log file path; empty discards logs")
	)
	flag.Parse()

	cfg := DefaultAppConfig()
	if *configFile != "" {
		loaded, err := LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}
	if *pushURL != "" {
		cfg.PushURL = *pushURL
	}
	if *lang != "" {
		cfg.Session.Lang = *lang
	}
	if *cachePath != "" {
		cfg.Identity.Path = *cachePath
	}
	if cfg.API.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: supportchat -api <url> [-config <file>] [-customer <id>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Stderr belongs to the TUI, so logs go to a file or nowhere.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()

		level := slog.LevelInfo
		if *verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	client, err := api.NewHTTPClient(&cfg.API)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	relay := &programRelay{}
	opts := []session.Option{
		session.WithIdentityCache(identity.New(&cfg.Identity)),
		session.WithObserver(observability.NewSlogObserver(logger)),
		session.WithOnChange(relay.send),
	}

	if cfg.PushURL != "" {
		subscriber, err := push.DialWebSocket(ctx, push.WebSocketConfig{
			URL:    cfg.PushURL,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("push connection failed, continuing without live updates",
				slog.String("url", cfg.PushURL),
				slog.String("error", err.Error()))
		} else {
			defer subscriber.Close()
			opts = append(opts, session.WithSubscriber(subscriber))
		}
	}

	sessionCfg := cfg.Session.SessionConfig()
	ctrl, err := session.New(&sessionCfg, client, opts...)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer ctrl.Close()

	program := tea.NewProgram(
		newChatModel(ctrl, session.Identity{CustomerID: *customerID}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	relay.attach(program)

	if _, err := program.Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}
