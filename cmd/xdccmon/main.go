package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bytekeeper/xdccmon/internal/api"
	"github.com/Bytekeeper/xdccmon/internal/config"
	"github.com/Bytekeeper/xdccmon/internal/log"
	"github.com/Bytekeeper/xdccmon/internal/service"
	"github.com/Bytekeeper/xdccmon/internal/store"
	"github.com/Bytekeeper/xdccmon/internal/stream"
	"github.com/Bytekeeper/xdccmon/internal/tui"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("xdccmon %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting xdccmon", "version", Version, "daemon", cfg.Daemon.URL)

	// Local history store; run without persistence if it can't be opened
	history, err := store.NewHistoryStore(cfg.History.Path)
	if err != nil {
		logger.Warn("history store unavailable, continuing without it", "path", cfg.History.Path, "error", err)
		history, _ = store.NewHistoryStore("")
	}
	defer history.Close()

	// Daemon client and services
	client := api.NewClient(cfg.Daemon.URL, logger)
	transferSvc := service.NewTransferService(client, logger)
	searchSvc := service.NewSearchService(client, history, logger)
	eventLog := service.NewEventLog(cfg.EventLog.Capacity)

	// Live event stream
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := stream.NewSubscriber(cfg.Daemon.URL, logger)
	go subscriber.Run(ctx)

	// Create TUI model
	model := tui.NewModel(
		transferSvc,
		searchSvc,
		eventLog,
		history,
		subscriber.Events(),
		time.Duration(cfg.Poll.IntervalMS)*time.Millisecond,
	)

	// Run the TUI
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
