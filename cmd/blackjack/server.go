package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/server"
)

// ServerCmd runs the websocket server
type ServerCmd struct {
	Config      string `short:"c" default:"blackjack-server.hcl" help:"Path to HCL configuration file"`
	Addr        string `short:"a" help:"Address to bind to (overrides config)"`
	Port        int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
	LogFormat   string `help:"Log format: text or json (overrides config)"`
	DealerDelay string `help:"Pause between dealer draws, e.g. 500ms (overrides config)"`
	MaxPlayers  *int   `help:"Maximum seats per game, 0 for unlimited (overrides config)"`
	Seed        *int64 `help:"Deterministic shuffle seed (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply command line overrides
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Server.LogFormat = c.LogFormat
	}
	if c.DealerDelay != "" {
		cfg.Game.DealerDelay = c.DealerDelay
	}
	if c.MaxPlayers != nil {
		cfg.Game.MaxPlayers = *c.MaxPlayers
	}
	if c.Seed != nil {
		cfg.Game.Seed = *c.Seed
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.NewLogger()
	opts := cfg.ServiceOptions()

	logger.Info("Starting blackjack server",
		"addr", cfg.GetServerAddress(),
		"dealer_delay", opts.DealerDelay,
		"max_players", opts.MaxPlayers,
		"seed", opts.Seed)

	wsServer := server.NewServer(logger)
	gameService := server.NewGameService(wsServer, logger, quartz.NewReal(), opts)
	wsServer.SetGameService(gameService)
	defer gameService.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := wsServer.Run(ctx, cfg.GetServerAddress()); err != nil {
		logger.Error("Server failed", "error", err)
		return err
	}

	logger.Info("Server stopped")
	return nil
}
