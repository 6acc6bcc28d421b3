package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/tui"
)

// ClientCmd connects an interactive terminal client
type ClientCmd struct {
	Config   string `short:"c" default:"blackjack-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Player   string `short:"p" help:"Player name (overrides config)"`
	Join     string `short:"j" help:"Game id to join on connect"`
	Create   string `help:"Create a game with this name on connect"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
	NoColor  bool   `help:"Disable colour output"`
}

func (c *ClientCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply command line overrides
	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Player != "" {
		cfg.Player.Name = c.Player
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}
	if c.NoColor {
		cfg.UI.NoColor = true
	}

	// Get player name if not set
	if cfg.Player.Name == "" {
		fmt.Print("Enter your player name: ")
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		cfg.Player.Name = strings.TrimSpace(input)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Log to a file so the TUI owns the terminal
	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	logger := cfg.NewLogger(logFile)
	logger.Info("Starting blackjack client",
		"server", cfg.Server.URL,
		"player", cfg.Player.Name,
		"config", c.Config)

	tui.SetColor(!cfg.UI.NoColor)

	wsClient := client.NewClient(cfg.Server.URL, logger)

	connectCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ConnectTimeout)*time.Second)
	defer cancel()
	if err := server.WaitForHealthy(connectCtx, cfg.Server.URL); err != nil {
		return err
	}
	if err := wsClient.Connect(connectCtx); err != nil {
		return err
	}
	defer func() { _ = wsClient.Disconnect() }()

	model := tui.NewTUIModel(wsClient, cfg.Player.Name, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())

	detach := tui.Attach(wsClient, program.Send)
	defer detach()

	switch {
	case c.Join != "":
		err = wsClient.JoinGame(c.Join, cfg.Player.Name)
	case c.Create != "":
		err = wsClient.CreateGame(cfg.Player.Name, c.Create)
	default:
		err = wsClient.ListGames()
	}
	if err != nil {
		return err
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}

	logger.Info("Client exiting")
	return nil
}
