package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings
	Game   GameSettings
}

// serverConfigFile mirrors the HCL layout; both blocks are optional.
type serverConfigFile struct {
	Server *ServerSettings `hcl:"server,block"`
	Game   *GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"`
}

// GameSettings configures every room the server creates
type GameSettings struct {
	DealerDelay string `hcl:"dealer_delay,optional"`
	MaxPlayers  int    `hcl:"max_players,optional"`
	Seed        int64  `hcl:"seed,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:   "localhost",
			Port:      8080,
			LogLevel:  "info",
			LogFormat: "text",
		},
		Game: GameSettings{
			DealerDelay: "1s",
		},
	}
}

// LoadServerConfig loads server configuration from HCL file. A missing file
// yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	config := DefaultServerConfig()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return config, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw serverConfigFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply file values over defaults
	if s := raw.Server; s != nil {
		if s.Address != "" {
			config.Server.Address = s.Address
		}
		if s.Port != 0 {
			config.Server.Port = s.Port
		}
		if s.LogLevel != "" {
			config.Server.LogLevel = s.LogLevel
		}
		if s.LogFormat != "" {
			config.Server.LogFormat = s.LogFormat
		}
	}
	if g := raw.Game; g != nil {
		if g.DealerDelay != "" {
			config.Game.DealerDelay = g.DealerDelay
		}
		config.Game.MaxPlayers = g.MaxPlayers
		config.Game.Seed = g.Seed
	}

	return config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}

	switch c.Server.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Server.LogFormat)
	}

	if _, err := c.Game.Delay(); err != nil {
		return err
	}

	if c.Game.MaxPlayers < 0 {
		return fmt.Errorf("max players must not be negative: %d", c.Game.MaxPlayers)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Delay parses the configured dealer delay.
func (g GameSettings) Delay() (time.Duration, error) {
	if g.DealerDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.DealerDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid dealer delay %q: %w", g.DealerDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("dealer delay must not be negative: %s", d)
	}
	return d, nil
}

// ServiceOptions converts the game block into GameService options. The
// config must have been validated.
func (c *ServerConfig) ServiceOptions() ServiceOptions {
	delay, _ := c.Game.Delay()
	return ServiceOptions{
		DealerDelay: delay,
		MaxPlayers:  c.Game.MaxPlayers,
		Seed:        c.Game.Seed,
	}
}

// NewLogger builds the root logger described by the server block.
func (c *ServerConfig) NewLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	level, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if c.Server.LogFormat == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}
