package client

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ClientConfig represents the complete client configuration
type ClientConfig struct {
	Server ServerConnection
	Player PlayerSettings
	UI     UISettings
}

// clientConfigFile mirrors the HCL layout; every block is optional.
type clientConfigFile struct {
	Server *ServerConnection `hcl:"server,block"`
	Player *PlayerSettings   `hcl:"player,block"`
	UI     *UISettings       `hcl:"ui,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	ConnectTimeout int    `hcl:"connect_timeout,optional"`
}

// PlayerSettings contains player-specific settings
type PlayerSettings struct {
	Name string `hcl:"name,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	NoColor  bool   `hcl:"no_color,optional"`
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Server: ServerConnection{
			URL:            "http://localhost:8080",
			ConnectTimeout: 10,
		},
		UI: UISettings{
			LogLevel: "warn",
			LogFile:  "blackjack-client.log",
		},
	}
}

// LoadClientConfig loads client configuration from HCL file
func LoadClientConfig(filename string) (*ClientConfig, error) {
	config := DefaultClientConfig()

	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return config, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw clientConfigFile
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply file values over defaults
	if s := raw.Server; s != nil {
		if s.URL != "" {
			config.Server.URL = s.URL
		}
		if s.ConnectTimeout != 0 {
			config.Server.ConnectTimeout = s.ConnectTimeout
		}
	}
	if p := raw.Player; p != nil {
		config.Player.Name = p.Name
	}
	if ui := raw.UI; ui != nil {
		if ui.LogLevel != "" {
			config.UI.LogLevel = ui.LogLevel
		}
		if ui.LogFile != "" {
			config.UI.LogFile = ui.LogFile
		}
		config.UI.NoColor = ui.NoColor
	}

	return config, nil
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if _, err := WebSocketURL(c.Server.URL); err != nil {
		return err
	}

	if c.Player.Name == "" {
		return fmt.Errorf("player name is required")
	}

	if c.Server.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}

	if _, err := log.ParseLevel(c.UI.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}

	return nil
}

// NewLogger builds a logger writing to w at the configured level
func (c *ClientConfig) NewLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{ReportTimestamp: true})

	level, err := log.ParseLevel(c.UI.LogLevel)
	if err != nil {
		level = log.WarnLevel // Default to warn to reduce noise
	}
	logger.SetLevel(level)
	return logger
}
