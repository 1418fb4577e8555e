package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/maoserver/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Games  []GameConfig   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameConfig defines a session created at boot
type GameConfig struct {
	Name               string `hcl:"name,label"`
	Password           string `hcl:"password,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
	ForfeitThreshold   int    `hcl:"forfeit_threshold,optional"`
}

// GameConfigToEngine converts a config block to engine session rules
func (gc GameConfig) GameConfigToEngine() game.Config {
	return game.Config{
		Name:             gc.Name,
		Password:         gc.Password,
		TurnTimeout:      time.Duration(gc.TurnTimeoutSeconds) * time.Second,
		ForfeitThreshold: gc.ForfeitThreshold,
	}
}

// DefaultServerConfig returns default server configuration: one open
// game with the baseline rules.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Games: []GameConfig{
			{
				Name:               "main",
				TurnTimeoutSeconds: 20,
				ForfeitThreshold:   2,
			},
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A
// missing file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	for i := range config.Games {
		if config.Games[i].TurnTimeoutSeconds == 0 {
			config.Games[i].TurnTimeoutSeconds = 20
		}
		if config.Games[i].ForfeitThreshold == 0 {
			config.Games[i].ForfeitThreshold = 2
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	seen := make(map[string]bool)
	for _, g := range c.Games {
		if g.Name == "" {
			return fmt.Errorf("game blocks require a name label")
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate game name %q", g.Name)
		}
		seen[g.Name] = true
		if g.TurnTimeoutSeconds < 1 {
			return fmt.Errorf("game %s: turn timeout must be positive", g.Name)
		}
		if g.ForfeitThreshold < 1 {
			return fmt.Errorf("game %s: forfeit threshold must be positive", g.Name)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
