// Package config loads the server's HCL configuration file: listen
// address, logging, the account-store DSN, starting wallet, and the set
// of lobbies to pre-create at startup.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-lobby/internal/lobby"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Lobby  []LobbyConfig  `hcl:"lobby,block"`
}

// ServerSettings is the top-level `server` block.
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	Port           int    `hcl:"port,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	LogFile        string `hcl:"log_file,optional"`
	DatabasePath   string `hcl:"database_path,optional"`
	StartingWallet int    `hcl:"starting_wallet,optional"`
}

// LobbyConfig is one `lobby "name" { variant = "..." }` block pre-created
// at startup so clients have somewhere to sit without first issuing
// CreateLobby.
type LobbyConfig struct {
	Name    string `hcl:"name,label"`
	Variant string `hcl:"variant"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:        "localhost",
			Port:           8080,
			LogLevel:       "info",
			DatabasePath:   "holdem-lobby.db",
			StartingWallet: lobby.InitialWallet,
		},
	}
}

// Load reads and decodes filename, falling back to Default if it doesn't
// exist, and fills in any zero-valued fields from Default.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}

	def := Default()
	if cfg.Server.Address == "" {
		cfg.Server.Address = def.Server.Address
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Server.DatabasePath == "" {
		cfg.Server.DatabasePath = def.Server.DatabasePath
	}
	if cfg.Server.StartingWallet == 0 {
		cfg.Server.StartingWallet = def.Server.StartingWallet
	}
	return &cfg, nil
}

// Validate rejects a configuration that would fail at startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Server.StartingWallet <= 0 {
		return fmt.Errorf("config: starting_wallet must be positive")
	}
	seen := make(map[string]bool, len(c.Lobby))
	for _, l := range c.Lobby {
		if seen[l.Name] {
			return fmt.Errorf("config: duplicate lobby name %q", l.Name)
		}
		seen[l.Name] = true
		if ParseVariant(l.Variant) == lobby.NotSet {
			return fmt.Errorf("config: lobby %q: unknown variant %q", l.Name, l.Variant)
		}
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// ParseVariant maps a config/wire variant name to lobby.Variant.
func ParseVariant(name string) lobby.Variant {
	switch name {
	case "FIVE_CARD_DRAW":
		return lobby.FiveCardDraw
	case "SEVEN_CARD_STUD":
		return lobby.SevenCardStud
	case "TEXAS_HOLD_EM":
		return lobby.TexasHoldEm
	default:
		return lobby.NotSet
	}
}
