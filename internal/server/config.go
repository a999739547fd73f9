package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/lox/crashgame/internal/broadcast"
	"github.com/lox/crashgame/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server    ServerSettings    `yaml:"server"`
	Game      GameSettings      `yaml:"game"`
	Broadcast BroadcastSettings `yaml:"broadcast"`
}

// ServerSettings contains listener and logging configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional" yaml:"address"`
	Port     int    `hcl:"port,optional" yaml:"port"`
	LogLevel string `hcl:"log_level,optional" yaml:"log_level"`
	LogFile  string `hcl:"log_file,optional" yaml:"log_file"`
}

// GameSettings controls the round clock and the multiplier curve
type GameSettings struct {
	TickIntervalMs  int     `hcl:"tick_interval_ms,optional" yaml:"tick_interval_ms"`
	RoundPauseMs    int     `hcl:"round_pause_ms,optional" yaml:"round_pause_ms"`
	StartMultiplier float64 `hcl:"start_multiplier,optional" yaml:"start_multiplier"`
	Step            float64 `hcl:"step,optional" yaml:"step"`
	MinCrash        float64 `hcl:"min_crash,optional" yaml:"min_crash"`
	MaxCrash        float64 `hcl:"max_crash,optional" yaml:"max_crash"`
	Seed            int64   `hcl:"seed,optional" yaml:"seed"` // 0 draws a random seed
	OpeningBalance  float64 `hcl:"opening_balance,optional" yaml:"opening_balance"`
	InboxSize       int     `hcl:"inbox_size,optional" yaml:"inbox_size"`
}

// BroadcastSettings controls spectator fan-out buffering
type BroadcastSettings struct {
	Inbox     int `hcl:"inbox,optional" yaml:"inbox"`
	Buffer    int `hcl:"buffer,optional" yaml:"buffer"`
	MaxMisses int `hcl:"max_misses,optional" yaml:"max_misses"`
}

// hclConfig mirrors Config with optional blocks
type hclConfig struct {
	Server    *ServerSettings    `hcl:"server,block"`
	Game      *GameSettings      `hcl:"game,block"`
	Broadcast *BroadcastSettings `hcl:"broadcast,block"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	gameDefaults := game.DefaultConfig()
	bcast := broadcast.DefaultOptions()

	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8000,
			LogLevel: "info",
		},
		Game: GameSettings{
			TickIntervalMs:  int(gameDefaults.TickInterval / time.Millisecond),
			RoundPauseMs:    int(gameDefaults.RoundPause / time.Millisecond),
			StartMultiplier: gameDefaults.Engine.Start.InexactFloat64(),
			Step:            gameDefaults.Engine.Step.InexactFloat64(),
			MinCrash:        gameDefaults.Engine.MinCrash.InexactFloat64(),
			MaxCrash:        gameDefaults.Engine.MaxCrash.InexactFloat64(),
			InboxSize:       gameDefaults.InboxSize,
		},
		Broadcast: BroadcastSettings{
			Inbox:     bcast.Inbox,
			Buffer:    bcast.Buffer,
			MaxMisses: bcast.MaxMisses,
		},
	}
}

// LoadConfig loads configuration from an HCL or YAML file, chosen by
// extension. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	var (
		config *Config
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".hcl":
		config, err = loadHCL(filename)
	case ".yaml", ".yml":
		config, err = loadYAML(filename)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	config.applyDefaults()
	return config, nil
}

func loadHCL(filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var config Config
	if raw.Server != nil {
		config.Server = *raw.Server
	}
	if raw.Game != nil {
		config.Game = *raw.Game
	}
	if raw.Broadcast != nil {
		config.Broadcast = *raw.Broadcast
	}
	return &config, nil
}

func loadYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return &config, nil
}

// EncodeConfig renders cfg in the format LoadConfig reads for filename's
// extension
func EncodeConfig(cfg *Config, filename string) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".hcl":
		f := hclwrite.NewEmptyFile()
		gohcl.EncodeIntoBody(&hclConfig{
			Server:    &cfg.Server,
			Game:      &cfg.Game,
			Broadcast: &cfg.Broadcast,
		}, f.Body())
		return f.Bytes(), nil
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
}

// applyDefaults fills every zero field from DefaultConfig
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}

	if c.Game.TickIntervalMs == 0 {
		c.Game.TickIntervalMs = def.Game.TickIntervalMs
	}
	if c.Game.RoundPauseMs == 0 {
		c.Game.RoundPauseMs = def.Game.RoundPauseMs
	}
	if c.Game.StartMultiplier == 0 {
		c.Game.StartMultiplier = def.Game.StartMultiplier
	}
	if c.Game.Step == 0 {
		c.Game.Step = def.Game.Step
	}
	if c.Game.MinCrash == 0 {
		c.Game.MinCrash = def.Game.MinCrash
	}
	if c.Game.MaxCrash == 0 {
		c.Game.MaxCrash = def.Game.MaxCrash
	}
	if c.Game.InboxSize == 0 {
		c.Game.InboxSize = def.Game.InboxSize
	}

	if c.Broadcast.Inbox == 0 {
		c.Broadcast.Inbox = def.Broadcast.Inbox
	}
	if c.Broadcast.Buffer == 0 {
		c.Broadcast.Buffer = def.Broadcast.Buffer
	}
	if c.Broadcast.MaxMisses == 0 {
		c.Broadcast.MaxMisses = def.Broadcast.MaxMisses
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	g := c.Game
	if g.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive")
	}
	if g.RoundPauseMs <= 0 {
		return fmt.Errorf("round_pause_ms must be positive")
	}
	if g.Step <= 0 {
		return fmt.Errorf("step must be positive")
	}
	if g.StartMultiplier <= 0 {
		return fmt.Errorf("start_multiplier must be positive")
	}
	if g.MinCrash < g.StartMultiplier {
		return fmt.Errorf("min_crash %.2f is below start_multiplier %.2f", g.MinCrash, g.StartMultiplier)
	}
	if g.MaxCrash < g.MinCrash {
		return fmt.Errorf("max_crash %.2f is below min_crash %.2f", g.MaxCrash, g.MinCrash)
	}
	if g.OpeningBalance < 0 {
		return fmt.Errorf("opening_balance must not be negative")
	}
	if g.InboxSize < 1 {
		return fmt.Errorf("inbox_size must be at least 1")
	}

	if c.Broadcast.Inbox < 1 {
		return fmt.Errorf("broadcast inbox must be at least 1")
	}
	if c.Broadcast.Buffer < 1 {
		return fmt.Errorf("broadcast buffer must be at least 1")
	}
	if c.Broadcast.MaxMisses < 1 {
		return fmt.Errorf("broadcast max_misses must be at least 1")
	}

	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the game settings into a game.Config
func (c *Config) GameConfig() game.Config {
	g := c.Game
	return game.Config{
		Engine: game.EngineConfig{
			Start:    decimal.NewFromFloat(g.StartMultiplier),
			Step:     decimal.NewFromFloat(g.Step),
			MinCrash: decimal.NewFromFloat(g.MinCrash),
			MaxCrash: decimal.NewFromFloat(g.MaxCrash),
		},
		TickInterval:   time.Duration(g.TickIntervalMs) * time.Millisecond,
		RoundPause:     time.Duration(g.RoundPauseMs) * time.Millisecond,
		InboxSize:      g.InboxSize,
		OpeningBalance: decimal.NewFromFloat(g.OpeningBalance),
	}
}

// BroadcastOptions converts the broadcast settings into broadcast.Options
func (c *Config) BroadcastOptions() broadcast.Options {
	return broadcast.Options{
		Inbox:     c.Broadcast.Inbox,
		Buffer:    c.Broadcast.Buffer,
		MaxMisses: c.Broadcast.MaxMisses,
	}
}
