package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/lox/crashgame/internal/server"
)

// ServerCmd runs the game server. Flags override values from the config file.
type ServerCmd struct {
	Config  string        `kong:"default='crashgame.hcl',help='Config file (.hcl, .yaml or .yml); defaults apply when missing'"`
	Addr    string        `kong:"help='Listen address as host:port'"`
	Tick    time.Duration `kong:"help='Multiplier tick interval (e.g. 100ms)'"`
	Pause   time.Duration `kong:"help='Pause between rounds (e.g. 3s)'"`
	Seed    *int64        `kong:"help='Deterministic RNG seed for crash points (optional)'"`
	Debug   bool          `kong:"help='Enable debug logging'"`
	LogFile string        `kong:"help='Also write logs to this rotated file'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closer, err := server.NewLogger(cfg.Server)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	logger.Info("Starting crash game",
		"address", cfg.Address(),
		"tick_ms", cfg.Game.TickIntervalMs,
		"pause_ms", cfg.Game.RoundPauseMs,
		"min_crash", cfg.Game.MinCrash,
		"max_crash", cfg.Game.MaxCrash)

	s := server.NewServer(cfg, logger)
	ctx := setupSignalHandler(logger)
	return s.Start(ctx)
}

func (c *ServerCmd) applyOverrides(cfg *server.Config) error {
	if c.Addr != "" {
		host, portStr, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", c.Addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port in %q: %w", c.Addr, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	if c.Tick > 0 {
		cfg.Game.TickIntervalMs = int(c.Tick / time.Millisecond)
	}
	if c.Pause > 0 {
		cfg.Game.RoundPauseMs = int(c.Pause / time.Millisecond)
	}
	if c.Seed != nil {
		cfg.Game.Seed = *c.Seed
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if c.LogFile != "" {
		cfg.Server.LogFile = c.LogFile
	}
	return nil
}
