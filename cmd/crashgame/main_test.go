package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/crashgame/internal/fileutil"
	"github.com/lox/crashgame/internal/server"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("crashgame"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestParseServerFlags(t *testing.T) {
	cli, ctx := parse(t, "server", "--addr", "0.0.0.0:9000", "--tick", "50ms", "--pause", "2s", "--seed", "7", "--debug")
	assert.Equal(t, "server", ctx.Command())

	cfg := server.DefaultConfig()
	require.NoError(t, cli.Server.applyOverrides(cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
	assert.Equal(t, 50*time.Millisecond, cfg.GameConfig().TickInterval)
	assert.Equal(t, 2*time.Second, cfg.GameConfig().RoundPause)
	assert.Equal(t, int64(7), cfg.Game.Seed)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestServerOverridesKeepConfig(t *testing.T) {
	cli, _ := parse(t, "server")

	cfg := server.DefaultConfig()
	cfg.Game.Seed = 99
	require.NoError(t, cli.Server.applyOverrides(cfg))
	assert.Equal(t, server.DefaultConfig().Address(), cfg.Address())
	assert.Equal(t, int64(99), cfg.Game.Seed, "no --seed leaves the file value")

	cli.Server.Addr = "no-port"
	assert.Error(t, cli.Server.applyOverrides(cfg))
}

func TestParseActions(t *testing.T) {
	cli, ctx := parse(t, "bet", "-u", "alice", "12.50")
	assert.Equal(t, "bet <amount>", ctx.Command())
	assert.Equal(t, "alice", cli.Bet.User)
	assert.Equal(t, "http://localhost:8000", cli.Bet.Server)

	amount, err := parseAmount(cli.Bet.Amount)
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount.String())

	_, err = parseAmount("lots")
	assert.Error(t, err)

	cli, _ = parse(t, "cashout", "--user", "42", "--server", "http://crash:8000")
	assert.Equal(t, "42", cli.Cashout.User)
	assert.Equal(t, "http://crash:8000", cli.Cashout.Server)
}

func TestConfigCommandWritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.yaml")
	cli, _ := parse(t, "config", path)
	require.NoError(t, cli.Config.Run())

	cfg, err := server.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, server.DefaultConfig(), cfg)

	assert.ErrorIs(t, cli.Config.Run(), fileutil.ErrExists, "refuses to overwrite")
	cli.Config.Force = true
	assert.NoError(t, cli.Config.Run())
}
