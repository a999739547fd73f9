package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the crash game server"`
	Watch   WatchCmd         `cmd:"" help:"Watch rounds live in the terminal"`
	Balance BalanceCmd       `cmd:"" help:"Show a player's balance"`
	Topup   TopUpCmd         `cmd:"" help:"Top up a player's balance"`
	Bet     BetCmd           `cmd:"" help:"Place a bet on the running round"`
	Cashout CashoutCmd       `cmd:"" help:"Cash out the live bet"`
	Config  ConfigCmd        `cmd:"" help:"Write a default config file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("crashgame"),
		kong.Description("Crash betting game server and clients"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
