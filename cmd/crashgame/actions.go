package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/lox/crashgame/internal/client"
)

const actionTimeout = 10 * time.Second

// ClientFlags are shared by every player action
type ClientFlags struct {
	Server string `kong:"default='http://localhost:8000',help='Server base URL'"`
	User   string `kong:"required,short='u',help='Player id'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (f ClientFlags) client() *client.HTTPClient {
	level := log.WarnLevel
	if f.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: level})
	return client.NewHTTPClient(f.Server, logger)
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

type BalanceCmd struct {
	ClientFlags `kong:"embed"`
}

func (c *BalanceCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	bal, err := c.client().Balance(ctx, c.User)
	if err != nil {
		return err
	}
	fmt.Printf("%s balance: %s\n", c.User, bal.StringFixed(2))
	return nil
}

type TopUpCmd struct {
	ClientFlags `kong:"embed"`
	Amount      string `kong:"arg,help='Amount to credit'"`
}

func (c *TopUpCmd) Run() error {
	amount, err := parseAmount(c.Amount)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	resp, err := c.client().TopUp(ctx, c.User, amount)
	if err != nil {
		return err
	}
	fmt.Printf("%s: balance %s\n", resp.Message, resp.Balance.StringFixed(2))
	return nil
}

type BetCmd struct {
	ClientFlags `kong:"embed"`
	Amount      string `kong:"arg,help='Stake for the running round'"`
}

func (c *BetCmd) Run() error {
	amount, err := parseAmount(c.Amount)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	resp, err := c.client().PlaceBet(ctx, c.User, amount)
	if err != nil {
		return err
	}
	fmt.Printf("%s on round %d: stake %s, balance %s\n",
		resp.Message, resp.Sequence, resp.Stake.StringFixed(2), resp.Balance.StringFixed(2))
	return nil
}

type CashoutCmd struct {
	ClientFlags `kong:"embed"`
}

func (c *CashoutCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	resp, err := c.client().Cashout(ctx, c.User)
	if err != nil {
		return err
	}
	fmt.Printf("%s at %sx: payout %s, balance %s\n",
		resp.Message, resp.Multiplier.StringFixed(2), resp.Payout.StringFixed(2), resp.Balance.StringFixed(2))
	return nil
}
