// Package client talks to a crash server: HTTPClient issues player actions
// and Spectator follows the round feed over WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/lox/crashgame/internal/game"
	"github.com/lox/crashgame/internal/protocol"
)

// APIError is a non-2xx response from the server. Err is the matching game
// sentinel error when the server sent a known code, so errors.Is works
// across the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPClient issues player actions against the HTTP API
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewHTTPClient creates a client for the server at baseURL
func NewHTTPClient(baseURL string, logger *log.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.WithPrefix("client"),
	}
}

// Balance returns the player's balance
func (c *HTTPClient) Balance(ctx context.Context, player string) (decimal.Decimal, error) {
	var resp protocol.BalanceResponse
	err := c.do(ctx, http.MethodGet, "/balance?user_id="+url.QueryEscape(player), nil, &resp)
	return resp.Balance, err
}

// TopUp credits the player's balance
func (c *HTTPClient) TopUp(ctx context.Context, player string, amount decimal.Decimal) (protocol.TopUpResponse, error) {
	var resp protocol.TopUpResponse
	req := protocol.TopUpRequest{UserID: protocol.UserID(player), Amount: amount}
	err := c.do(ctx, http.MethodPost, "/topup_balance", req, &resp)
	return resp, err
}

// PlaceBet stakes amount on the running round
func (c *HTTPClient) PlaceBet(ctx context.Context, player string, amount decimal.Decimal) (protocol.BetResponse, error) {
	var resp protocol.BetResponse
	req := protocol.BetRequest{UserID: protocol.UserID(player), Amount: amount}
	err := c.do(ctx, http.MethodPost, "/place_bet", req, &resp)
	return resp, err
}

// Cashout cashes out the player's live bet at the current multiplier
func (c *HTTPClient) Cashout(ctx context.Context, player string) (protocol.CashoutResponse, error) {
	var resp protocol.CashoutResponse
	req := protocol.CashoutRequest{UserID: protocol.UserID(player)}
	err := c.do(ctx, http.MethodPost, "/cashout", req, &resp)
	return resp, err
}

// State returns the current round state
func (c *HTTPClient) State(ctx context.Context) (protocol.State, error) {
	var resp protocol.State
	err := c.do(ctx, http.MethodGet, "/state", nil, &resp)
	return resp, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Sending request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		var apiErr protocol.Error
		if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Code == "" {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		}
		return &APIError{
			Status:  resp.StatusCode,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Err:     game.FromCode(apiErr.Code),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
