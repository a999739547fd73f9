package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/crashgame/internal/protocol"
)

// Spectator follows the round feed of a crash server
type Spectator struct {
	serverURL string
	player    string
	logger    *log.Logger
	dialer    *websocket.Dialer
}

// NewSpectator creates a spectator for player against serverURL, which may
// use an http(s) or ws(s) scheme
func NewSpectator(serverURL, player string, logger *log.Logger) *Spectator {
	return &Spectator{
		serverURL: serverURL,
		player:    player,
		logger:    logger.WithPrefix("spectator"),
		dialer:    websocket.DefaultDialer,
	}
}

// URL returns the WebSocket endpoint the spectator dials
func (s *Spectator) URL() (string, error) {
	raw := s.serverURL
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	// Ensure WebSocket scheme
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already correct
	default:
		u.Scheme = "ws"
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(s.player)
	return u.String(), nil
}

// Watch connects and returns the stream of server messages. The channel is
// closed when the connection ends or ctx is cancelled.
func (s *Spectator) Watch(ctx context.Context) (<-chan protocol.Message, error) {
	target, err := s.URL()
	if err != nil {
		return nil, err
	}

	s.logger.Info("Connecting to server", "url", target)
	conn, resp, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	messages := make(chan protocol.Message, 64)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(messages)
		defer close(done)
		defer func() { _ = conn.Close() }()

		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
					s.logger.Error("WebSocket error", "error", err)
				}
				return
			}

			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return messages, nil
}
