package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/crashgame/internal/broadcast"
	"github.com/lox/crashgame/internal/game"
	"github.com/lox/crashgame/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Spectators only send control frames and the odd keepalive
	maxMessageSize = 1024
)

// Connection is one spectator WebSocket. Its outbound queue is the
// broadcaster subscription, so a slow socket is evicted on its own without
// holding up other spectators or the game loop.
type Connection struct {
	conn      *websocket.Conn
	sub       *broadcast.Subscription
	clock     quartz.Clock
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded socket and its subscription
func NewConnection(conn *websocket.Conn, sub *broadcast.Subscription, clock quartz.Clock, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		sub:    sub,
		clock:  clock,
		logger: logger.WithPrefix("conn").With("player", sub.Player()),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection. A state message built from
// snapshot is written first; broadcast events already reflected in it are
// skipped, since the subscription opens before the snapshot is taken.
func (c *Connection) Start(snapshot game.RoundState) {
	go c.writePump(snapshot)
	go c.readPump()
}

// Player returns the player this connection watches for
func (c *Connection) Player() game.PlayerID {
	return c.sub.Player()
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// readPump consumes inbound frames so ping, pong and close are processed.
// Spectators have nothing to say; any data frame is discarded.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
	}
}

// writePump drains the subscription onto the socket
func (c *Connection) writePump(snapshot game.RoundState) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close() // Ignore close errors during cleanup
	}()

	initial, err := protocol.NewMessage(protocol.TypeState, protocol.StateFrom(snapshot), c.clock.Now())
	if err != nil {
		c.logger.Error("Failed to build state message", "error", err)
		return
	}
	if err := c.write(initial); err != nil {
		c.logger.Debug("Failed to write initial message", "error", err)
		return
	}

	for {
		select {
		case ev := <-c.sub.Events():
			if coveredBy(snapshot, ev) {
				continue
			}
			msg, err := protocol.FromEvent(ev, c.clock.Now())
			if err != nil {
				c.logger.Debug("Skipping event", "type", ev.EventType(), "error", err)
				continue
			}
			if err := c.write(msg); err != nil {
				c.logger.Debug("Failed to write message", "error", err)
				return
			}

		case <-c.sub.Done():
			// Evicted for falling behind, or the broadcaster stopped
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// coveredBy reports whether ev happened at or before the round state in
// snapshot. Bets and cashouts of the snapshot's round are never covered:
// the state carries no bets.
func coveredBy(snapshot game.RoundState, ev game.Event) bool {
	seq := ev.RoundSequence()
	if seq != snapshot.Sequence {
		return seq < snapshot.Sequence
	}

	switch e := ev.(type) {
	case game.RoundStarted:
		return true
	case game.MultiplierUpdated:
		return e.Tick <= snapshot.Tick
	case game.RoundCrashed:
		return snapshot.Phase == game.PhaseCrashed
	default:
		return false
	}
}

func (c *Connection) write(msg *protocol.Message) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}
