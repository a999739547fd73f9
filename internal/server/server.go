package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/crashgame/internal/broadcast"
	"github.com/lox/crashgame/internal/game"
	"github.com/lox/crashgame/internal/randutil"
	"github.com/lox/crashgame/internal/statistics"
)

// shutdownTimeout bounds how long in-flight HTTP requests get on shutdown
const shutdownTimeout = 5 * time.Second

// Server hosts the game service behind the HTTP action API and the
// spectator WebSocket endpoint.
type Server struct {
	cfg      *Config
	logger   *log.Logger
	clock    quartz.Clock
	game     *game.Service
	bcast    *broadcast.Broadcaster
	stats    *statistics.Collector
	upgrader websocket.Upgrader
	router   *gin.Engine

	mu          sync.RWMutex
	connections map[*Connection]struct{}
}

// Option configures a Server
type Option func(*serverOptions)

type serverOptions struct {
	clock quartz.Clock
	crash game.CrashSource
}

// WithClock sets the clock for the game loop and message timestamps
func WithClock(clock quartz.Clock) Option {
	return func(o *serverOptions) { o.clock = clock }
}

// WithCrashSource overrides the seeded crash draw
func WithCrashSource(src game.CrashSource) Option {
	return func(o *serverOptions) { o.crash = src }
}

// NewServer wires the game service, broadcaster and router for cfg
func NewServer(cfg *Config, logger *log.Logger, opts ...Option) *Server {
	o := serverOptions{clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.crash == nil {
		seed := cfg.Game.Seed
		if seed == 0 {
			seed = randutil.Seed()
		}
		logger.Info("Seeding crash draw", "seed", seed)
		o.crash = game.NewUniformCrash(randutil.New(seed))
	}

	bcast := broadcast.New(logger, cfg.BroadcastOptions())
	stats := statistics.NewCollector()

	s := &Server{
		cfg:    cfg,
		logger: logger.WithPrefix("server"),
		clock:  o.clock,
		bcast:  bcast,
		stats:  stats,
		game: game.NewService(logger,
			game.WithConfig(cfg.GameConfig()),
			game.WithClock(o.clock),
			game.WithSink(game.Sinks(stats, bcast)),
			game.WithCrashSource(o.crash),
		),
		upgrader: websocket.Upgrader{
			// Spectators may connect from any origin
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]struct{}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Game returns the underlying game service
func (s *Server) Game() *game.Service {
	return s.game
}

// Broadcaster returns the spectator broadcaster
func (s *Server) Broadcaster() *broadcast.Broadcaster {
	return s.bcast
}

// Stats returns the session round statistics
func (s *Server) Stats() *statistics.Collector {
	return s.stats
}

// Run drives the game loop and the broadcaster without an HTTP listener.
// It returns when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.game.Run(gctx) })
	g.Go(func() error { return s.bcast.Run(gctx) })
	return g.Wait()
}

// Start runs the game loop, the broadcaster and the HTTP listener until ctx
// is cancelled or one of them fails, then shuts the listener down.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.game.Run(gctx) })
	g.Go(func() error { return s.bcast.Run(gctx) })
	g.Go(func() error {
		s.logger.Info("Starting crash server", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down crash server")
		err := httpServer.Shutdown(shutdownCtx)
		s.closeConnections()
		return err
	})

	return g.Wait()
}

// handleWebSocket upgrades a spectator and subscribes it to the broadcast
func (s *Server) handleWebSocket(c *gin.Context) {
	player := game.PlayerID(c.Param("user_id"))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	// Subscribe before the snapshot so no event between the two is missed;
	// the connection drops queued events the snapshot already covers
	sub := s.bcast.Subscribe(player)
	snapshot := s.game.Snapshot()

	client := NewConnection(conn, sub, s.clock, s.logger)
	s.register(client)
	client.Start(snapshot)

	go func() {
		<-client.Done()
		s.bcast.Unsubscribe(sub)
		s.unregister(client)
	}()
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = struct{}{}
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Spectator connected", "player", conn.Player(), "total", total)
}

func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Spectator disconnected", "player", conn.Player(), "total", total)
}

func (s *Server) closeConnections() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
}

// ConnectedPlayers returns the players with an open spectator socket, one
// entry per socket, sorted
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]string, 0, len(s.connections))
	for conn := range s.connections {
		players = append(players, string(conn.Player()))
	}
	sort.Strings(players)
	return players
}
