package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lox/crashgame/internal/game"
	"github.com/lox/crashgame/internal/protocol"
)

// maxBodyBytes caps action request bodies; a valid one is a few dozen bytes
const maxBodyBytes = 4 << 10

// routes builds the gin engine for the HTTP action API and the spectator
// endpoint.
func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), allowAllOrigins(), limitBody(maxBodyBytes))

	r.GET("/health", s.handleHealth)
	r.GET("/state", s.handleState)
	r.GET("/stats", s.handleStats)
	r.GET("/balance", s.handleBalance)
	r.POST("/topup_balance", s.handleTopUp)
	r.POST("/place_bet", s.handlePlaceBet)
	r.POST("/cashout", s.handleCashout)
	r.GET("/ws/:user_id", s.handleWebSocket)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// allowAllOrigins answers CORS preflights and tags every response so
// browser clients on any origin can call the API.
func allowAllOrigins() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, protocol.StateFrom(s.game.Snapshot()))
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.bcast.Stats()
	c.JSON(http.StatusOK, gin.H{
		"subscribers": stats.Subscribers,
		"delivered":   stats.Delivered,
		"missed":      stats.Missed,
		"evicted":     stats.Evicted,
		"dropped":     stats.Dropped,
		"spectators":  s.ConnectedPlayers(),
		"rounds":      s.stats.Summary(),
	})
}

func (s *Server) handleBalance(c *gin.Context) {
	player := game.PlayerID(c.Query("user_id"))
	if player == "" {
		badRequest(c, "user_id is required")
		return
	}

	bal, err := s.game.Balance(c.Request.Context(), player)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.BalanceResponse{Balance: bal.Round(2)})
}

func (s *Server) handleTopUp(c *gin.Context) {
	var req protocol.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(c, "user_id is required")
		return
	}

	bal, err := s.game.TopUp(c.Request.Context(), req.UserID.Player(), req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.TopUpResponse{
		Message: "Balance topped up",
		Balance: bal.Round(2),
	})
}

func (s *Server) handlePlaceBet(c *gin.Context) {
	var req protocol.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(c, "user_id is required")
		return
	}

	receipt, err := s.game.PlaceBet(c.Request.Context(), req.UserID.Player(), req.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.BetResponse{
		Message:  "Bet placed",
		Sequence: receipt.Sequence,
		Stake:    receipt.Stake.Round(2),
		Balance:  receipt.Balance.Round(2),
	})
}

func (s *Server) handleCashout(c *gin.Context) {
	var req protocol.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.UserID == "" {
		badRequest(c, "user_id is required")
		return
	}

	receipt, err := s.game.Cashout(c.Request.Context(), req.UserID.Player())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, protocol.CashoutResponse{
		Message:    "Cashed out",
		Sequence:   receipt.Sequence,
		Multiplier: receipt.Multiplier,
		Payout:     receipt.Payout.Round(2),
		Balance:    receipt.Balance.Round(2),
	})
}

// writeError maps a game error onto its HTTP status and wire code
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Action failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, protocol.Error{
		Code:    game.Code(err),
		Message: err.Error(),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, protocol.Error{
		Code:    "invalid_request",
		Message: message,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrRoundNotOpen),
		errors.Is(err, game.ErrNoActiveBet),
		errors.Is(err, game.ErrDuplicateBet):
		return http.StatusConflict
	case errors.Is(err, game.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, game.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrServiceStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
