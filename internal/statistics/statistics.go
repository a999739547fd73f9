// Package statistics summarises crash rounds as they happen: the
// distribution of crash points and the money that moved through the bet
// book. Collector is a game.EventSink, so it can sit next to the
// broadcaster on the game loop's event stream.
package statistics

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lox/crashgame/internal/game"
)

// Statistics accumulates crash points
type Statistics struct {
	Rounds int
	Sum    float64
	Sum2   float64   // Sum of squares for variance calculation
	Values []float64 // Store all values for median/percentile calculation
	Max    float64
}

// Add incorporates a new crash point
func (s *Statistics) Add(point float64) {
	s.Rounds++
	s.Sum += point
	s.Sum2 += point * point
	s.Values = append(s.Values, point)
	if point > s.Max {
		s.Max = point
	}
}

// Mean returns the arithmetic mean crash point
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.Sum / float64(s.Rounds)
}

// Variance returns the sample variance of crash points
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.Sum2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

// StdDev returns the sample standard deviation of crash points
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(math.Max(s.Variance(), 0))
}

// Median returns the median crash point
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Summary is a point-in-time view of a Collector
type Summary struct {
	Rounds       int     `json:"rounds"`
	MeanCrash    float64 `json:"mean_crash"`
	MedianCrash  float64 `json:"median_crash"`
	StdDevCrash  float64 `json:"stddev_crash"`
	MaxCrash     float64 `json:"max_crash"`
	P90Crash     float64 `json:"p90_crash"`
	Bets         int     `json:"bets"`
	Cashouts     int     `json:"cashouts"`
	Forfeits     int     `json:"forfeits"`
	Staked       string  `json:"staked"`
	PaidOut      string  `json:"paid_out"`
	HouseResult  string  `json:"house_result"` // Staked minus paid out, open stakes included
	OpenStake    string  `json:"open_stake"`
	LedgerHealth string  `json:"ledger_health"`
}

// Collector tallies rounds and bets from game events. It is safe for
// concurrent use and never blocks the publisher for longer than a map update.
type Collector struct {
	mu    sync.Mutex
	crash Statistics

	bets     int
	cashouts int
	forfeits int

	staked         decimal.Decimal
	paidOut        decimal.Decimal
	cashedOutStake decimal.Decimal
	forfeitedStake decimal.Decimal
	open           map[game.PlayerID]decimal.Decimal
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		open: make(map[game.PlayerID]decimal.Decimal),
	}
}

// Publish implements game.EventSink
func (c *Collector) Publish(ev game.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case game.BetPlaced:
		c.bets++
		c.staked = c.staked.Add(e.Stake)
		c.open[e.Player] = e.Stake

	case game.CashedOut:
		c.cashouts++
		c.paidOut = c.paidOut.Add(e.Payout)
		c.cashedOutStake = c.cashedOutStake.Add(e.Stake)
		delete(c.open, e.Player)

	case game.RoundCrashed:
		c.crash.Add(e.Multiplier.InexactFloat64())
		for player, stake := range c.open {
			c.forfeits++
			c.forfeitedStake = c.forfeitedStake.Add(stake)
			delete(c.open, player)
		}
	}
}

// Summary returns the current tallies
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	health := "ok"
	if err := c.validate(); err != nil {
		health = err.Error()
	}

	return Summary{
		Rounds:       c.crash.Rounds,
		MeanCrash:    c.crash.Mean(),
		MedianCrash:  c.crash.Median(),
		StdDevCrash:  c.crash.StdDev(),
		MaxCrash:     c.crash.Max,
		P90Crash:     c.crash.Percentile(0.9),
		Bets:         c.bets,
		Cashouts:     c.cashouts,
		Forfeits:     c.forfeits,
		Staked:       c.staked.StringFixed(2),
		PaidOut:      c.paidOut.StringFixed(2),
		HouseResult:  c.staked.Sub(c.paidOut).StringFixed(2),
		OpenStake:    c.openStake().StringFixed(2),
		LedgerHealth: health,
	}
}

// Validate checks that every staked amount is accounted for
func (c *Collector) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validate()
}

func (c *Collector) validate() error {
	settled := c.cashedOutStake.Add(c.forfeitedStake).Add(c.openStake())
	if !settled.Equal(c.staked) {
		return fmt.Errorf("stake mismatch: staked=%s, cashed out=%s, forfeited=%s, open=%s",
			c.staked, c.cashedOutStake, c.forfeitedStake, c.openStake())
	}
	if c.cashouts+c.forfeits+len(c.open) != c.bets {
		return fmt.Errorf("bet count mismatch: bets=%d, cashouts=%d, forfeits=%d, open=%d",
			c.bets, c.cashouts, c.forfeits, len(c.open))
	}
	return nil
}

func (c *Collector) openStake() decimal.Decimal {
	total := decimal.Zero
	for _, stake := range c.open {
		total = total.Add(stake)
	}
	return total
}
