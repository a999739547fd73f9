// Package tui renders a live spectator view of crash rounds.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/lox/crashgame/internal/protocol"
)

const (
	historySize = 12
	feedSize    = 200
)

// Messages delivered into the bubbletea loop
type (
	streamMsg       protocol.Message
	streamClosedMsg struct{}
)

// Model is the bubbletea model for the watch view
type Model struct {
	messages <-chan protocol.Message
	logger   *log.Logger

	spinner spinner.Model
	feedVP  viewport.Model

	connected  bool
	phase      string
	sequence   uint64
	multiplier decimal.Decimal
	history    []decimal.Decimal
	feed       []string

	width, height int
}

// NewModel creates a watch view fed by messages
func NewModel(messages <-chan protocol.Message, logger *log.Logger) *Model {
	return &Model{
		messages:   messages,
		logger:     logger.WithPrefix("tui"),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(WarningStyle)),
		feedVP:     viewport.New(40, 8),
		connected:  true,
		phase:      "connecting",
		multiplier: decimal.NewFromInt(1),
	}
}

// Init starts the spinner and the stream listener
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForMessage())
}

func (m *Model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.messages
		if !ok {
			return streamClosedMsg{}
		}
		return streamMsg(msg)
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.feedVP.Width = max(msg.Width-4, 10)
		m.feedVP.Height = max(msg.Height-16, 3)
		m.feedVP.GotoBottom()

	case streamMsg:
		m.apply(protocol.Message(msg))
		return m, m.waitForMessage()

	case streamClosedMsg:
		m.connected = false
		m.addFeed("Disconnected from server")
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.feedVP, cmd = m.feedVP.Update(msg)
	return m, cmd
}

// apply folds a server message into the view state
func (m *Model) apply(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeState:
		var state protocol.State
		if m.decode(msg, &state) {
			m.phase = state.Phase
			m.sequence = state.Sequence
			m.multiplier = state.Multiplier
		}

	case protocol.TypeStart:
		var start protocol.Start
		if m.decode(msg, &start) {
			m.phase = "running"
			m.sequence = start.Sequence
			m.multiplier = decimal.NewFromInt(1)
			m.addFeed(fmt.Sprintf("Round %d started", start.Sequence))
		}

	case protocol.TypeUpdate:
		var upd protocol.Update
		if m.decode(msg, &upd) {
			m.sequence = upd.Sequence
			m.multiplier = upd.Multiplier
		}

	case protocol.TypeCrash:
		var crash protocol.Crash
		if m.decode(msg, &crash) {
			m.phase = "crashed"
			m.multiplier = crash.Multiplier
			m.history = append(m.history, crash.Multiplier.Round(2))
			if len(m.history) > historySize {
				m.history = m.history[len(m.history)-historySize:]
			}
			m.addFeed(fmt.Sprintf("Round %d crashed at %sx, %d forfeited",
				crash.Sequence, crash.Multiplier.StringFixed(2), crash.Forfeited))
		}

	case protocol.TypeBet:
		var bet protocol.Bet
		if m.decode(msg, &bet) {
			m.addFeed(fmt.Sprintf("%s bet %s", bet.Player, bet.Stake.StringFixed(2)))
		}

	case protocol.TypeCashout:
		var out protocol.Cashout
		if m.decode(msg, &out) {
			m.addFeed(fmt.Sprintf("%s cashed out %s at %sx",
				out.Player, out.Payout.StringFixed(2), out.Multiplier.StringFixed(2)))
		}

	default:
		m.logger.Debug("Ignoring message", "type", msg.Type)
	}
}

func (m *Model) decode(msg protocol.Message, v any) bool {
	if err := msg.Decode(v); err != nil {
		m.logger.Warn("Failed to decode message", "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (m *Model) addFeed(line string) {
	m.feed = append(m.feed, line)
	if len(m.feed) > feedSize {
		m.feed = m.feed[len(m.feed)-feedSize:]
	}
	m.feedVP.SetContent(strings.Join(m.feed, "\n"))
	m.feedVP.GotoBottom()
}

// View renders the TUI
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(fmt.Sprintf("CRASH  round #%d", m.sequence)))
	b.WriteString("\n\n")

	style := MultiplierStyle
	if m.phase == "crashed" {
		style = CrashedStyle
	}
	b.WriteString(style.Render(m.multiplier.StringFixed(2) + "x"))
	b.WriteString("\n")

	switch {
	case !m.connected:
		b.WriteString(WarningStyle.Render("disconnected"))
	case m.phase == "running":
		b.WriteString(InfoStyle.Render("climbing..."))
	case m.phase == "crashed":
		b.WriteString(CrashLabelStyle.Render("CRASHED") + "  " +
			m.spinner.View() + InfoStyle.Render(" next round soon"))
	default:
		b.WriteString(m.spinner.View() + InfoStyle.Render(" waiting for the first round"))
	}
	b.WriteString("\n\n")

	b.WriteString(InfoStyle.Render("History: "))
	b.WriteString(m.renderHistory())
	b.WriteString("\n\n")

	b.WriteString(FeedStyle.Render(m.feedVP.View()))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("q: quit"))

	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
	}
	return b.String()
}

func (m *Model) renderHistory() string {
	if len(m.history) == 0 {
		return InfoStyle.Render("none yet")
	}

	two := decimal.NewFromInt(2)
	parts := make([]string, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0; i-- {
		point := m.history[i].StringFixed(2) + "x"
		if m.history[i].GreaterThanOrEqual(two) {
			parts = append(parts, HistoryHighStyle.Render(point))
		} else {
			parts = append(parts, HistoryLowStyle.Render(point))
		}
	}
	return strings.Join(parts, " ")
}

// Phase returns the phase as last reported by the server
func (m *Model) Phase() string { return m.phase }

// Multiplier returns the last multiplier seen
func (m *Model) Multiplier() decimal.Decimal { return m.multiplier }

// History returns recent crash points, oldest first
func (m *Model) History() []decimal.Decimal { return m.history }

// Feed returns the activity feed lines
func (m *Model) Feed() []string { return m.feed }
