package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/quotex-connect/internal/status"
)

// FetchFunc returns the current stats snapshot.
type FetchFunc func(ctx context.Context) (status.Stats, error)

// Model is the Bubble Tea model of the status dashboard.
type Model struct {
	fetch    FetchFunc
	interval time.Duration
	source   string

	stats      status.Stats
	hasStats   bool
	lastUpdate time.Time
	err        error

	subsTable   table.Model
	tradesTable table.Model
	width       int
	height      int
}

// NewModel creates a dashboard polling fetch every interval. source names where the stats come from.
func NewModel(fetch FetchFunc, interval time.Duration, source string) Model {
	return Model{
		fetch:    fetch,
		interval: interval,
		source:   source,

		stats:      status.Stats{}, //nolint:exhaustruct
		hasStats:   false,
		lastUpdate: time.Time{},
		err:        nil,

		subsTable:   NewSubscriptionTable(),
		tradesTable: NewTradeTable(),
		width:       0,
		height:      0,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.tickCmd())
}

func (m Model) fetchCmd() tea.Cmd {
	fetch := m.fetch
	timeout := m.interval

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		stats, err := fetch(ctx)
		if err != nil {
			return FetchErrorMsg{Err: err}
		}

		return StatsMsg{Stats: stats, At: time.Now()}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.fetchCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.subsTable.SetWidth(msg.Width)
		m.tradesTable.SetWidth(msg.Width)

		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), m.tickCmd())

	case StatsMsg:
		m.stats = msg.Stats
		m.hasStats = true
		m.lastUpdate = msg.At
		m.err = nil
		m.subsTable = UpdateSubscriptionRows(m.subsTable, msg.Stats.Subscriptions)

		if msg.Stats.Session != nil {
			m.tradesTable = UpdateTradeRows(m.tradesTable, msg.Stats.Session.RecentTrades)
		}

		return m, nil

	case FetchErrorMsg:
		m.err = msg.Err

		return m, nil
	}

	var cmd tea.Cmd
	m.subsTable, cmd = m.subsTable.Update(msg)

	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(fmt.Sprintf("Quotex Connect - %s", m.source)))

	if m.hasStats {
		s.WriteString(HelpStyle.Render(fmt.Sprintf("  %s, updated %s", m.stats.Version, m.lastUpdate.Format(time.TimeOnly))))
	}

	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	if !m.hasStats {
		s.WriteString("Waiting for stats...\n")
	} else {
		s.WriteString(renderOverview(m.stats))
		s.WriteString("\n")
		s.WriteString(SectionStyle.Render("Subscriptions"))
		s.WriteString("\n")

		if len(m.stats.Subscriptions) == 0 {
			s.WriteString("none\n")
		} else {
			s.WriteString(m.subsTable.View())
			s.WriteString("\n")
		}

		if m.stats.Session != nil && len(m.stats.Session.RecentTrades) > 0 {
			s.WriteString("\n")
			s.WriteString(SectionStyle.Render("Recent trades"))
			s.WriteString("\n")
			s.WriteString(m.tradesTable.View())
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("q: quit | r: refresh"))

	return s.String()
}
