package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/internal/watchdog"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// SectionStyle for section labels.
	SectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	OKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	BadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// FormatConnectionState renders the state with a marker, colored by health.
func FormatConnectionState(state types.ConnectionState) string {
	switch state {
	case types.ConnectionStateConnected:
		return OKStyle.Render("● " + state.String())
	case types.ConnectionStateConnecting, types.ConnectionStateReconnecting:
		return WarnStyle.Render("◐ " + state.String())
	default:
		return BadStyle.Render("○ " + state.String())
	}
}

// FormatPhase renders the watchdog phase.
func FormatPhase(phase watchdog.Phase) string {
	switch phase {
	case watchdog.PhaseRetrying:
		return WarnStyle.Render(phase.String())
	case watchdog.PhaseExhausted:
		return BadStyle.Render(phase.String())
	default:
		return phase.String()
	}
}
