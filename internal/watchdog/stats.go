package watchdog

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
)

// Phase is the state of the reconnection procedure.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRetrying
	PhaseSucceeded
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRetrying:
		return "retrying"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseRetrying, PhaseSucceeded, PhaseExhausted} {
		if candidate.String() == string(text) {
			*p = candidate

			return nil
		}
	}

	return fmt.Errorf("unknown phase %q", text)
}

// Stats is a snapshot of the watchdog counters.
type Stats struct {
	// ConsecutiveFailures resets to zero on a successful ping or reconnection
	ConsecutiveFailures uint                       `json:"consecutive_failures"`
	TotalReconnects     uint                       `json:"total_reconnects"`
	LastPingTime        optional.Option[time.Time] `json:"last_ping_time"`
	LastFailureTime     optional.Option[time.Time] `json:"last_failure_time"`
	LastReconnectTime   optional.Option[time.Time] `json:"last_reconnect_time"`
	IsRunning           bool                       `json:"is_running"`
	Phase               Phase                      `json:"phase"`
	// Retry is the current or last reconnection attempt
	Retry int `json:"retry"`
}
