package types

import "fmt"

// ConnectionState is the lifecycle state of the single supervised connection.
type ConnectionState int32

const (
	ConnectionStateDisconnected ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
	ConnectionStateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateDisconnected:
		return "disconnected"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateConnected:
		return "connected"
	case ConnectionStateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnectionState) UnmarshalText(text []byte) error {
	for _, candidate := range []ConnectionState{
		ConnectionStateDisconnected,
		ConnectionStateConnecting,
		ConnectionStateConnected,
		ConnectionStateReconnecting,
	} {
		if candidate.String() == string(text) {
			*s = candidate

			return nil
		}
	}

	return fmt.Errorf("unknown connection state %q", text)
}
