package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Direction is the predicted price movement of a binary option.
type Direction string

const (
	DirectionCall Direction = "call"
	DirectionPut  Direction = "put"
)

// ParseDirection accepts call/put (and the aliases up/down, buy/sell), case insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "up", "buy":
		return DirectionCall, nil
	case "put", "down", "sell":
		return DirectionPut, nil
	default:
		return "", fmt.Errorf("invalid direction: %q", s)
	}
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionCall || d == DirectionPut
}

type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusWon    TradeStatus = "won"
	TradeStatusLost   TradeStatus = "lost"
	TradeStatusFailed TradeStatus = "failed"
)

// TradeResult is the acknowledgement of a placed trade.
type TradeResult struct {
	ID        string          `json:"id" yaml:"id"`
	Asset     string          `json:"asset" yaml:"asset"`
	Amount    decimal.Decimal `json:"amount" yaml:"amount"`
	Direction Direction       `json:"direction" yaml:"direction"`
	// Duration is the expiry of the option in seconds
	Duration int         `json:"duration" yaml:"duration"`
	OpenedAt time.Time   `json:"opened_at" yaml:"opened_at"`
	Status   TradeStatus `json:"status" yaml:"status"`
	// Outcome is set once the trade has expired and the result was checked
	Outcome optional.Option[WinResult] `json:"outcome" yaml:"outcome"`
}

// WinResult is the settled outcome of a trade.
type WinResult struct {
	Win bool `json:"win" yaml:"win"`
	// Profit is positive on a win and equals the negated stake on a loss
	Profit     decimal.Decimal `json:"profit" yaml:"profit"`
	ClosePrice float64         `json:"close_price" yaml:"close_price"`
}

// Settle returns a copy of r with the outcome and final status applied.
func (r TradeResult) Settle(win WinResult) TradeResult {
	r.Outcome = optional.Some(win)
	if win.Win {
		r.Status = TradeStatusWon
	} else {
		r.Status = TradeStatusLost
	}

	return r
}
