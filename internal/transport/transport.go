// Package transport defines the contract of the remote trading connection and ships a
// simulated implementation used for dry runs and tests.
package transport

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/shopspring/decimal"
)

// Transport is the remote trading connection. Implementations must be safe for
// concurrent use and must honour context cancellation on every blocking call.
type Transport interface {
	// Connect establishes the session. Calling it on a live session is a no-op.
	Connect(ctx context.Context) error
	// Disconnect tears the session down. It is best effort.
	Disconnect(ctx context.Context) error
	// Ping reports whether the remote side answered a health probe.
	Ping(ctx context.Context) (bool, error)
	// IsConnected reports the transport's own view of the session.
	IsConnected() bool

	GetBalance(ctx context.Context) (types.Balance, error)
	GetAssets(ctx context.Context) ([]types.AssetInfo, error)
	GetCandles(ctx context.Context, asset string, period int, count int) ([]types.Candle, error)

	// Buy opens a binary option of the given duration in seconds.
	Buy(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int) (types.TradeResult, error)
	// CheckWin returns the settled outcome of a previously placed trade.
	CheckWin(ctx context.Context, tradeID string) (types.WinResult, error)

	// StartCandleStream asks the remote side to push candles for (asset, period).
	StartCandleStream(ctx context.Context, asset string, period int) error
	StopCandleStream(ctx context.Context, asset string, period int) error
	// LatestCandle returns the newest streamed candle, or None if nothing arrived yet.
	LatestCandle(ctx context.Context, asset string, period int) (optional.Option[types.Candle], error)
}
