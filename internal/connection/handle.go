// Package connection wraps a transport with the connection state machine shared by the
// watchdog and the request queue.
package connection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/transport"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Handle is the single supervised connection. It owns the ConnectionState; domain
// calls fail fast with ErrCodeNotConnected unless the state is Connected.
type Handle struct {
	transport transport.Transport
	log       *logger.Logger

	state atomic.Int32
	// epoch increments on every successful Connect
	epoch atomic.Uint64
	// connMu serializes Connect and Disconnect
	connMu sync.Mutex
	// inFlight bounds concurrent domain calls on the transport
	inFlight *semaphore.Weighted
}

// NewHandle creates a disconnected handle. maxInFlight below one is treated as one.
func NewHandle(t transport.Transport, maxInFlight int, log *logger.Logger) *Handle {
	if maxInFlight < 1 {
		maxInFlight = 1
	}

	h := &Handle{
		transport: t,
		log:       log.Component("connection"),
		state:     atomic.Int32{},
		epoch:     atomic.Uint64{},
		connMu:    sync.Mutex{},
		inFlight:  semaphore.NewWeighted(int64(maxInFlight)),
	}
	h.state.Store(int32(types.ConnectionStateDisconnected))

	return h
}

// State returns the current connection state.
func (h *Handle) State() types.ConnectionState {
	return types.ConnectionState(h.state.Load())
}

func (h *Handle) IsConnected() bool {
	return h.State() == types.ConnectionStateConnected
}

// Epoch identifies the current session. It changes whenever a new session is established.
func (h *Handle) Epoch() uint64 {
	return h.epoch.Load()
}

func (h *Handle) setState(next types.ConnectionState) {
	prev := types.ConnectionState(h.state.Swap(int32(next)))
	if prev != next {
		h.log.Info("Connection state changed",
			zap.String("from", prev.String()),
			zap.String("to", next.String()),
		)
	}
}

// MarkReconnecting flags the connection as being re-established. Domain calls fail fast
// until Connect succeeds.
func (h *Handle) MarkReconnecting() {
	h.setState(types.ConnectionStateReconnecting)
}

// MarkDisconnected flags the connection as down with no recovery in progress.
func (h *Handle) MarkDisconnected() {
	h.setState(types.ConnectionStateDisconnected)
}

// Connect establishes the session. It is a no-op when already connected.
// A failed attempt during reconnection leaves the state Reconnecting.
func (h *Handle) Connect(ctx context.Context) error {
	h.connMu.Lock()
	defer h.connMu.Unlock()

	if h.IsConnected() && h.transport.IsConnected() {
		return nil
	}

	prev := h.State()
	if prev != types.ConnectionStateReconnecting {
		h.setState(types.ConnectionStateConnecting)
	}

	if err := h.transport.Connect(ctx); err != nil {
		if prev == types.ConnectionStateReconnecting {
			h.setState(types.ConnectionStateReconnecting)
		} else {
			h.setState(types.ConnectionStateDisconnected)
		}

		if ctx.Err() != nil {
			return errors.FromContext(ctx, "connect")
		}

		return errors.Wrap(errors.ErrCodeTransport, "connect failed", err)
	}

	h.epoch.Add(1)
	h.setState(types.ConnectionStateConnected)

	return nil
}

// Disconnect closes the session. It always leaves the handle Disconnected; a transport
// error is returned for logging only.
func (h *Handle) Disconnect(ctx context.Context) error {
	h.connMu.Lock()
	defer h.connMu.Unlock()

	err := h.transport.Disconnect(ctx)
	h.setState(types.ConnectionStateDisconnected)

	if err != nil {
		return errors.Wrap(errors.ErrCodeTransport, "disconnect failed", err)
	}

	return nil
}

// Reset drops the session without changing the state. Used by the watchdog before
// reconnecting, so the state stays Reconnecting.
func (h *Handle) Reset(ctx context.Context) error {
	h.connMu.Lock()
	defer h.connMu.Unlock()

	if err := h.transport.Disconnect(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeTransport, "disconnect failed", err)
	}

	return nil
}

// Ping probes the remote side. It is not bounded by the in-flight limit so health checks
// are never starved by queued work.
func (h *Handle) Ping(ctx context.Context) (bool, error) {
	if !h.IsConnected() {
		return false, h.notConnected("ping")
	}

	ok, err := h.transport.Ping(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, errors.FromContext(ctx, "ping")
		}

		return false, errors.Wrap(errors.ErrCodeTransport, "ping failed", err)
	}

	return ok, nil
}

func (h *Handle) GetBalance(ctx context.Context) (types.Balance, error) {
	return call(ctx, h, "get balance", h.transport.GetBalance)
}

func (h *Handle) GetAssets(ctx context.Context) ([]types.AssetInfo, error) {
	return call(ctx, h, "get assets", h.transport.GetAssets)
}

func (h *Handle) GetCandles(ctx context.Context, asset string, period int, count int) ([]types.Candle, error) {
	return call(ctx, h, "get candles", func(ctx context.Context) ([]types.Candle, error) {
		return h.transport.GetCandles(ctx, asset, period, count)
	})
}

func (h *Handle) Buy(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int) (types.TradeResult, error) {
	return call(ctx, h, "buy", func(ctx context.Context) (types.TradeResult, error) {
		return h.transport.Buy(ctx, asset, amount, direction, duration)
	})
}

func (h *Handle) CheckWin(ctx context.Context, tradeID string) (types.WinResult, error) {
	return call(ctx, h, "check win", func(ctx context.Context) (types.WinResult, error) {
		return h.transport.CheckWin(ctx, tradeID)
	})
}

// BuyAndWait places a trade, waits for it to expire, then fetches the outcome.
// If the session was replaced or lost while waiting the trade is reported as failed.
func (h *Handle) BuyAndWait(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int) (types.TradeResult, error) {
	epoch := h.Epoch()

	trade, err := h.Buy(ctx, asset, amount, direction, duration)
	if err != nil {
		return types.TradeResult{}, err
	}

	timer := time.NewTimer(time.Duration(duration) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return trade, errors.FromContext(ctx, "wait for trade result")
	case <-timer.C:
	}

	if h.Epoch() != epoch || !h.IsConnected() {
		return trade, errors.Newf(errors.ErrCodeTradeFailed,
			"connection was reset while waiting for trade %s", trade.ID)
	}

	outcome, err := h.CheckWin(ctx, trade.ID)
	if err != nil {
		return trade, err
	}

	return trade.Settle(outcome), nil
}

func (h *Handle) StartCandleStream(ctx context.Context, asset string, period int) error {
	_, err := call(ctx, h, "start candle stream", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.transport.StartCandleStream(ctx, asset, period)
	})

	return err
}

func (h *Handle) StopCandleStream(ctx context.Context, asset string, period int) error {
	_, err := call(ctx, h, "stop candle stream", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.transport.StopCandleStream(ctx, asset, period)
	})

	return err
}

func (h *Handle) LatestCandle(ctx context.Context, asset string, period int) (optional.Option[types.Candle], error) {
	return call(ctx, h, "latest candle", func(ctx context.Context) (optional.Option[types.Candle], error) {
		return h.transport.LatestCandle(ctx, asset, period)
	})
}

func (h *Handle) notConnected(operation string) error {
	return errors.Newf(errors.ErrCodeNotConnected, "%s: not connected (state=%s)", operation, h.State())
}

// call runs fn on the transport if connected, bounded by the in-flight semaphore.
func call[T any](ctx context.Context, h *Handle, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if !h.IsConnected() {
		return zero, h.notConnected(operation)
	}

	if err := h.inFlight.Acquire(ctx, 1); err != nil {
		return zero, errors.FromContext(ctx, operation)
	}
	defer h.inFlight.Release(1)

	result, err := fn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return zero, errors.FromContext(ctx, operation)
		}

		return zero, errors.Wrapf(errors.ErrCodeTransport, err, "%s failed", operation)
	}

	return result, nil
}
