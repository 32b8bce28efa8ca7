package queue

import (
	"context"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type subKey struct {
	asset  string
	period int
}

type subscription struct {
	key subKey
	// callback is guarded by RequestQueue.subsMu
	callback CandleCallback
	cancel   context.CancelFunc
	done     chan struct{}
}

// Subscription is a snapshot of an active candle subscription.
type Subscription struct {
	Asset    string         `json:"asset"`
	Period   int            `json:"period"`
	Callback CandleCallback `json:"-"`
	Active   bool           `json:"active"`
}

// Subscriptions returns the active subscriptions.
func (q *RequestQueue) Subscriptions() []Subscription {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()

	out := make([]Subscription, 0, len(q.subs))
	for key, sub := range q.subs {
		out = append(out, Subscription{
			Asset:    key.asset,
			Period:   key.period,
			Callback: sub.callback,
			Active:   true,
		})
	}

	return out
}

// subscribe fetches the initial candles, binds the stream and starts delivery. An existing
// subscription for the same key only has its callback replaced.
func (q *RequestQueue) subscribe(ctx context.Context, p CandlesPayload) ([]types.Candle, error) {
	key := subKey{asset: p.Asset, period: p.Period}

	q.subsMu.Lock()
	_, exists := q.subs[key]
	q.subsMu.Unlock()

	candles, err := q.exec.GetCandles(ctx, p.Asset, p.Period, q.config.InitialCandles)
	if err != nil {
		return nil, err
	}

	if !exists {
		if err := q.exec.StartCandleStream(ctx, p.Asset, p.Period); err != nil {
			return nil, err
		}
	}

	q.subsMu.Lock()
	defer q.subsMu.Unlock()

	if sub, ok := q.subs[key]; ok {
		sub.callback = p.OnCandle
		q.log.Info("Subscription callback replaced",
			zap.String("asset", p.Asset),
			zap.Int("period", p.Period),
		)

		return candles, nil
	}

	subCtx, cancel := context.WithCancel(q.streamCtx)
	sub := &subscription{
		key:      key,
		callback: p.OnCandle,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	q.subs[key] = sub

	go q.deliver(subCtx, sub)

	q.log.Info("Subscribed to candles",
		zap.String("asset", p.Asset),
		zap.Int("period", p.Period),
		zap.Int("initial_candles", len(candles)),
	)

	return candles, nil
}

// unsubscribe stops delivery and the remote stream. Unknown keys are a no-op.
func (q *RequestQueue) unsubscribe(ctx context.Context, p CandlesPayload) (bool, error) {
	key := subKey{asset: p.Asset, period: p.Period}

	q.subsMu.Lock()
	sub, ok := q.subs[key]
	delete(q.subs, key)
	q.subsMu.Unlock()

	if !ok {
		return false, nil
	}

	sub.cancel()

	select {
	case <-sub.done:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	if err := q.exec.StopCandleStream(ctx, p.Asset, p.Period); err != nil {
		return false, err
	}

	q.log.Info("Unsubscribed from candles", zap.String("asset", p.Asset), zap.Int("period", p.Period))

	return true, nil
}

// ResubscribeAll re-binds every active stream on the connection. It is registered as the
// watchdog's reconnect observer since a new session starts without streams.
func (q *RequestQueue) ResubscribeAll(ctx context.Context) error {
	q.subsMu.Lock()
	keys := make([]subKey, 0, len(q.subs))
	for key := range q.subs {
		keys = append(keys, key)
	}
	q.subsMu.Unlock()

	var errs error

	for _, key := range keys {
		if err := q.exec.StartCandleStream(ctx, key.asset, key.period); err != nil {
			errs = multierr.Append(errs, err)

			q.log.Warn("Resubscribe failed",
				zap.String("operation", "resubscribe"),
				zap.String("asset", key.asset),
				zap.Int("period", key.period),
				zap.Error(err),
			)
		}
	}

	q.log.Info("Resubscribed candle streams",
		zap.Int("streams", len(keys)),
		zap.Int("failed", len(multierr.Errors(errs))),
	)

	return errs
}

func (q *RequestQueue) callbackFor(sub *subscription) CandleCallback {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()

	return sub.callback
}

// deliver polls the newest candle and hands unseen ones to the current callback.
func (q *RequestQueue) deliver(ctx context.Context, sub *subscription) {
	defer close(sub.done)

	ticker := time.NewTicker(q.config.StreamPollInterval)
	defer ticker.Stop()

	var last types.Candle

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pollCtx, cancel := context.WithTimeout(ctx, q.config.CallbackTimeout)
		latest, err := q.exec.LatestCandle(pollCtx, sub.key.asset, sub.key.period)
		cancel()

		if err != nil {
			q.log.Debug("Candle poll failed",
				zap.String("asset", sub.key.asset),
				zap.Int("period", sub.key.period),
				zap.Error(err),
			)

			continue
		}

		if latest.IsNone() {
			continue
		}

		candle := latest.Unwrap()
		if candle.Time.Equal(last.Time) && candle.Close == last.Close {
			continue
		}

		last = candle

		if ctx.Err() != nil {
			return
		}

		q.safeCandleCallback(sub, q.callbackFor(sub), candle)
	}
}

func (q *RequestQueue) safeCandleCallback(sub *subscription, fn CandleCallback, candle types.Candle) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("Candle callback panicked",
				zap.String("asset", sub.key.asset),
				zap.Int("period", sub.key.period),
				zap.Any("panic", r),
			)
		}
	}()

	fn(candle)
}

// stopSubscriptions ends every delivery goroutine and releases the remote streams.
func (q *RequestQueue) stopSubscriptions() {
	q.subsMu.Lock()
	subs := q.subs
	q.subs = make(map[subKey]*subscription)
	cancelAll := q.streamCancel
	q.subsMu.Unlock()

	if cancelAll != nil {
		cancelAll()
	}

	if len(subs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.config.CallbackTimeout)
	defer cancel()

	for key, sub := range subs {
		<-sub.done

		if err := q.exec.StopCandleStream(ctx, key.asset, key.period); err != nil {
			q.log.Debug("Stop candle stream failed", zap.String("asset", key.asset), zap.Error(err))
		}
	}
}
