package main

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/session"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	demoPeriod        = 60
	demoRequestWindow = 30 * time.Second
)

type demoOptions struct {
	Trades        int
	TradeDuration int
	// StreamFor is how long candles are watched before and after the forced reconnection
	StreamFor time.Duration
	Out       io.Writer
}

// runDemo walks through the client features against the connected app.
func runDemo(ctx context.Context, a *app, opts demoOptions) error {
	out := opts.Out
	account := a.session.Account()

	fmt.Fprintf(out, "Balance: %s (demo %s)\n", account.BalanceReal.StringFixed(2), account.BalanceDemo.StringFixed(2))

	best := a.assets.Best(3)
	if len(best) == 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "no open asset satisfies the payout filter")
	}

	fmt.Fprintln(out, "Best assets:")

	for _, asset := range best {
		fmt.Fprintf(out, "  %-10s %-10s %5.1f%%\n", asset.Name, asset.Category, asset.Payout)
	}

	asset := best[0].Name

	var received atomic.Int64

	if err := a.subscribe(ctx, asset, func(candle types.Candle) {
		received.Add(1)
		a.log.Debug("Candle", zap.String("asset", candle.Asset), zap.Float64("close", candle.Close))
	}); err != nil {
		return err
	}

	if err := sleepContext(ctx, opts.StreamFor); err != nil {
		return err
	}

	fmt.Fprintf(out, "Streamed %d candles for %s\n", received.Load(), asset)

	// simulate the server dropping us, then recover without waiting for the next ping
	a.transport.DropConnection()

	if err := a.watchdog.ForceReconnect(ctx); err != nil {
		return err
	}

	before := received.Load()

	if err := sleepContext(ctx, opts.StreamFor); err != nil {
		return err
	}

	fmt.Fprintf(out, "Reconnected (session %d), %d candles since\n", a.handle.Epoch(), received.Load()-before)

	records, err := a.placeParallelTrades(ctx, asset, opts.Trades, opts.TradeDuration)
	if err != nil {
		return err
	}

	for _, record := range records {
		outcome := "open"
		if record.Win.IsSome() {
			outcome = "lost"
			if record.Win.Unwrap() {
				outcome = "won"
			}
		}

		fmt.Fprintf(out, "Trade %s %s %s: %s (%s)\n",
			shortID(record.ID), record.Asset, record.Direction, outcome, record.Profit.StringFixed(2))
	}

	printSummary(out, a)

	return nil
}

func (a *app) subscribe(ctx context.Context, asset string, onCandle func(types.Candle)) error {
	f, err := a.queue.SubscribeCandles(asset, demoPeriod, onCandle, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, demoRequestWindow)
	defer cancel()

	resp, err := f.Wait(ctx)
	if err != nil {
		return err
	}

	if !resp.Success {
		return resp.Err
	}

	return nil
}

// placeParallelTrades opens n trades at once, alternating direction, and waits for all results.
func (a *app) placeParallelTrades(ctx context.Context, asset string, n, duration int) ([]session.TradeRecord, error) {
	records := make([]session.TradeRecord, n)
	stake := decimal.NewFromFloat(a.cfg.Session.DefaultStake)

	g, ctx := errgroup.WithContext(ctx)

	for i := range n {
		direction := types.DirectionCall
		if i%2 == 1 {
			direction = types.DirectionPut
		}

		g.Go(func() error {
			record, err := a.session.RecordTrade(ctx, asset, stake, direction, duration, true)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeTradeFailed, err, "trade %d", i+1)
			}

			records[i] = record

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

func printSummary(out io.Writer, a *app) {
	summary := a.session.Summary()
	wd := a.watchdog.Stats()
	q := a.queue.Stats()
	as := a.assets.Stats()

	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  balance     %s (profit %s, ROI %.2f%%)\n",
		summary.Account.BalanceReal.StringFixed(2), summary.Account.TotalProfit.StringFixed(2), summary.ROI)
	fmt.Fprintf(out, "  trades      %d (win rate %.1f%%)\n", summary.TotalTrades, summary.WinRate)
	fmt.Fprintf(out, "  watchdog    %s, %d reconnects\n", wd.Phase, wd.TotalReconnects)
	fmt.Fprintf(out, "  queue       %d processed, %d failed, %d subscriptions\n",
		q.ProcessedCount, q.FailedCount, q.ActiveSubscriptions)
	fmt.Fprintf(out, "  assets      %d of %d available\n", as.AvailableAssets, as.TotalAssets)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
