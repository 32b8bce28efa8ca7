// Package session keeps in-memory account bookkeeping: balances polled through the request
// queue, the trade history and the derived win-rate and ROI figures.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Requester is the part of the request queue the session uses. *queue.RequestQueue implements it.
type Requester interface {
	GetBalance(cb queue.Callback) (*queue.Future, error)
	PlaceTrade(asset string, amount decimal.Decimal, direction types.Direction, duration int, cb queue.Callback) (*queue.Future, error)
	PlaceTradeAndWait(asset string, amount decimal.Decimal, direction types.Direction, duration int, cb queue.Callback) (*queue.Future, error)
}

// TradeRecord is a trade executed through the session.
type TradeRecord struct {
	ID        string            `json:"id"`
	Asset     string            `json:"asset"`
	Amount    decimal.Decimal   `json:"amount"`
	Direction types.Direction   `json:"direction"`
	Duration  int               `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
	Status    types.TradeStatus `json:"status"`
	// Win is None while the trade is unsettled
	Win    optional.Option[bool] `json:"win"`
	Profit decimal.Decimal       `json:"profit"`
}

func newTradeRecord(trade types.TradeResult) TradeRecord {
	record := TradeRecord{
		ID:        trade.ID,
		Asset:     trade.Asset,
		Amount:    trade.Amount,
		Direction: trade.Direction,
		Duration:  trade.Duration,
		Timestamp: trade.OpenedAt,
		Status:    trade.Status,
		Win:       optional.None[bool](),
		Profit:    decimal.Zero,
	}

	if trade.Outcome.IsSome() {
		outcome := trade.Outcome.Unwrap()
		record.Win = optional.Some(outcome.Win)
		record.Profit = outcome.Profit
	}

	return record
}

// Account is a snapshot of balances and trade statistics.
type Account struct {
	BalanceReal    decimal.Decimal `json:"balance_real"`
	BalanceDemo    decimal.Decimal `json:"balance_demo"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	TotalTrades    int             `json:"total_trades"`
	WinningTrades  int             `json:"winning_trades"`
	LosingTrades   int             `json:"losing_trades"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// WinRate is the percentage of recorded trades that won.
func (a Account) WinRate() float64 {
	if a.TotalTrades == 0 {
		return 0
	}

	return float64(a.WinningTrades) / float64(a.TotalTrades) * 100
}

// ROI is the total profit as a percentage of the initial balance.
func (a Account) ROI() float64 {
	if a.InitialBalance.IsZero() {
		return 0
	}

	return a.TotalProfit.Div(a.InitialBalance).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Summary is the session view published by the status server and the dashboard.
type Summary struct {
	Account      Account       `json:"account"`
	WinRate      float64       `json:"win_rate"`
	ROI          float64       `json:"roi"`
	TotalTrades  int           `json:"total_trades"`
	RecentTrades []TradeRecord `json:"recent_trades"`
	IsRunning    bool          `json:"is_running"`
}

// Session tracks one account.
type Session struct {
	queue  Requester
	config config.SessionConfig
	log    *logger.Logger

	mu      sync.RWMutex
	account Account
	trades  []TradeRecord

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(q Requester, cfg config.SessionConfig, log *logger.Logger) *Session {
	return &Session{
		queue:  q,
		config: cfg,
		log:    log.Component("session"),

		mu: sync.RWMutex{},
		account: Account{
			BalanceReal:    decimal.Zero,
			BalanceDemo:    decimal.Zero,
			InitialBalance: decimal.Zero,
			TotalTrades:    0,
			WinningTrades:  0,
			LosingTrades:   0,
			TotalProfit:    decimal.Zero,
			LastUpdated:    time.Time{},
		},
		trades: nil,

		loopMu: sync.Mutex{},
		cancel: nil,
		done:   nil,
	}
}

// Initialize fetches the current balance and takes the real balance as the ROI baseline.
func (s *Session) Initialize(ctx context.Context) error {
	s.log.Info("Initializing session")

	balance, err := s.fetchBalance(ctx)
	if err != nil {
		s.log.Error("Failed to initialize session", zap.Error(err))

		return err
	}

	s.mu.Lock()
	s.applyBalance(balance)
	s.account.InitialBalance = balance.Real
	s.mu.Unlock()

	s.log.Info("Session initialized", zap.String("balance", balance.Real.StringFixed(2)))

	return nil
}

// UpdateBalance refreshes both balances.
func (s *Session) UpdateBalance(ctx context.Context) error {
	balance, err := s.fetchBalance(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.applyBalance(balance)
	s.mu.Unlock()

	s.log.Debug("Balance updated", zap.String("balance", balance.Real.StringFixed(2)))

	return nil
}

func (s *Session) fetchBalance(ctx context.Context) (types.Balance, error) {
	f, err := s.queue.GetBalance(nil)
	if err != nil {
		return types.Balance{}, err
	}

	resp, err := f.Wait(ctx)
	if err != nil {
		return types.Balance{}, err
	}

	if !resp.Success {
		return types.Balance{}, resp.Err
	}

	balance, ok := resp.Data.(types.Balance)
	if !ok {
		return types.Balance{}, errors.Newf(errors.ErrCodeUnknown, "unexpected balance payload %T", resp.Data)
	}

	return balance, nil
}

func (s *Session) applyBalance(balance types.Balance) {
	s.account.BalanceReal = balance.Real
	s.account.BalanceDemo = balance.Demo
	s.account.LastUpdated = time.Now()
}

// RecordTrade places a trade through the queue and records it. With wait set the trade is
// recorded after it settled. The balance is refreshed afterwards; a failed refresh is logged.
func (s *Session) RecordTrade(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int, wait bool) (TradeRecord, error) {
	place := s.queue.PlaceTrade
	if wait {
		place = s.queue.PlaceTradeAndWait
	}

	f, err := place(asset, amount, direction, duration, nil)
	if err != nil {
		return TradeRecord{}, err
	}

	resp, err := f.Wait(ctx)
	if err != nil {
		return TradeRecord{}, err
	}

	if !resp.Success {
		s.log.Error("Trade placement failed",
			zap.String("asset", asset),
			zap.String("direction", string(direction)),
			zap.Error(resp.Err),
		)

		return TradeRecord{}, resp.Err
	}

	trade, ok := resp.Data.(types.TradeResult)
	if !ok {
		return TradeRecord{}, errors.Newf(errors.ErrCodeUnknown, "unexpected trade payload %T", resp.Data)
	}

	record := newTradeRecord(trade)

	s.mu.Lock()
	s.trades = append(s.trades, record)
	s.account.TotalTrades++

	if record.Win.IsSome() {
		if record.Win.Unwrap() {
			s.account.WinningTrades++
		} else {
			s.account.LosingTrades++
		}

		s.account.TotalProfit = s.account.TotalProfit.Add(record.Profit)
	}
	s.mu.Unlock()

	if err := s.UpdateBalance(ctx); err != nil {
		s.log.Warn("Balance refresh after trade failed", zap.Error(err))
	}

	s.log.Info("Trade recorded",
		zap.String("trade_id", record.ID),
		zap.String("asset", asset),
		zap.String("direction", string(direction)),
		zap.String("amount", amount.String()),
		zap.String("status", string(record.Status)),
	)

	return record, nil
}

// Account returns a snapshot of the account.
func (s *Session) Account() Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.account
}

// Trades returns a copy of the trade history, oldest first.
func (s *Session) Trades() []TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]TradeRecord(nil), s.trades...)
}

// RecentTrades returns up to n of the newest trades, oldest first.
func (s *Session) RecentTrades(n int) []TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return []TradeRecord{}
	}

	start := max(len(s.trades)-n, 0)

	return append([]TradeRecord{}, s.trades[start:]...)
}

func (s *Session) WinningTrades() []TradeRecord {
	return s.filter(func(win bool) bool { return win })
}

func (s *Session) LosingTrades() []TradeRecord {
	return s.filter(func(win bool) bool { return !win })
}

func (s *Session) filter(match func(win bool) bool) []TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []TradeRecord{}

	for _, t := range s.trades {
		if t.Win.IsSome() && match(t.Win.Unwrap()) {
			out = append(out, t)
		}
	}

	return out
}

// Summary returns the account with its derived figures and the five newest trades.
func (s *Session) Summary() Summary {
	account := s.Account()

	return Summary{
		Account:      account,
		WinRate:      account.WinRate(),
		ROI:          account.ROI(),
		TotalTrades:  account.TotalTrades,
		RecentTrades: s.RecentTrades(5),
		IsRunning:    s.IsRunning(),
	}
}

// Reset clears the history and statistics, keeping the current balance as the new baseline.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.account.BalanceReal
	s.account = Account{
		BalanceReal:    current,
		BalanceDemo:    s.account.BalanceDemo,
		InitialBalance: current,
		TotalTrades:    0,
		WinningTrades:  0,
		LosingTrades:   0,
		TotalProfit:    decimal.Zero,
		LastUpdated:    s.account.LastUpdated,
	}
	s.trades = nil

	s.log.Info("Session reset", zap.String("balance", current.StringFixed(2)))
}

// StartAutoUpdate polls the balance every BalanceUpdateInterval until StopAutoUpdate.
func (s *Session) StartAutoUpdate(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.done != nil {
		s.log.Warn("Auto-update already running")

		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.updateLoop(loopCtx, s.done)

	s.log.Info("Session auto-update started", zap.Duration("interval", s.config.BalanceUpdateInterval))
}

// StopAutoUpdate stops polling and waits for the loop to exit.
func (s *Session) StopAutoUpdate() {
	s.loopMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.loopMu.Unlock()

	if done == nil {
		return
	}

	cancel()
	<-done

	s.log.Info("Session auto-update stopped")
}

func (s *Session) IsRunning() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	return s.done != nil
}

func (s *Session) updateLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.BalanceUpdateInterval)
	defer ticker.Stop()

	for {
		if err := s.UpdateBalance(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("Balance update failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
