package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/shopspring/decimal"
)

// PingMode selects how SimulatedTransport answers pings.
type PingMode int

const (
	// PingOK answers true while connected.
	PingOK PingMode = iota
	// PingFalse answers false without an error.
	PingFalse
	// PingError fails every ping with an error.
	PingError
	// PingHang blocks until the caller's context is done.
	PingHang
)

// SimulatedConfig configures the dry-run transport.
type SimulatedConfig struct {
	// Seed makes candles and trade outcomes reproducible
	Seed int64
	// Latency is added to every remote call
	Latency time.Duration
	// WinRate is the probability that a trade wins (0..1)
	WinRate float64
	// PayoutRatio is the profit ratio paid on a winning trade
	PayoutRatio    float64
	InitialBalance decimal.Decimal
	Candles        CandleGeneratorConfig
}

// DefaultSimulatedConfig returns a coin-flip market paying 85% on wins with a 10000 balance.
func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Seed:           time.Now().UnixNano(),
		Latency:        0,
		WinRate:        0.5,
		PayoutRatio:    0.85,
		InitialBalance: decimal.NewFromInt(10000),
		Candles:        DefaultCandleGeneratorConfig(),
	}
}

// DefaultSimulatedAssets is the fixed asset list served by SimulatedTransport.
func DefaultSimulatedAssets() []types.AssetInfo {
	return []types.AssetInfo{
		{Name: "EURUSD", Category: types.AssetCategoryForex, IsOpen: true, Payout: 85},
		{Name: "GBPUSD", Category: types.AssetCategoryForex, IsOpen: true, Payout: 83},
		{Name: "USDJPY", Category: types.AssetCategoryForex, IsOpen: true, Payout: 84},
		{Name: "BTCUSD", Category: types.AssetCategoryCrypto, IsOpen: true, Payout: 80},
		{Name: "ETHUSD", Category: types.AssetCategoryCrypto, IsOpen: true, Payout: 81},
	}
}

type streamKey struct {
	asset  string
	period int
}

type simulatedTrade struct {
	result  types.TradeResult
	outcome optional.Option[types.WinResult]
}

// SimulatedTransport is an in-memory Transport. Besides serving synthetic market data it
// exposes fault injection hooks (ping failures, refused connects, silent drops).
type SimulatedTransport struct {
	mu     sync.Mutex
	config SimulatedConfig
	rng    *rand.Rand
	gen    *candleGenerator

	connected bool
	balance   types.Balance
	assets    []types.AssetInfo
	trades    map[string]*simulatedTrade
	streams   map[streamKey]types.Candle

	pingMode     PingMode
	failConnects int
	connectCalls int
	pingCalls    int
}

var _ Transport = (*SimulatedTransport)(nil)

// NewSimulatedTransport creates a disconnected simulated transport.
func NewSimulatedTransport(config SimulatedConfig) *SimulatedTransport {
	rng := rand.New(rand.NewSource(config.Seed)) //nolint:gosec

	return &SimulatedTransport{
		mu:     sync.Mutex{},
		config: config,
		rng:    rng,
		gen:    newCandleGenerator(rng, config.Candles),

		connected: false,
		balance: types.Balance{
			Real: config.InitialBalance,
			Demo: decimal.Zero,
		},
		assets:  DefaultSimulatedAssets(),
		trades:  make(map[string]*simulatedTrade),
		streams: make(map[streamKey]types.Candle),

		pingMode:     PingOK,
		failConnects: 0,
		connectCalls: 0,
		pingCalls:    0,
	}
}

// SetPingMode changes how subsequent pings are answered.
func (s *SimulatedTransport) SetPingMode(mode PingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pingMode = mode
}

// FailConnects makes the next n Connect calls fail.
func (s *SimulatedTransport) FailConnects(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failConnects = n
}

// DropConnection silently loses the session. Nothing is reported until the next call.
func (s *SimulatedTransport) DropConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
}

// SetAssets replaces the served asset list.
func (s *SimulatedTransport) SetAssets(assets []types.AssetInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets = append([]types.AssetInfo(nil), assets...)
}

// ConnectCalls returns how many times Connect was invoked.
func (s *SimulatedTransport) ConnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connectCalls
}

// PingCalls returns how many times Ping was invoked.
func (s *SimulatedTransport) PingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pingCalls
}

func (s *SimulatedTransport) Connect(ctx context.Context) error {
	if err := s.delay(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectCalls++

	if s.failConnects > 0 {
		s.failConnects--

		return fmt.Errorf("simulated connect failure (%d remaining)", s.failConnects)
	}

	s.connected = true

	return nil
}

func (s *SimulatedTransport) Disconnect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	s.streams = make(map[streamKey]types.Candle)

	return nil
}

func (s *SimulatedTransport) Ping(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.pingCalls++
	mode := s.pingMode
	connected := s.connected
	s.mu.Unlock()

	switch mode {
	case PingHang:
		<-ctx.Done()

		return false, ctx.Err()
	case PingError:
		return false, fmt.Errorf("simulated ping failure")
	case PingFalse:
		return false, nil
	case PingOK:
	}

	if err := s.delay(ctx); err != nil {
		return false, err
	}

	return connected, nil
}

func (s *SimulatedTransport) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

func (s *SimulatedTransport) GetBalance(ctx context.Context) (types.Balance, error) {
	if err := s.enter(ctx); err != nil {
		return types.Balance{}, err
	}
	defer s.mu.Unlock()

	return s.balance, nil
}

func (s *SimulatedTransport) GetAssets(ctx context.Context) ([]types.AssetInfo, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	now := time.Now()
	assets := make([]types.AssetInfo, len(s.assets))

	for i, a := range s.assets {
		a.UpdatedAt = now
		assets[i] = a
	}

	return assets, nil
}

func (s *SimulatedTransport) GetCandles(ctx context.Context, asset string, period int, count int) ([]types.Candle, error) {
	if period <= 0 || count <= 0 {
		return nil, fmt.Errorf("invalid candle request: period=%d count=%d", period, count)
	}

	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	return s.gen.history(asset, period, count, time.Now()), nil
}

func (s *SimulatedTransport) Buy(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int) (types.TradeResult, error) {
	if err := s.enter(ctx); err != nil {
		return types.TradeResult{}, err
	}
	defer s.mu.Unlock()

	if !amount.IsPositive() {
		return types.TradeResult{}, fmt.Errorf("amount must be positive, got %s", amount)
	}

	if !direction.Valid() {
		return types.TradeResult{}, fmt.Errorf("invalid direction %q", direction)
	}

	if duration <= 0 {
		return types.TradeResult{}, fmt.Errorf("duration must be positive, got %d", duration)
	}

	if !s.assetOpen(asset) {
		return types.TradeResult{}, fmt.Errorf("asset %s is not available", asset)
	}

	if amount.GreaterThan(s.balance.Real) {
		return types.TradeResult{}, fmt.Errorf("insufficient balance: %s < %s", s.balance.Real, amount)
	}

	result := types.TradeResult{
		ID:        uuid.NewString(),
		Asset:     asset,
		Amount:    amount,
		Direction: direction,
		Duration:  duration,
		OpenedAt:  time.Now(),
		Status:    types.TradeStatusOpen,
		Outcome:   optional.None[types.WinResult](),
	}

	s.trades[result.ID] = &simulatedTrade{
		result:  result,
		outcome: optional.None[types.WinResult](),
	}

	return result, nil
}

// CheckWin settles the trade on first call; later calls return the same outcome.
func (s *SimulatedTransport) CheckWin(ctx context.Context, tradeID string) (types.WinResult, error) {
	if err := s.enter(ctx); err != nil {
		return types.WinResult{}, err
	}
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return types.WinResult{}, fmt.Errorf("unknown trade %s", tradeID)
	}

	if trade.outcome.IsSome() {
		return trade.outcome.Unwrap(), nil
	}

	win := s.rng.Float64() < s.config.WinRate
	profit := trade.result.Amount.Neg()

	if win {
		profit = trade.result.Amount.Mul(decimal.NewFromFloat(s.config.PayoutRatio)).Round(2)
	}

	outcome := types.WinResult{
		Win:        win,
		Profit:     profit,
		ClosePrice: roundToDecimals(1.0+s.rng.Float64(), 5),
	}

	trade.outcome = optional.Some(outcome)
	s.balance.Real = s.balance.Real.Add(profit)

	return outcome, nil
}

func (s *SimulatedTransport) StartCandleStream(ctx context.Context, asset string, period int) error {
	if period <= 0 {
		return fmt.Errorf("invalid period %d", period)
	}

	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	key := streamKey{asset: asset, period: period}
	if _, ok := s.streams[key]; ok {
		return nil
	}

	step := time.Duration(period) * time.Second
	s.streams[key] = types.Candle{
		Asset:  asset,
		Period: period,
		Time:   time.Now().Truncate(step),
		Close:  s.config.Candles.InitialPrice,
	}

	return nil
}

func (s *SimulatedTransport) StopCandleStream(ctx context.Context, asset string, period int) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	delete(s.streams, streamKey{asset: asset, period: period})

	return nil
}

// LatestCandle advances the stream by one bar on each call.
func (s *SimulatedTransport) LatestCandle(ctx context.Context, asset string, period int) (optional.Option[types.Candle], error) {
	if err := s.enter(ctx); err != nil {
		return optional.None[types.Candle](), err
	}
	defer s.mu.Unlock()

	key := streamKey{asset: asset, period: period}

	last, ok := s.streams[key]
	if !ok {
		return optional.None[types.Candle](), nil
	}

	step := time.Duration(period) * time.Second
	candle := s.gen.next(asset, period, last.Time.Add(step), last.Close)
	s.streams[key] = candle

	return optional.Some(candle), nil
}

// enter applies latency then takes the lock, failing when the session is down.
// On success the caller must unlock.
func (s *SimulatedTransport) enter(ctx context.Context) error {
	if err := s.delay(ctx); err != nil {
		return err
	}

	s.mu.Lock()

	if !s.connected {
		s.mu.Unlock()

		return fmt.Errorf("simulated transport is not connected")
	}

	return nil
}

func (s *SimulatedTransport) delay(ctx context.Context) error {
	if s.config.Latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.config.Latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *SimulatedTransport) assetOpen(name string) bool {
	for _, a := range s.assets {
		if a.Name == name {
			return a.IsOpen
		}
	}

	return false
}
