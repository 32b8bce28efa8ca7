package transport

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SimulatedTransportTestSuite struct {
	suite.Suite
	transport *SimulatedTransport
	ctx       context.Context
}

func TestSimulatedTransportSuite(t *testing.T) {
	suite.Run(t, new(SimulatedTransportTestSuite))
}

func (suite *SimulatedTransportTestSuite) SetupTest() {
	config := DefaultSimulatedConfig()
	config.Seed = 42
	suite.transport = NewSimulatedTransport(config)
	suite.ctx = context.Background()
}

func (suite *SimulatedTransportTestSuite) connect() {
	suite.Require().NoError(suite.transport.Connect(suite.ctx))
}

func (suite *SimulatedTransportTestSuite) TestCallsRequireConnection() {
	suite.False(suite.transport.IsConnected())

	_, err := suite.transport.GetBalance(suite.ctx)
	suite.Error(err)

	ok, err := suite.transport.Ping(suite.ctx)
	suite.NoError(err)
	suite.False(ok)

	suite.connect()
	suite.True(suite.transport.IsConnected())

	ok, err = suite.transport.Ping(suite.ctx)
	suite.NoError(err)
	suite.True(ok)
	suite.Equal(2, suite.transport.PingCalls())
}

func (suite *SimulatedTransportTestSuite) TestBalanceAndAssets() {
	suite.connect()

	balance, err := suite.transport.GetBalance(suite.ctx)
	suite.NoError(err)
	suite.True(balance.Real.Equal(decimal.NewFromInt(10000)))
	suite.True(balance.Demo.IsZero())

	assets, err := suite.transport.GetAssets(suite.ctx)
	suite.NoError(err)
	suite.Len(assets, 5)
	suite.Equal("EURUSD", assets[0].Name)
	suite.Equal(85.0, assets[0].Payout)
	suite.False(assets[0].UpdatedAt.IsZero())
}

func (suite *SimulatedTransportTestSuite) TestGetCandles() {
	suite.connect()

	candles, err := suite.transport.GetCandles(suite.ctx, "EURUSD", 60, 10)
	suite.NoError(err)
	suite.Len(candles, 10)

	for i, c := range candles {
		suite.Equal("EURUSD", c.Asset)
		suite.GreaterOrEqual(c.High, c.Open)
		suite.GreaterOrEqual(c.High, c.Close)
		suite.LessOrEqual(c.Low, c.Open)
		suite.LessOrEqual(c.Low, c.Close)

		if i > 0 {
			suite.Equal(60*time.Second, c.Time.Sub(candles[i-1].Time))
			suite.Equal(candles[i-1].Close, c.Open)
		}
	}

	_, err = suite.transport.GetCandles(suite.ctx, "EURUSD", 0, 10)
	suite.Error(err)
}

func (suite *SimulatedTransportTestSuite) TestBuyAndCheckWin() {
	suite.connect()

	trade, err := suite.transport.Buy(suite.ctx, "EURUSD", decimal.NewFromInt(10), types.DirectionCall, 60)
	suite.Require().NoError(err)
	suite.NotEmpty(trade.ID)
	suite.Equal(types.TradeStatusOpen, trade.Status)

	outcome, err := suite.transport.CheckWin(suite.ctx, trade.ID)
	suite.Require().NoError(err)

	if outcome.Win {
		suite.True(outcome.Profit.Equal(decimal.NewFromFloat(8.5)))
	} else {
		suite.True(outcome.Profit.Equal(decimal.NewFromInt(-10)))
	}

	// settlement is applied once
	again, err := suite.transport.CheckWin(suite.ctx, trade.ID)
	suite.NoError(err)
	suite.Equal(outcome, again)

	balance, err := suite.transport.GetBalance(suite.ctx)
	suite.NoError(err)
	suite.True(balance.Real.Equal(decimal.NewFromInt(10000).Add(outcome.Profit)))

	_, err = suite.transport.CheckWin(suite.ctx, "missing")
	suite.Error(err)
}

func (suite *SimulatedTransportTestSuite) TestBuyRejectsInvalidTrades() {
	suite.connect()

	tests := []struct {
		name      string
		asset     string
		amount    decimal.Decimal
		direction types.Direction
		duration  int
	}{
		{name: "zero amount", asset: "EURUSD", amount: decimal.Zero, direction: types.DirectionCall, duration: 60},
		{name: "bad direction", asset: "EURUSD", amount: decimal.NewFromInt(1), direction: "sideways", duration: 60},
		{name: "zero duration", asset: "EURUSD", amount: decimal.NewFromInt(1), direction: types.DirectionPut, duration: 0},
		{name: "unknown asset", asset: "XAUUSD", amount: decimal.NewFromInt(1), direction: types.DirectionPut, duration: 60},
		{name: "insufficient balance", asset: "EURUSD", amount: decimal.NewFromInt(20000), direction: types.DirectionPut, duration: 60},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.transport.Buy(suite.ctx, tt.asset, tt.amount, tt.direction, tt.duration)
			suite.Error(err)
		})
	}
}

func (suite *SimulatedTransportTestSuite) TestCandleStream() {
	suite.connect()

	latest, err := suite.transport.LatestCandle(suite.ctx, "EURUSD", 60)
	suite.NoError(err)
	suite.True(latest.IsNone())

	suite.NoError(suite.transport.StartCandleStream(suite.ctx, "EURUSD", 60))

	first, err := suite.transport.LatestCandle(suite.ctx, "EURUSD", 60)
	suite.NoError(err)
	suite.True(first.IsSome())

	second, err := suite.transport.LatestCandle(suite.ctx, "EURUSD", 60)
	suite.NoError(err)
	suite.Equal(first.Unwrap().Close, second.Unwrap().Open)
	suite.True(second.Unwrap().Time.After(first.Unwrap().Time))

	suite.NoError(suite.transport.StopCandleStream(suite.ctx, "EURUSD", 60))

	latest, err = suite.transport.LatestCandle(suite.ctx, "EURUSD", 60)
	suite.NoError(err)
	suite.True(latest.IsNone())
}

func (suite *SimulatedTransportTestSuite) TestFaultInjection() {
	suite.transport.FailConnects(2)
	suite.Error(suite.transport.Connect(suite.ctx))
	suite.Error(suite.transport.Connect(suite.ctx))
	suite.NoError(suite.transport.Connect(suite.ctx))
	suite.Equal(3, suite.transport.ConnectCalls())

	suite.transport.SetPingMode(PingError)
	_, err := suite.transport.Ping(suite.ctx)
	suite.Error(err)

	suite.transport.SetPingMode(PingFalse)
	ok, err := suite.transport.Ping(suite.ctx)
	suite.NoError(err)
	suite.False(ok)

	suite.transport.SetPingMode(PingHang)
	ctx, cancel := context.WithTimeout(suite.ctx, 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = suite.transport.Ping(ctx)
	suite.ErrorIs(err, context.DeadlineExceeded)
	suite.GreaterOrEqual(time.Since(start), 20*time.Millisecond)

	suite.transport.SetPingMode(PingOK)
	suite.transport.DropConnection()
	suite.False(suite.transport.IsConnected())

	_, err = suite.transport.GetAssets(suite.ctx)
	suite.Error(err)
}

func (suite *SimulatedTransportTestSuite) TestLatencyHonoursContext() {
	config := DefaultSimulatedConfig()
	config.Latency = time.Second
	slow := NewSimulatedTransport(config)

	ctx, cancel := context.WithTimeout(suite.ctx, 10*time.Millisecond)
	defer cancel()

	suite.ErrorIs(slow.Connect(ctx), context.DeadlineExceeded)
	suite.False(slow.IsConnected())
}

func (suite *SimulatedTransportTestSuite) TestSetAssets() {
	suite.connect()
	suite.transport.SetAssets([]types.AssetInfo{{Name: "EURUSD", IsOpen: false, Payout: 90}})

	_, err := suite.transport.Buy(suite.ctx, "EURUSD", decimal.NewFromInt(1), types.DirectionCall, 60)
	suite.Error(err)

	assets, err := suite.transport.GetAssets(suite.ctx)
	suite.NoError(err)
	suite.Len(assets, 1)
}
