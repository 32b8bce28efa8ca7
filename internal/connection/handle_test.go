package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/mocks"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type HandleTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	transport *mocks.MockTransport
	handle    *Handle
	ctx       context.Context
}

func TestHandleSuite(t *testing.T) {
	suite.Run(t, new(HandleTestSuite))
}

func (suite *HandleTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.transport = mocks.NewMockTransport(suite.ctrl)
	suite.handle = NewHandle(suite.transport, 2, logger.NewNopLogger())
	suite.ctx = context.Background()
}

func (suite *HandleTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *HandleTestSuite) connect() {
	suite.transport.EXPECT().Connect(gomock.Any()).Return(nil)
	suite.Require().NoError(suite.handle.Connect(suite.ctx))
}

func (suite *HandleTestSuite) TestInitialState() {
	suite.Equal(types.ConnectionStateDisconnected, suite.handle.State())
	suite.False(suite.handle.IsConnected())
	suite.Equal(uint64(0), suite.handle.Epoch())
}

func (suite *HandleTestSuite) TestConnect() {
	suite.connect()
	suite.Equal(types.ConnectionStateConnected, suite.handle.State())
	suite.Equal(uint64(1), suite.handle.Epoch())

	// already connected is a no-op
	suite.transport.EXPECT().IsConnected().Return(true)
	suite.NoError(suite.handle.Connect(suite.ctx))
	suite.Equal(uint64(1), suite.handle.Epoch())
}

func (suite *HandleTestSuite) TestConnectFailure() {
	suite.transport.EXPECT().Connect(gomock.Any()).Return(fmt.Errorf("refused"))

	err := suite.handle.Connect(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeTransport))
	suite.Equal(types.ConnectionStateDisconnected, suite.handle.State())
}

func (suite *HandleTestSuite) TestConnectFailureWhileReconnecting() {
	suite.handle.MarkReconnecting()
	suite.transport.EXPECT().Connect(gomock.Any()).Return(fmt.Errorf("refused"))

	suite.Error(suite.handle.Connect(suite.ctx))
	suite.Equal(types.ConnectionStateReconnecting, suite.handle.State())

	suite.transport.EXPECT().Connect(gomock.Any()).Return(nil)
	suite.NoError(suite.handle.Connect(suite.ctx))
	suite.Equal(types.ConnectionStateConnected, suite.handle.State())
}

func (suite *HandleTestSuite) TestDisconnectAlwaysEndsDisconnected() {
	suite.connect()

	suite.transport.EXPECT().Disconnect(gomock.Any()).Return(fmt.Errorf("already closed"))
	err := suite.handle.Disconnect(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeTransport))
	suite.Equal(types.ConnectionStateDisconnected, suite.handle.State())
}

func (suite *HandleTestSuite) TestResetKeepsState() {
	suite.connect()
	suite.handle.MarkReconnecting()

	suite.transport.EXPECT().Disconnect(gomock.Any()).Return(nil)
	suite.NoError(suite.handle.Reset(suite.ctx))
	suite.Equal(types.ConnectionStateReconnecting, suite.handle.State())
}

func (suite *HandleTestSuite) TestFailFastWhenNotConnected() {
	// no transport expectations: any call would fail the test
	_, err := suite.handle.GetBalance(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))

	_, err = suite.handle.Ping(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))

	suite.handle.MarkReconnecting()
	_, err = suite.handle.GetCandles(suite.ctx, "EURUSD", 60, 10)
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))
	suite.Contains(err.Error(), "reconnecting")

	err = suite.handle.StartCandleStream(suite.ctx, "EURUSD", 60)
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))
}

func (suite *HandleTestSuite) TestDomainCallsDelegate() {
	suite.connect()

	balance := types.Balance{Real: decimal.NewFromInt(100), Demo: decimal.Zero}
	suite.transport.EXPECT().GetBalance(gomock.Any()).Return(balance, nil)
	suite.transport.EXPECT().GetAssets(gomock.Any()).Return([]types.AssetInfo{{Name: "EURUSD"}}, nil)
	suite.transport.EXPECT().GetCandles(gomock.Any(), "EURUSD", 60, 5).Return(make([]types.Candle, 5), nil)
	suite.transport.EXPECT().StartCandleStream(gomock.Any(), "EURUSD", 60).Return(nil)
	suite.transport.EXPECT().LatestCandle(gomock.Any(), "EURUSD", 60).Return(optional.Some(types.Candle{Close: 1.2}), nil)
	suite.transport.EXPECT().StopCandleStream(gomock.Any(), "EURUSD", 60).Return(nil)
	suite.transport.EXPECT().Ping(gomock.Any()).Return(true, nil)

	got, err := suite.handle.GetBalance(suite.ctx)
	suite.NoError(err)
	suite.Equal(balance, got)

	assets, err := suite.handle.GetAssets(suite.ctx)
	suite.NoError(err)
	suite.Len(assets, 1)

	candles, err := suite.handle.GetCandles(suite.ctx, "EURUSD", 60, 5)
	suite.NoError(err)
	suite.Len(candles, 5)

	suite.NoError(suite.handle.StartCandleStream(suite.ctx, "EURUSD", 60))

	latest, err := suite.handle.LatestCandle(suite.ctx, "EURUSD", 60)
	suite.NoError(err)
	suite.Equal(1.2, latest.Unwrap().Close)

	suite.NoError(suite.handle.StopCandleStream(suite.ctx, "EURUSD", 60))

	ok, err := suite.handle.Ping(suite.ctx)
	suite.NoError(err)
	suite.True(ok)
}

func (suite *HandleTestSuite) TestTransportErrorsAreWrapped() {
	suite.connect()

	cause := fmt.Errorf("socket closed")
	suite.transport.EXPECT().GetAssets(gomock.Any()).Return(nil, cause)
	suite.transport.EXPECT().Ping(gomock.Any()).Return(false, cause)

	_, err := suite.handle.GetAssets(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeTransport))
	suite.ErrorIs(err, cause)

	_, err = suite.handle.Ping(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeTransport))
}

func (suite *HandleTestSuite) TestContextDeadlineBecomesTimeout() {
	suite.connect()

	suite.transport.EXPECT().GetBalance(gomock.Any()).DoAndReturn(func(ctx context.Context) (types.Balance, error) {
		<-ctx.Done()

		return types.Balance{}, ctx.Err()
	})

	ctx, cancel := context.WithTimeout(suite.ctx, 10*time.Millisecond)
	defer cancel()

	_, err := suite.handle.GetBalance(ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeTimeout))
}

func (suite *HandleTestSuite) TestInFlightCallsAreBounded() {
	suite.connect()

	var (
		current atomic.Int32
		peak    atomic.Int32
	)

	suite.transport.EXPECT().GetBalance(gomock.Any()).Times(6).DoAndReturn(func(_ context.Context) (types.Balance, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)
		current.Add(-1)

		return types.Balance{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := suite.handle.GetBalance(suite.ctx)
			suite.NoError(err)
		}()
	}

	wg.Wait()
	suite.LessOrEqual(peak.Load(), int32(2))
	suite.GreaterOrEqual(peak.Load(), int32(1))
}

func (suite *HandleTestSuite) TestBuyAndWait() {
	suite.connect()

	trade := types.TradeResult{ID: "t-1", Asset: "EURUSD", Amount: decimal.NewFromInt(5), Status: types.TradeStatusOpen}
	outcome := types.WinResult{Win: true, Profit: decimal.NewFromFloat(4.25)}

	suite.transport.EXPECT().Buy(gomock.Any(), "EURUSD", decimal.NewFromInt(5), types.DirectionCall, 1).Return(trade, nil)
	suite.transport.EXPECT().CheckWin(gomock.Any(), "t-1").Return(outcome, nil)

	result, err := suite.handle.BuyAndWait(suite.ctx, "EURUSD", decimal.NewFromInt(5), types.DirectionCall, 1)
	suite.Require().NoError(err)
	suite.Equal(types.TradeStatusWon, result.Status)
	suite.Equal(outcome, result.Outcome.Unwrap())
}

func (suite *HandleTestSuite) TestBuyAndWaitFailsAcrossReconnect() {
	suite.connect()

	trade := types.TradeResult{ID: "t-2", Asset: "EURUSD", Amount: decimal.NewFromInt(5), Status: types.TradeStatusOpen}
	suite.transport.EXPECT().Buy(gomock.Any(), "EURUSD", gomock.Any(), types.DirectionPut, 1).Return(trade, nil)
	suite.transport.EXPECT().Connect(gomock.Any()).Return(nil)
	// CheckWin must not be called on the new session

	go func() {
		time.Sleep(100 * time.Millisecond)
		suite.handle.MarkReconnecting()
		_ = suite.handle.Connect(suite.ctx)
	}()

	result, err := suite.handle.BuyAndWait(suite.ctx, "EURUSD", decimal.NewFromInt(5), types.DirectionPut, 1)
	suite.True(errors.HasCode(err, errors.ErrCodeTradeFailed))
	suite.Equal("t-2", result.ID)
	suite.Equal(uint64(2), suite.handle.Epoch())
}

func (suite *HandleTestSuite) TestBuyAndWaitCancelled() {
	suite.connect()

	trade := types.TradeResult{ID: "t-3"}
	suite.transport.EXPECT().Buy(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), 60).Return(trade, nil)

	ctx, cancel := context.WithTimeout(suite.ctx, 20*time.Millisecond)
	defer cancel()

	_, err := suite.handle.BuyAndWait(ctx, "EURUSD", decimal.NewFromInt(1), types.DirectionCall, 60)
	suite.True(errors.HasCode(err, errors.ErrCodeTimeout))
}
