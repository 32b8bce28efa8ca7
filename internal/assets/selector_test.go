package assets

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/connection"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/transport"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SelectorTestSuite struct {
	suite.Suite
	ctx    context.Context
	sim    *transport.SimulatedTransport
	handle *connection.Handle
	queue  *queue.RequestQueue
}

func TestSelectorSuite(t *testing.T) {
	suite.Run(t, new(SelectorTestSuite))
}

func (suite *SelectorTestSuite) SetupTest() {
	suite.ctx = context.Background()
	log := logger.NewNopLogger()

	suite.sim = transport.NewSimulatedTransport(transport.DefaultSimulatedConfig())
	suite.sim.SetAssets([]types.AssetInfo{
		{Name: "EURUSD", Category: types.AssetCategoryForex, IsOpen: true, Payout: 85},
		{Name: "GBPUSD", Category: types.AssetCategoryForex, IsOpen: true, Payout: 90},
		{Name: "USDJPY", Category: types.AssetCategoryForex, IsOpen: false, Payout: 95},
		{Name: "BTCUSD", IsOpen: true, Payout: 80},
		{Name: "GOLD", IsOpen: true, Payout: 60},
	})

	suite.handle = connection.NewHandle(suite.sim, 4, log)
	suite.Require().NoError(suite.handle.Connect(suite.ctx))

	q, err := queue.New(suite.handle, config.DefaultQueue(), log)
	suite.Require().NoError(err)
	suite.Require().NoError(q.Start(suite.ctx))

	suite.queue = q
}

func (suite *SelectorTestSuite) TearDownTest() {
	suite.NoError(suite.queue.Stop(suite.ctx))
}

func (suite *SelectorTestSuite) newSelector(preferred ...string) *Selector {
	cfg := config.AssetsConfig{
		MinPayout:       70,
		PreferredAssets: preferred,
		UpdateInterval:  20 * time.Millisecond,
	}

	return New(suite.queue, cfg, logger.NewNopLogger())
}

func names(assets []types.AssetInfo) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Name)
	}

	return out
}

func (suite *SelectorTestSuite) TestRefreshAndAvailable() {
	s := suite.newSelector()
	suite.Require().NoError(s.Refresh(suite.ctx))

	suite.Equal([]string{"BTCUSD", "EURUSD", "GBPUSD", "GOLD"}, names(s.Available()))

	btc, ok := s.Get("BTCUSD")
	suite.Require().True(ok)
	suite.Equal(types.AssetCategoryCrypto, btc.Category)
	suite.False(btc.UpdatedAt.IsZero())

	_, ok = s.Get("XAUUSD")
	suite.False(ok)

	stats := s.Stats()
	suite.Equal(5, stats.TotalAssets)
	suite.Equal(4, stats.AvailableAssets)
	suite.False(stats.IsRunning)
}

func (suite *SelectorTestSuite) TestBestRanksByPayout() {
	s := suite.newSelector()
	suite.Require().NoError(s.Refresh(suite.ctx))

	// closed USDJPY and low-paying GOLD are excluded
	suite.Equal([]string{"GBPUSD", "EURUSD", "BTCUSD"}, names(s.Best(10)))
	suite.Equal([]string{"GBPUSD", "EURUSD"}, names(s.Best(2)))
	suite.Empty(s.Best(0))
}

func (suite *SelectorTestSuite) TestPreferredAssetsComeFirst() {
	s := suite.newSelector("BTCUSD")
	suite.Require().NoError(s.Refresh(suite.ctx))

	suite.Equal([]string{"BTCUSD", "GBPUSD", "EURUSD"}, names(s.Best(3)))
	suite.Equal([]string{"BTCUSD"}, names(s.Select(Filter{PreferredOnly: true})))
}

func (suite *SelectorTestSuite) TestSelectFilters() {
	s := suite.newSelector()
	suite.Require().NoError(s.Refresh(suite.ctx))

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "forex only", filter: Filter{Categories: []types.AssetCategory{types.AssetCategoryForex}}, want: []string{"GBPUSD", "EURUSD"}},
		{name: "higher minimum", filter: Filter{MinPayout: 86}, want: []string{"GBPUSD"}},
		{name: "exclude", filter: Filter{Exclude: []string{"GBPUSD"}}, want: []string{"EURUSD", "BTCUSD"}},
		{name: "closed included", filter: Filter{IncludeClosed: true}, want: []string{"USDJPY", "GBPUSD", "EURUSD", "BTCUSD"}},
		{name: "nothing matches", filter: Filter{MinPayout: 99}, want: []string{}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.want, names(s.Select(tt.filter)))
		})
	}

	best, ok := s.BestAsset(Filter{Exclude: []string{"GBPUSD"}})
	suite.True(ok)
	suite.Equal("EURUSD", best.Name)

	_, ok = s.BestAsset(Filter{MinPayout: 99})
	suite.False(ok)
}

func (suite *SelectorTestSuite) TestOnUpdateObservers() {
	s := suite.newSelector()

	var got []types.AssetInfo

	s.OnUpdate(func([]types.AssetInfo) { panic("observer failure") })
	s.OnUpdate(func(assets []types.AssetInfo) { got = assets })

	suite.Require().NoError(s.Refresh(suite.ctx))
	suite.Len(got, 5)
	suite.Equal(2, s.Stats().Callbacks)
}

func (suite *SelectorTestSuite) TestRefreshFailsWhenDisconnected() {
	s := suite.newSelector()
	suite.Require().NoError(suite.handle.Disconnect(suite.ctx))

	err := s.Refresh(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeNotConnected))
	suite.Empty(s.Available())
}

func (suite *SelectorTestSuite) TestAutoUpdate() {
	s := suite.newSelector()

	var refreshes atomic.Int32

	s.OnUpdate(func([]types.AssetInfo) { refreshes.Add(1) })

	s.StartAutoUpdate(suite.ctx)
	s.StartAutoUpdate(suite.ctx)
	suite.True(s.Stats().IsRunning)

	suite.Eventually(func() bool { return refreshes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.StopAutoUpdate()
	suite.False(s.IsRunning())

	after := refreshes.Load()

	time.Sleep(60 * time.Millisecond)
	suite.Equal(after, refreshes.Load())
}
