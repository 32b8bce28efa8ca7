// Package assets keeps the list of tradable assets fresh and ranks them for selection.
package assets

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"go.uber.org/zap"
)

// Requester is the part of the request queue the selector uses.
type Requester interface {
	GetAssets(cb queue.Callback) (*queue.Future, error)
}

// UpdateCallback receives the assets of each successful refresh.
type UpdateCallback func(assets []types.AssetInfo)

// Filter narrows a selection. Zero values select everything open.
type Filter struct {
	// MinPayout overrides the configured minimum when set
	MinPayout  float64
	Categories []types.AssetCategory
	// Exclude drops assets by name
	Exclude       []string
	PreferredOnly bool
	IncludeClosed bool
}

// Stats summarizes the selector state.
type Stats struct {
	TotalAssets     int           `json:"total_assets"`
	AvailableAssets int           `json:"available_assets"`
	IsRunning       bool          `json:"is_running"`
	UpdateInterval  time.Duration `json:"update_interval"`
	Callbacks       int           `json:"callbacks_registered"`
	LastRefresh     time.Time     `json:"last_refresh"`
}

// Selector caches asset information and picks trading candidates.
type Selector struct {
	queue  Requester
	config config.AssetsConfig
	log    *logger.Logger

	mu          sync.RWMutex
	assets      map[string]types.AssetInfo
	callbacks   []UpdateCallback
	lastRefresh time.Time

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(q Requester, cfg config.AssetsConfig, log *logger.Logger) *Selector {
	return &Selector{
		queue:  q,
		config: cfg,
		log:    log.Component("assets"),

		mu:          sync.RWMutex{},
		assets:      make(map[string]types.AssetInfo),
		callbacks:   nil,
		lastRefresh: time.Time{},

		loopMu: sync.Mutex{},
		cancel: nil,
		done:   nil,
	}
}

// OnUpdate registers an observer fired after every successful refresh.
func (s *Selector) OnUpdate(fn UpdateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks = append(s.callbacks, fn)
}

// Refresh fetches the asset list through the queue and notifies observers.
func (s *Selector) Refresh(ctx context.Context) error {
	f, err := s.queue.GetAssets(nil)
	if err != nil {
		return err
	}

	resp, err := f.Wait(ctx)
	if err != nil {
		return err
	}

	if !resp.Success {
		s.log.Warn("Asset refresh failed", zap.Error(resp.Err))

		return resp.Err
	}

	fetched, ok := resp.Data.([]types.AssetInfo)
	if !ok {
		return errors.Newf(errors.ErrCodeUnknown, "unexpected assets payload %T", resp.Data)
	}

	now := time.Now()
	updated := make([]types.AssetInfo, 0, len(fetched))

	s.mu.Lock()
	for _, a := range fetched {
		if a.Category == "" {
			a.Category = types.CategorizeAsset(a.Name)
		}

		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}

		s.assets[a.Name] = a
		updated = append(updated, a)
	}

	s.lastRefresh = now
	callbacks := append([]UpdateCallback(nil), s.callbacks...)
	s.mu.Unlock()

	s.log.Info("Updated assets", zap.Int("count", len(updated)))

	for _, fn := range callbacks {
		s.notify(fn, updated)
	}

	return nil
}

func (s *Selector) notify(fn UpdateCallback, updated []types.AssetInfo) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Asset update callback panicked", zap.Any("panic", r))
		}
	}()

	fn(append([]types.AssetInfo(nil), updated...))
}

// Get returns the cached information for name.
func (s *Selector) Get(name string) (types.AssetInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[name]

	return a, ok
}

// Available returns the open assets sorted by name.
func (s *Selector) Available() []types.AssetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []types.AssetInfo{}

	for _, a := range s.assets {
		if a.IsOpen {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Select returns the assets matching f: preferred assets first, then by score descending.
func (s *Selector) Select(f Filter) []types.AssetInfo {
	minPayout := s.config.MinPayout
	if f.MinPayout > 0 {
		minPayout = f.MinPayout
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []types.AssetInfo{}

	for _, a := range s.assets {
		if !f.IncludeClosed && !a.IsOpen {
			continue
		}

		if a.Payout < minPayout {
			continue
		}

		if len(f.Categories) > 0 && !slices.Contains(f.Categories, a.Category) {
			continue
		}

		if slices.Contains(f.Exclude, a.Name) {
			continue
		}

		if f.PreferredOnly && !s.preferred(a.Name) {
			continue
		}

		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := s.preferred(out[i].Name), s.preferred(out[j].Name)
		if pi != pj {
			return pi
		}

		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}

		return out[i].Name < out[j].Name
	})

	return out
}

func (s *Selector) preferred(name string) bool {
	return slices.Contains(s.config.PreferredAssets, name)
}

// Best returns up to n open assets paying at least the configured minimum.
func (s *Selector) Best(n int) []types.AssetInfo {
	selected := s.Select(Filter{}) //nolint:exhaustruct
	if n >= 0 && len(selected) > n {
		selected = selected[:n]
	}

	return selected
}

// BestAsset returns the top candidate, if any.
func (s *Selector) BestAsset(f Filter) (types.AssetInfo, bool) {
	selected := s.Select(f)
	if len(selected) == 0 {
		return types.AssetInfo{}, false
	}

	return selected[0], true
}

func (s *Selector) Stats() Stats {
	running := s.IsRunning()

	s.mu.RLock()
	defer s.mu.RUnlock()

	available := 0

	for _, a := range s.assets {
		if a.IsOpen {
			available++
		}
	}

	return Stats{
		TotalAssets:     len(s.assets),
		AvailableAssets: available,
		IsRunning:       running,
		UpdateInterval:  s.config.UpdateInterval,
		Callbacks:       len(s.callbacks),
		LastRefresh:     s.lastRefresh,
	}
}

// StartAutoUpdate refreshes immediately and then every UpdateInterval.
func (s *Selector) StartAutoUpdate(ctx context.Context) {
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

	s.log.Info("Asset auto-update started", zap.Duration("interval", s.config.UpdateInterval))
}

func (s *Selector) StopAutoUpdate() {
	s.loopMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.loopMu.Unlock()

	if done == nil {
		return
	}

	cancel()
	<-done

	s.log.Info("Asset auto-update stopped")
}

func (s *Selector) IsRunning() bool {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	return s.done != nil
}

func (s *Selector) updateLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.UpdateInterval)
	defer ticker.Stop()

	for {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("Asset update failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
