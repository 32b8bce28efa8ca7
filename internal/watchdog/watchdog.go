// Package watchdog supervises the connection: it pings on a fixed cadence, detects silent
// disconnects and drives reconnection with bounded exponential back-off.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"go.uber.org/zap"
)

// Connection is the supervised connection. *connection.Handle implements it.
type Connection interface {
	Ping(ctx context.Context) (bool, error)
	Connect(ctx context.Context) error
	// Reset drops the current session without touching the state.
	Reset(ctx context.Context) error
	MarkReconnecting()
	MarkDisconnected()
	State() types.ConnectionState
}

// ReconnectCallback runs after a successful reconnection, before pings resume.
type ReconnectCallback func(ctx context.Context) error

// FailureCallback receives the error that ended reconnection.
type FailureCallback func(err error)

// Watchdog monitors a Connection. Stats are written only by the watchdog; readers get copies.
type Watchdog struct {
	conn   Connection
	config config.WatchdogConfig
	log    *logger.Logger

	mu    sync.Mutex
	stats Stats
	// runCtx lives from Start to Stop and outlives a loop that exited on exhaustion
	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}

	onReconnect []ReconnectCallback
	onFailure   []FailureCallback

	// reconnectMu serializes the reconnection procedure between the loop and ForceReconnect
	reconnectMu sync.Mutex
}

// New validates cfg and creates a stopped watchdog.
func New(conn Connection, cfg config.WatchdogConfig, log *logger.Logger) (*Watchdog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Watchdog{
		conn:   conn,
		config: cfg,
		log:    log.Component("watchdog"),

		mu: sync.Mutex{},
		stats: Stats{
			ConsecutiveFailures: 0,
			TotalReconnects:     0,
			LastPingTime:        optional.None[time.Time](),
			LastFailureTime:     optional.None[time.Time](),
			LastReconnectTime:   optional.None[time.Time](),
			IsRunning:           false,
			Phase:               PhaseIdle,
			Retry:               0,
		},
		runCtx: nil,
		cancel: nil,
		done:   nil,

		onReconnect: nil,
		onFailure:   nil,

		reconnectMu: sync.Mutex{},
	}, nil
}

// OnReconnect registers an observer fired once per successful reconnection.
func (w *Watchdog) OnReconnect(fn ReconnectCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onReconnect = append(w.onReconnect, fn)
}

// OnFailure registers an observer fired when reconnection is exhausted.
func (w *Watchdog) OnFailure(fn FailureCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.onFailure = append(w.onFailure, fn)
}

// Stats returns a snapshot of the watchdog statistics.
func (w *Watchdog) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stats
}

// BackoffDelay returns the wait before reconnection attempt retry (1-based):
// min(base * expBase^(retry-1), maxDelay).
func (w *Watchdog) BackoffDelay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}

	b := &backoff.Backoff{
		Min:    w.config.ReconnectBaseDelay,
		Max:    w.config.ReconnectMaxDelay,
		Factor: w.config.ReconnectExponentialBase,
		Jitter: false,
	}

	return b.ForAttempt(float64(retry - 1))
}

// Start launches the monitoring loop. Calling it while running is a no-op.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	w.runCtx, w.cancel = context.WithCancel(ctx)
	w.stats.Phase = PhaseIdle
	w.stats.Retry = 0

	w.log.Info("Watchdog started",
		zap.Duration("ping_interval", w.config.PingInterval),
		zap.Duration("ping_timeout", w.config.PingTimeout),
		zap.Int("failure_threshold", w.config.FailureThreshold),
	)

	w.launchLocked()
}

// launchLocked starts the loop on runCtx. Callers hold mu.
func (w *Watchdog) launchLocked() {
	done := make(chan struct{})

	w.done = done
	w.stats.IsRunning = true

	go w.run(w.runCtx, done)
}

// Stop cancels the loop and any forced reconnection, releasing in-flight pings and
// back-off waits, and waits for the loop to exit. Safe to call when never started and
// from several goroutines.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.runCtx = nil
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if done != nil {
		<-done
	}
}

// ForceReconnect runs the reconnection procedure immediately. It ends when ctx is done or
// the watchdog is stopped, and returns a ReconnectExhausted error when every attempt failed.
// A success on a started watchdog whose loop gave up after exhaustion resumes monitoring.
func (w *Watchdog) ForceReconnect(ctx context.Context) error {
	w.log.Info("Forced reconnection requested")

	w.mu.Lock()
	runCtx := w.runCtx
	w.mu.Unlock()

	if runCtx != nil {
		var cancel context.CancelFunc

		ctx, cancel = context.WithCancel(ctx)
		defer cancel()

		release := context.AfterFunc(runCtx, cancel)
		defer release()
	}

	if err := w.reconnect(ctx, optional.None[time.Time]()); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.runCtx != nil && w.runCtx.Err() == nil && w.done == nil {
		w.log.Info("Watchdog resumed")
		w.launchLocked()
	}

	return nil
}

func (w *Watchdog) run(ctx context.Context, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		if w.done == done {
			w.done = nil
			w.stats.IsRunning = false
		}
		w.mu.Unlock()

		close(done)
		w.log.Info("Watchdog stopped")
	}()

	timer := time.NewTimer(w.config.PingInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		detectedAt := time.Now()
		if w.checkHealth(ctx) {
			timer.Reset(w.config.PingInterval)

			continue
		}

		if ctx.Err() != nil {
			return
		}

		if w.Stats().ConsecutiveFailures >= uint(w.config.FailureThreshold) {
			if !w.reconnectFromLoop(ctx, detectedAt, done) {
				return
			}
		}

		timer.Reset(w.config.PingInterval)
	}
}

type pingResult struct {
	ok  bool
	err error
}

// checkHealth pings once, bounded by PingTimeout, and records the outcome.
// It returns true when the ping succeeded. A stop during the ping is not a failure.
func (w *Watchdog) checkHealth(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, w.config.PingTimeout)
	defer cancel()

	results := make(chan pingResult, 1)

	go func() {
		ok, err := w.conn.Ping(pingCtx)
		results <- pingResult{ok: ok, err: err}
	}()

	var result pingResult

	select {
	case result = <-results:
	case <-pingCtx.Done():
		result = pingResult{ok: false, err: errors.FromContext(pingCtx, "ping")}
	}

	if ctx.Err() != nil {
		return false
	}

	now := time.Now()

	if result.err == nil && result.ok {
		w.mu.Lock()
		w.stats.ConsecutiveFailures = 0
		w.stats.LastPingTime = optional.Some(now)
		w.mu.Unlock()

		return true
	}

	if result.err == nil {
		result.err = fmt.Errorf("ping returned false")
	}

	w.mu.Lock()
	w.stats.ConsecutiveFailures++
	w.stats.LastFailureTime = optional.Some(now)
	failures := w.stats.ConsecutiveFailures
	w.mu.Unlock()

	w.log.Warn("Ping failed",
		zap.String("operation", "ping"),
		zap.Uint("consecutive_failures", failures),
		zap.String("state", w.conn.State().String()),
		zap.Error(result.err),
	)

	return false
}

// reconnectFromLoop reconnects on behalf of the loop and reports whether the loop should
// keep going. On exhaustion the loop is detached while reconnectMu is still held, so a
// ForceReconnect queued behind it sees a stopped loop and resumes monitoring.
func (w *Watchdog) reconnectFromLoop(ctx context.Context, detectedAt time.Time, done chan struct{}) bool {
	w.reconnectMu.Lock()
	defer w.reconnectMu.Unlock()

	err := w.reconnectLocked(ctx, optional.Some(detectedAt))
	if err == nil || ctx.Err() != nil {
		return err == nil
	}

	if !errors.HasCode(err, errors.ErrCodeReconnectExhausted) {
		return true
	}

	w.mu.Lock()
	if w.done == done {
		w.done = nil
		w.stats.IsRunning = false
	}
	w.mu.Unlock()

	return false
}

func (w *Watchdog) reconnect(ctx context.Context, detectedAt optional.Option[time.Time]) error {
	w.reconnectMu.Lock()
	defer w.reconnectMu.Unlock()

	return w.reconnectLocked(ctx, detectedAt)
}

// reconnectLocked runs the back-off state machine: Retrying(1..MaxRetries) then Succeeded or
// Exhausted. detectedAt, when set, skips the procedure if another reconnection already
// completed after the failure was detected. Callers hold reconnectMu.
func (w *Watchdog) reconnectLocked(ctx context.Context, detectedAt optional.Option[time.Time]) error {
	if detectedAt.IsSome() {
		stats := w.Stats()
		if stats.LastReconnectTime.IsSome() && stats.LastReconnectTime.Unwrap().After(detectedAt.Unwrap()) &&
			w.conn.State() == types.ConnectionStateConnected {
			return nil
		}
	}

	w.setPhase(PhaseRetrying, 0)
	w.conn.MarkReconnecting()

	if err := w.conn.Reset(ctx); err != nil {
		w.log.Debug("Ignoring disconnect error before reconnect", zap.Error(err))
	}

	maxRetries := w.config.ReconnectMaxRetries

	for retry := 1; retry <= maxRetries; retry++ {
		delay := w.BackoffDelay(retry)
		w.setPhase(PhaseRetrying, retry)

		w.log.Info("Reconnecting",
			zap.String("operation", "reconnect"),
			zap.Int("retry", retry),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay),
		)

		if err := sleep(ctx, delay); err != nil {
			return w.abandon(ctx)
		}

		err := w.conn.Connect(ctx)
		if err == nil {
			w.succeed(ctx, retry)

			return nil
		}

		if ctx.Err() != nil {
			return w.abandon(ctx)
		}

		w.log.Warn("Reconnect attempt failed",
			zap.String("operation", "reconnect"),
			zap.Int("retry", retry),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	w.setPhase(PhaseExhausted, maxRetries)
	w.conn.MarkDisconnected()

	err := errors.Newf(errors.ErrCodeReconnectExhausted, "failed to reconnect after %d attempts", maxRetries)
	w.log.Error("Reconnection exhausted", zap.Int("max_retries", maxRetries), zap.Error(err))
	w.fireFailure(err)

	return err
}

func (w *Watchdog) succeed(ctx context.Context, retry int) {
	w.mu.Lock()
	w.stats.TotalReconnects++
	w.stats.ConsecutiveFailures = 0
	w.stats.LastReconnectTime = optional.Some(time.Now())
	w.stats.Phase = PhaseSucceeded
	w.stats.Retry = retry
	total := w.stats.TotalReconnects
	callbacks := append([]ReconnectCallback(nil), w.onReconnect...)
	w.mu.Unlock()

	w.log.Info("Reconnected",
		zap.Int("retry", retry),
		zap.Uint("total_reconnects", total),
	)

	for _, fn := range callbacks {
		w.safeReconnectCallback(ctx, fn)
	}
}

// abandon handles a stop in the middle of reconnection.
func (w *Watchdog) abandon(ctx context.Context) error {
	w.setPhase(PhaseIdle, 0)
	w.conn.MarkDisconnected()
	w.log.Info("Reconnection cancelled")

	return errors.FromContext(ctx, "reconnect")
}

func (w *Watchdog) setPhase(phase Phase, retry int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.Phase = phase
	w.stats.Retry = retry
}

func (w *Watchdog) safeReconnectCallback(ctx context.Context, fn ReconnectCallback) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Reconnect callback panicked",
				zap.String("operation", "on_reconnect"),
				zap.Error(errors.Newf(errors.ErrCodeCallbackFailed, "panic: %v", r)),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		w.log.Error("Reconnect callback failed",
			zap.String("operation", "on_reconnect"),
			zap.Error(errors.Wrap(errors.ErrCodeCallbackFailed, "reconnect callback failed", err)),
		)
	}
}

func (w *Watchdog) fireFailure(err error) {
	w.mu.Lock()
	callbacks := append([]FailureCallback(nil), w.onFailure...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("Failure callback panicked", zap.Any("panic", r))
				}
			}()

			fn(err)
		}()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
