// Package queue serializes operations against the single connection. Callers enqueue
// requests without blocking and observe the outcome through a callback, a Future, or both.
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/quotex-connect/internal/config"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Executor performs requests against the connection. *connection.Handle implements it.
type Executor interface {
	GetBalance(ctx context.Context) (types.Balance, error)
	GetAssets(ctx context.Context) ([]types.AssetInfo, error)
	GetCandles(ctx context.Context, asset string, period int, count int) ([]types.Candle, error)
	Buy(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int) (types.TradeResult, error)
	BuyAndWait(ctx context.Context, asset string, amount decimal.Decimal, direction types.Direction, duration int) (types.TradeResult, error)
	StartCandleStream(ctx context.Context, asset string, period int) error
	StopCandleStream(ctx context.Context, asset string, period int) error
	LatestCandle(ctx context.Context, asset string, period int) (optional.Option[types.Candle], error)
}

// RequestQueue is a pair of bounded FIFOs (candle and trade) drained by a worker pool.
type RequestQueue struct {
	exec     Executor
	config   config.QueueConfig
	log      *logger.Logger
	validate *validator.Validate

	// mu guards running and the channel sends; Stop takes the write lock
	mu          sync.RWMutex
	running     bool
	candleQueue chan *Request
	tradeQueue  chan *Request
	quit        chan struct{}
	runCtx      context.Context
	runCancel   context.CancelFunc
	wg          sync.WaitGroup

	processed atomic.Uint64
	failed    atomic.Uint64
	inFlight  atomic.Int64

	subsMu       sync.Mutex
	subs         map[subKey]*subscription
	streamCtx    context.Context
	streamCancel context.CancelFunc
}

// New validates cfg and creates a stopped queue.
func New(exec Executor, cfg config.QueueConfig, log *logger.Logger) (*RequestQueue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &RequestQueue{
		exec:     exec,
		config:   cfg,
		log:      log.Component("queue"),
		validate: validator.New(),

		mu:          sync.RWMutex{},
		running:     false,
		candleQueue: make(chan *Request, cfg.MaxSize),
		tradeQueue:  make(chan *Request, cfg.MaxSize),
		quit:        nil,
		runCtx:      nil,
		runCancel:   nil,
		wg:          sync.WaitGroup{},

		subsMu:       sync.Mutex{},
		subs:         make(map[subKey]*subscription),
		streamCtx:    nil,
		streamCancel: nil,
	}, nil
}

// Start launches the workers. Starting a running queue is a no-op.
func (q *RequestQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return nil
	}

	q.openLocked(ctx)

	for i := 0; i < q.config.NumWorkers; i++ {
		q.wg.Add(1)

		go q.worker(i, q.quit, q.runCtx)
	}

	q.log.Info("Request queue started",
		zap.Int("num_workers", q.config.NumWorkers),
		zap.Int("max_size", q.config.MaxSize),
	)

	return nil
}

// openLocked accepts requests without starting workers.
func (q *RequestQueue) openLocked(ctx context.Context) {
	q.running = true
	q.quit = make(chan struct{})
	// in-flight work outlives the caller's context until Stop decides otherwise
	q.runCtx, q.runCancel = context.WithCancel(context.WithoutCancel(ctx))

	q.subsMu.Lock()
	q.streamCtx, q.streamCancel = context.WithCancel(context.WithoutCancel(ctx))
	q.subsMu.Unlock()
}

// Stop refuses new requests, gives in-flight work up to CallbackTimeout (or until ctx is
// done), waits for the workers and resolves every pending request as stopped. All
// subscription streams are stopped as well.
func (q *RequestQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()

		return nil
	}

	q.running = false
	close(q.quit)
	cancelRun := q.runCancel
	q.mu.Unlock()

	q.log.Info("Stopping request queue", zap.Int64("in_flight", q.inFlight.Load()))

	workersDone := make(chan struct{})

	go func() {
		q.wg.Wait()
		close(workersDone)
	}()

	grace := time.NewTimer(q.config.CallbackTimeout)
	defer grace.Stop()

	select {
	case <-workersDone:
	case <-grace.C:
		q.log.Warn("In-flight requests did not finish in time, cancelling")
		cancelRun()
		<-workersDone
	case <-ctx.Done():
		cancelRun()
		<-workersDone
	}

	cancelRun()

	drained := q.drain()
	q.stopSubscriptions()

	q.log.Info("Request queue stopped",
		zap.Int("drained", drained),
		zap.Uint64("processed", q.processed.Load()),
		zap.Uint64("failed", q.failed.Load()),
	)

	if ctx.Err() != nil {
		return errors.FromContext(ctx, "stop queue")
	}

	return nil
}

// Stats returns a snapshot of the queue counters.
func (q *RequestQueue) Stats() Stats {
	q.mu.RLock()
	running := q.running
	q.mu.RUnlock()

	q.subsMu.Lock()
	subs := len(q.subs)
	q.subsMu.Unlock()

	candle := len(q.candleQueue)
	trade := len(q.tradeQueue)

	return Stats{
		QueueSize:           candle + trade,
		CandleQueueSize:     candle,
		TradeQueueSize:      trade,
		InFlight:            int(q.inFlight.Load()),
		ProcessedCount:      q.processed.Load(),
		FailedCount:         q.failed.Load(),
		IsRunning:           running,
		NumWorkers:          q.config.NumWorkers,
		MaxSize:             q.config.MaxSize,
		ActiveSubscriptions: subs,
	}
}

// GetCandles fetches count historical candles.
func (q *RequestQueue) GetCandles(asset string, period int, count int, cb Callback) (*Future, error) {
	payload := CandlesPayload{Asset: asset, Period: period, Count: count, OnCandle: nil}
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidRequest, "count must be positive, got %d", count)
	}

	return q.enqueue(KindGetCandles, payload, cb)
}

// SubscribeCandles starts pushing candles for (asset, period) to onCandle. The response
// carries the initial candles. Subscribing an existing key replaces its callback.
func (q *RequestQueue) SubscribeCandles(asset string, period int, onCandle CandleCallback, cb Callback) (*Future, error) {
	if onCandle == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "candle callback is required")
	}

	return q.enqueue(KindSubscribeCandles, CandlesPayload{Asset: asset, Period: period, Count: 0, OnCandle: onCandle}, cb)
}

// UnsubscribeCandles stops the subscription for (asset, period).
func (q *RequestQueue) UnsubscribeCandles(asset string, period int, cb Callback) (*Future, error) {
	return q.enqueue(KindUnsubscribeCandles, CandlesPayload{Asset: asset, Period: period, Count: 0, OnCandle: nil}, cb)
}

// PlaceTrade opens a trade and resolves with the acknowledgement.
func (q *RequestQueue) PlaceTrade(asset string, amount decimal.Decimal, direction types.Direction, duration int, cb Callback) (*Future, error) {
	return q.enqueueTrade(KindPlaceTrade, asset, amount, direction, duration, cb)
}

// PlaceTradeAndWait opens a trade and resolves with the settled outcome after expiry.
func (q *RequestQueue) PlaceTradeAndWait(asset string, amount decimal.Decimal, direction types.Direction, duration int, cb Callback) (*Future, error) {
	return q.enqueueTrade(KindPlaceTradeAndWait, asset, amount, direction, duration, cb)
}

func (q *RequestQueue) GetBalance(cb Callback) (*Future, error) {
	return q.enqueue(KindGetBalance, nil, cb)
}

func (q *RequestQueue) GetAssets(cb Callback) (*Future, error) {
	return q.enqueue(KindGetAssets, nil, cb)
}

func (q *RequestQueue) enqueueTrade(kind Kind, asset string, amount decimal.Decimal, direction types.Direction, duration int, cb Callback) (*Future, error) {
	if !amount.IsPositive() {
		return nil, errors.Newf(errors.ErrCodeInvalidRequest, "amount must be positive, got %s", amount)
	}

	payload := TradePayload{Asset: asset, Amount: amount, Direction: direction, Duration: duration}

	return q.enqueue(kind, payload, cb)
}

// enqueue validates and hands the request to its category. It never blocks and never
// performs I/O.
func (q *RequestQueue) enqueue(kind Kind, payload any, cb Callback) (*Future, error) {
	if payload != nil {
		if err := q.validate.Struct(payload); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidRequest, err, "invalid %s request", kind)
		}
	}

	req := &Request{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		Callback:   cb,
		Future:     newFuture(),
		EnqueuedAt: time.Now(),
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running {
		return nil, errors.New(errors.ErrCodeQueueStopped, "queue stopped")
	}

	category := kind.Category()

	select {
	case q.channel(category) <- req:
		q.log.Debug("Request enqueued",
			zap.String("request_id", req.ID),
			zap.String("kind", kind.String()),
		)

		return req.Future, nil
	default:
		return nil, errors.Newf(errors.ErrCodeQueueFull, "%s queue is full (max %d)", category, q.config.MaxSize)
	}
}

func (q *RequestQueue) channel(category Category) chan *Request {
	if category == CategoryCandle {
		return q.candleQueue
	}

	return q.tradeQueue
}

func (q *RequestQueue) worker(id int, quit <-chan struct{}, runCtx context.Context) {
	defer q.wg.Done()

	log := q.log.With(zap.Int("worker", id))
	log.Debug("Worker started")

	for {
		// stopping takes priority over pending work
		select {
		case <-quit:
			log.Debug("Worker stopped")

			return
		default:
		}

		var req *Request

		select {
		case <-quit:
			log.Debug("Worker stopped")

			return
		case req = <-q.candleQueue:
		case req = <-q.tradeQueue:
		}

		select {
		case <-quit:
			// taken after Stop began: still pending, resolve as stopped
			q.reject(req)

			return
		default:
		}

		q.process(runCtx, id, req)
	}
}

type outcome struct {
	data any
	err  error
}

func (q *RequestQueue) process(runCtx context.Context, workerID int, req *Request) {
	q.inFlight.Add(1)
	defer q.inFlight.Add(-1)

	started := time.Now()

	callCtx, cancel := context.WithTimeout(runCtx, q.timeoutFor(req))
	defer cancel()

	results := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- outcome{data: nil, err: errors.Newf(errors.ErrCodeUnknown, "%s panicked: %v", req.Kind, r)}
			}
		}()

		data, err := q.dispatch(callCtx, req)
		results <- outcome{data: data, err: err}
	}()

	var result outcome

	select {
	case result = <-results:
	case <-callCtx.Done():
		result = outcome{data: nil, err: callCtx.Err()}
	}

	// report why a cancelled request ended
	if result.err != nil && callCtx.Err() != nil {
		if runCtx.Err() != nil {
			result = outcome{data: nil, err: errors.Wrap(errors.ErrCodeQueueStopped, "queue stopped", runCtx.Err())}
		} else {
			result = outcome{data: nil, err: errors.Wrapf(errors.ErrCodeTimeout, callCtx.Err(), "%s timed out after %s", req.Kind, q.timeoutFor(req))}
		}
	}

	if result.err != nil {
		result.data = nil
	}

	resp := &Response{
		RequestID:   req.ID,
		Kind:        req.Kind,
		Success:     result.err == nil,
		Data:        result.data,
		Err:         result.err,
		CompletedAt: time.Now(),
		Latency:     time.Since(started),
	}

	if result.err != nil {
		q.failed.Add(1)
		q.log.Warn("Request failed",
			zap.String("operation", req.Kind.String()),
			zap.String("request_id", req.ID),
			zap.Int("worker", workerID),
			zap.String("error_kind", errorKind(result.err)),
			zap.Error(result.err),
		)
	} else {
		q.processed.Add(1)
		q.log.Debug("Request completed",
			zap.String("operation", req.Kind.String()),
			zap.String("request_id", req.ID),
			zap.Int("worker", workerID),
			zap.Duration("latency", resp.Latency),
		)
	}

	q.complete(req, resp)
}

func (q *RequestQueue) timeoutFor(req *Request) time.Duration {
	if req.Kind == KindPlaceTradeAndWait {
		if p, ok := req.Payload.(TradePayload); ok {
			return time.Duration(p.Duration)*time.Second + q.config.TradeResultTimeout
		}
	}

	return q.config.CallbackTimeout
}

func (q *RequestQueue) dispatch(ctx context.Context, req *Request) (any, error) {
	switch req.Kind {
	case KindGetCandles:
		p := req.Payload.(CandlesPayload)

		return q.exec.GetCandles(ctx, p.Asset, p.Period, p.Count)
	case KindSubscribeCandles:
		return q.subscribe(ctx, req.Payload.(CandlesPayload))
	case KindUnsubscribeCandles:
		return q.unsubscribe(ctx, req.Payload.(CandlesPayload))
	case KindPlaceTrade:
		p := req.Payload.(TradePayload)

		return q.exec.Buy(ctx, p.Asset, p.Amount, p.Direction, p.Duration)
	case KindPlaceTradeAndWait:
		p := req.Payload.(TradePayload)

		return q.exec.BuyAndWait(ctx, p.Asset, p.Amount, p.Direction, p.Duration)
	case KindGetBalance:
		return q.exec.GetBalance(ctx)
	case KindGetAssets:
		return q.exec.GetAssets(ctx)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidRequest, "unknown request kind %d", req.Kind)
	}
}

// drain resolves every request still sitting in the queues as stopped.
func (q *RequestQueue) drain() int {
	count := 0

	for {
		select {
		case req := <-q.candleQueue:
			q.reject(req)
			count++
		case req := <-q.tradeQueue:
			q.reject(req)
			count++
		default:
			return count
		}
	}
}

func (q *RequestQueue) reject(req *Request) {
	q.failed.Add(1)
	q.complete(req, &Response{
		RequestID:   req.ID,
		Kind:        req.Kind,
		Success:     false,
		Data:        nil,
		Err:         errors.New(errors.ErrCodeQueueStopped, "queue stopped"),
		CompletedAt: time.Now(),
		Latency:     0,
	})
}

// complete resolves the future, then delivers the same resp to the callback, exactly once.
func (q *RequestQueue) complete(req *Request, resp *Response) {
	req.Future.resolve(resp, func() {
		if req.Callback == nil {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				q.log.Error("Request callback panicked",
					zap.String("operation", req.Kind.String()),
					zap.String("request_id", req.ID),
					zap.Error(errors.Newf(errors.ErrCodeCallbackFailed, "panic: %v", r)),
				)
			}
		}()

		req.Callback(resp)
	})
}

func errorKind(err error) string {
	var coded *errors.Error
	if errors.As(err, &coded) {
		return coded.Kind()
	}

	return fmt.Sprintf("%T", err)
}
