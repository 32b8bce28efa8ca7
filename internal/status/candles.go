package status

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"go.uber.org/zap"
)

const (
	clientBuffer   = 64
	writeTimeout   = 5 * time.Second
	requestTimeout = 30 * time.Second
)

// CandleSubscriber is the part of the request queue the candle stream uses.
type CandleSubscriber interface {
	SubscribeCandles(asset string, period int, onCandle queue.CandleCallback, cb queue.Callback) (*queue.Future, error)
	UnsubscribeCandles(asset string, period int, cb queue.Callback) (*queue.Future, error)
}

type topicKey struct {
	asset  string
	period int
}

type topic struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	send    chan types.Candle
	dropped atomic.Uint64
	closed  chan struct{}
	once    sync.Once
}

func (c *streamClient) close() {
	c.once.Do(func() { close(c.closed) })
}

// candleHub shares one queue subscription per (asset, period) between websocket clients.
type candleHub struct {
	subscriber CandleSubscriber
	log        *logger.Logger

	// mu guards topics and is held across subscribe/unsubscribe so they apply in order
	mu     sync.Mutex
	topics map[topicKey]*topic
}

func newCandleHub(subscriber CandleSubscriber, log *logger.Logger) *candleHub {
	return &candleHub{
		subscriber: subscriber,
		log:        log,
		mu:         sync.Mutex{},
		topics:     make(map[topicKey]*topic),
	}
}

func (h *candleHub) join(ctx context.Context, key topicKey) (*streamClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := &streamClient{
		send:    make(chan types.Candle, clientBuffer),
		dropped: atomic.Uint64{},
		closed:  make(chan struct{}),
		once:    sync.Once{},
	}

	t, ok := h.topics[key]
	if !ok {
		t = &topic{mu: sync.RWMutex{}, clients: make(map[*streamClient]struct{})}

		f, err := h.subscriber.SubscribeCandles(key.asset, key.period, t.broadcast, nil)
		if err != nil {
			return nil, err
		}

		resp, err := f.Wait(ctx)
		if err != nil {
			return nil, err
		}

		if !resp.Success {
			return nil, resp.Err
		}

		h.topics[key] = t
	}

	t.mu.Lock()
	t.clients[client] = struct{}{}
	t.mu.Unlock()

	return client, nil
}

func (h *candleHub) leave(key topicKey, client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.close()

	t, ok := h.topics[key]
	if !ok {
		return
	}

	t.mu.Lock()
	delete(t.clients, client)
	remaining := len(t.clients)
	t.mu.Unlock()

	if remaining > 0 {
		return
	}

	delete(h.topics, key)
	h.unsubscribe(key)
}

func (h *candleHub) unsubscribe(key topicKey) {
	f, err := h.subscriber.UnsubscribeCandles(key.asset, key.period, nil)
	if err != nil {
		h.log.Warn("Candle unsubscribe failed", zap.String("asset", key.asset), zap.Error(err))

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if resp, err := f.Wait(ctx); err != nil || !resp.Success {
		h.log.Warn("Candle unsubscribe failed", zap.String("asset", key.asset), zap.Int("period", key.period))
	}
}

// closeAll disconnects every client. Subscriptions are released as the handlers exit.
func (h *candleHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, t := range h.topics {
		t.mu.RLock()
		for c := range t.clients {
			c.close()
		}
		t.mu.RUnlock()
	}
}

// broadcast never blocks the delivery goroutine: slow clients lose candles.
func (t *topic) broadcast(candle types.Candle) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for c := range t.clients {
		select {
		case c.send <- candle:
		default:
			c.dropped.Add(1)
		}
	}
}

var upgrader = websocket.Upgrader{ //nolint:exhaustruct
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

func (s *Server) handleCandleStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	period, err := strconv.Atoi(vars["period"])
	if err != nil || period <= 0 {
		writeError(w, http.StatusBadRequest, "period must be a positive integer")

		return
	}

	key := topicKey{asset: vars["asset"], period: period}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	client, err := s.hub.join(ctx, key)
	cancel()

	if err != nil {
		code := http.StatusBadGateway
		if errors.HasCode(err, errors.ErrCodeInvalidRequest) {
			code = http.StatusBadRequest
		}

		writeError(w, code, err.Error())

		return
	}

	defer s.hub.leave(key, client)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade failed", zap.Error(err))

		return
	}
	defer conn.Close()

	s.log.Info("Candle stream opened", zap.String("asset", key.asset), zap.Int("period", key.period))

	// the reader only detects the peer going away
	go func() {
		defer client.close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-client.closed:
			conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))

			s.log.Info("Candle stream closed",
				zap.String("asset", key.asset),
				zap.Uint64("dropped", client.dropped.Load()),
			)

			return
		case candle := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck

			if err := conn.WriteJSON(candle); err != nil {
				s.log.Debug("Candle stream write failed", zap.Error(err))

				return
			}
		}
	}
}
