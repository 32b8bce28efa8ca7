package queue

import (
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/shopspring/decimal"
)

// Kind identifies the operation a request performs.
type Kind int

const (
	KindGetCandles Kind = iota
	KindSubscribeCandles
	KindUnsubscribeCandles
	KindPlaceTrade
	KindPlaceTradeAndWait
	KindGetBalance
	KindGetAssets
)

func (k Kind) String() string {
	switch k {
	case KindGetCandles:
		return "get_candles"
	case KindSubscribeCandles:
		return "subscribe_candles"
	case KindUnsubscribeCandles:
		return "unsubscribe_candles"
	case KindPlaceTrade:
		return "place_trade"
	case KindPlaceTradeAndWait:
		return "place_trade_and_wait"
	case KindGetBalance:
		return "get_balance"
	case KindGetAssets:
		return "get_assets"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Category returns the queue a kind is routed to.
func (k Kind) Category() Category {
	switch k {
	case KindGetCandles, KindSubscribeCandles, KindUnsubscribeCandles:
		return CategoryCandle
	default:
		return CategoryTrade
	}
}

// Category is an independent bounded FIFO inside the queue.
type Category int

const (
	CategoryCandle Category = iota
	CategoryTrade
)

func (c Category) String() string {
	if c == CategoryCandle {
		return "candle"
	}

	return "trade"
}

// Callback receives the terminal response of a request. It runs on the worker after the
// request's Future has resolved.
type Callback func(resp *Response)

// CandleCallback receives candles pushed by a subscription.
type CandleCallback func(candle types.Candle)

// CandlesPayload is the payload of GetCandles, SubscribeCandles and UnsubscribeCandles.
type CandlesPayload struct {
	Asset  string `validate:"required"`
	Period int    `validate:"gt=0"`
	// Count is only used by GetCandles
	Count int `validate:"gte=0"`
	// OnCandle is only used by SubscribeCandles
	OnCandle CandleCallback `validate:"-"`
}

// TradePayload is the payload of PlaceTrade and PlaceTradeAndWait.
type TradePayload struct {
	Asset     string          `validate:"required"`
	Amount    decimal.Decimal `validate:"-"`
	Direction types.Direction `validate:"oneof=call put"`
	// Duration is the option expiry in seconds
	Duration int `validate:"gt=0"`
}

// Request is a queued operation. Once enqueued it is owned by the queue; exactly one worker
// takes it and exactly one Response is produced.
type Request struct {
	ID         string
	Kind       Kind
	Payload    any
	Callback   Callback
	Future     *Future
	EnqueuedAt time.Time
}

// Response is the single terminal outcome of a Request. Callback and Future observe the
// same value.
type Response struct {
	RequestID   string        `json:"request_id"`
	Kind        Kind          `json:"kind"`
	Success     bool          `json:"success"`
	Data        any           `json:"data,omitempty"`
	Err         error         `json:"-"`
	CompletedAt time.Time     `json:"completed_at"`
	Latency     time.Duration `json:"latency"`
}
