package queue

// Stats is a snapshot of the queue counters.
type Stats struct {
	QueueSize       int `json:"queue_size"`
	CandleQueueSize int `json:"candle_queue_size"`
	TradeQueueSize  int `json:"trade_queue_size"`
	InFlight        int `json:"in_flight"`
	// ProcessedCount and FailedCount together equal the requests that left the queue
	ProcessedCount      uint64 `json:"processed_count"`
	FailedCount         uint64 `json:"failed_count"`
	IsRunning           bool   `json:"is_running"`
	NumWorkers          int    `json:"num_workers"`
	MaxSize             int    `json:"max_size"`
	ActiveSubscriptions int    `json:"active_subscriptions"`
}
