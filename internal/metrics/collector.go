// Package metrics exposes connection, watchdog, queue and session snapshots as Prometheus
// metrics. Values are read from the components at scrape time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/session"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/internal/watchdog"
)

const namespace = "quotex"

type ConnectionSource interface {
	State() types.ConnectionState
	Epoch() uint64
}

type WatchdogSource interface {
	Stats() watchdog.Stats
}

type QueueSource interface {
	Stats() queue.Stats
}

type SessionSource interface {
	Summary() session.Summary
}

// Sources are the components scraped by the collector. Nil sources are skipped.
type Sources struct {
	Connection ConnectionSource
	Watchdog   WatchdogSource
	Queue      QueueSource
	Session    SessionSource
}

// Collector implements prometheus.Collector over Sources.
type Collector struct {
	sources Sources

	connectionState *prometheus.Desc
	connectionEpoch *prometheus.Desc

	watchdogRunning             *prometheus.Desc
	watchdogConsecutiveFailures *prometheus.Desc
	watchdogReconnects          *prometheus.Desc
	watchdogPhase               *prometheus.Desc
	watchdogLastPing            *prometheus.Desc

	queueDepth         *prometheus.Desc
	queueCapacity      *prometheus.Desc
	queueInFlight      *prometheus.Desc
	queueRequests      *prometheus.Desc
	queueWorkers       *prometheus.Desc
	queueSubscriptions *prometheus.Desc

	sessionBalance *prometheus.Desc
	sessionTrades  *prometheus.Desc
	sessionWinRate *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(sources Sources) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}

	return &Collector{
		sources: sources,

		connectionState: desc("connection", "state", "Current connection state (1 for the active state).", "state"),
		connectionEpoch: desc("connection", "sessions_total", "Number of sessions established."),

		watchdogRunning:             desc("watchdog", "running", "Whether the monitoring loop is running."),
		watchdogConsecutiveFailures: desc("watchdog", "consecutive_failures", "Consecutive failed health pings."),
		watchdogReconnects:          desc("watchdog", "reconnects_total", "Successful reconnections."),
		watchdogPhase:               desc("watchdog", "phase", "Reconnection phase (1 for the active phase).", "phase"),
		watchdogLastPing:            desc("watchdog", "last_ping_timestamp_seconds", "Unix time of the last successful ping."),

		queueDepth:         desc("queue", "depth", "Pending requests per category.", "category"),
		queueCapacity:      desc("queue", "capacity", "Capacity of each request category."),
		queueInFlight:      desc("queue", "in_flight", "Requests currently executing."),
		queueRequests:      desc("queue", "requests_total", "Requests that left the queue by result.", "result"),
		queueWorkers:       desc("queue", "workers", "Configured worker count."),
		queueSubscriptions: desc("queue", "subscriptions", "Active candle subscriptions."),

		sessionBalance: desc("session", "balance", "Account balance.", "account"),
		sessionTrades:  desc("session", "trades_total", "Recorded trades by outcome.", "outcome"),
		sessionWinRate: desc("session", "win_rate_percent", "Share of recorded trades that won."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.connectionState, c.connectionEpoch,
		c.watchdogRunning, c.watchdogConsecutiveFailures, c.watchdogReconnects, c.watchdogPhase, c.watchdogLastPing,
		c.queueDepth, c.queueCapacity, c.queueInFlight, c.queueRequests, c.queueWorkers, c.queueSubscriptions,
		c.sessionBalance, c.sessionTrades, c.sessionWinRate,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.sources.Connection != nil {
		c.collectConnection(ch)
	}

	if c.sources.Watchdog != nil {
		c.collectWatchdog(ch)
	}

	if c.sources.Queue != nil {
		c.collectQueue(ch)
	}

	if c.sources.Session != nil {
		c.collectSession(ch)
	}
}

func (c *Collector) collectConnection(ch chan<- prometheus.Metric) {
	current := c.sources.Connection.State()

	for _, state := range []types.ConnectionState{
		types.ConnectionStateDisconnected,
		types.ConnectionStateConnecting,
		types.ConnectionStateConnected,
		types.ConnectionStateReconnecting,
	} {
		ch <- prometheus.MustNewConstMetric(c.connectionState, prometheus.GaugeValue, boolValue(state == current), state.String())
	}

	ch <- prometheus.MustNewConstMetric(c.connectionEpoch, prometheus.CounterValue, float64(c.sources.Connection.Epoch()))
}

func (c *Collector) collectWatchdog(ch chan<- prometheus.Metric) {
	stats := c.sources.Watchdog.Stats()

	ch <- prometheus.MustNewConstMetric(c.watchdogRunning, prometheus.GaugeValue, boolValue(stats.IsRunning))
	ch <- prometheus.MustNewConstMetric(c.watchdogConsecutiveFailures, prometheus.GaugeValue, float64(stats.ConsecutiveFailures))
	ch <- prometheus.MustNewConstMetric(c.watchdogReconnects, prometheus.CounterValue, float64(stats.TotalReconnects))

	for _, phase := range []watchdog.Phase{
		watchdog.PhaseIdle,
		watchdog.PhaseRetrying,
		watchdog.PhaseSucceeded,
		watchdog.PhaseExhausted,
	} {
		ch <- prometheus.MustNewConstMetric(c.watchdogPhase, prometheus.GaugeValue, boolValue(phase == stats.Phase), phase.String())
	}

	if stats.LastPingTime.IsSome() {
		last := stats.LastPingTime.Unwrap()
		ch <- prometheus.MustNewConstMetric(c.watchdogLastPing, prometheus.GaugeValue, float64(last.UnixNano())/1e9)
	}
}

func (c *Collector) collectQueue(ch chan<- prometheus.Metric) {
	stats := c.sources.Queue.Stats()

	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(stats.CandleQueueSize), queue.CategoryCandle.String())
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(stats.TradeQueueSize), queue.CategoryTrade.String())
	ch <- prometheus.MustNewConstMetric(c.queueCapacity, prometheus.GaugeValue, float64(stats.MaxSize))
	ch <- prometheus.MustNewConstMetric(c.queueInFlight, prometheus.GaugeValue, float64(stats.InFlight))
	ch <- prometheus.MustNewConstMetric(c.queueRequests, prometheus.CounterValue, float64(stats.ProcessedCount), "processed")
	ch <- prometheus.MustNewConstMetric(c.queueRequests, prometheus.CounterValue, float64(stats.FailedCount), "failed")
	ch <- prometheus.MustNewConstMetric(c.queueWorkers, prometheus.GaugeValue, float64(stats.NumWorkers))
	ch <- prometheus.MustNewConstMetric(c.queueSubscriptions, prometheus.GaugeValue, float64(stats.ActiveSubscriptions))
}

func (c *Collector) collectSession(ch chan<- prometheus.Metric) {
	summary := c.sources.Session.Summary()
	account := summary.Account

	ch <- prometheus.MustNewConstMetric(c.sessionBalance, prometheus.GaugeValue, account.BalanceReal.InexactFloat64(), string(types.AccountModeReal))
	ch <- prometheus.MustNewConstMetric(c.sessionBalance, prometheus.GaugeValue, account.BalanceDemo.InexactFloat64(), string(types.AccountModeDemo))

	pending := account.TotalTrades - account.WinningTrades - account.LosingTrades
	ch <- prometheus.MustNewConstMetric(c.sessionTrades, prometheus.CounterValue, float64(account.WinningTrades), "won")
	ch <- prometheus.MustNewConstMetric(c.sessionTrades, prometheus.CounterValue, float64(account.LosingTrades), "lost")
	ch <- prometheus.MustNewConstMetric(c.sessionTrades, prometheus.CounterValue, float64(pending), "unsettled")
	ch <- prometheus.MustNewConstMetric(c.sessionWinRate, prometheus.GaugeValue, summary.WinRate)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

// NewRegistry returns a registry with the collector plus the Go runtime and process collectors.
func NewRegistry(sources Sources) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		NewCollector(sources),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct
	)

	return registry
}
