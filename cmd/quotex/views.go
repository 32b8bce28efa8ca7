package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/session"
	"github.com/rxtech-lab/quotex-connect/internal/status"
)

// NewSubscriptionTable creates the table of active candle subscriptions.
func NewSubscriptionTable() table.Model {
	columns := []table.Column{
		{Title: "Asset", Width: 12},
		{Title: "Period", Width: 8},
		{Title: "Active", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(5),
	)

	return t
}

// NewTradeTable creates the table of recent trades.
func NewTradeTable() table.Model {
	columns := []table.Column{
		{Title: "Trade", Width: 10},
		{Title: "Asset", Width: 10},
		{Title: "Dir", Width: 5},
		{Title: "Amount", Width: 10},
		{Title: "Result", Width: 8},
		{Title: "Profit", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(5),
	)

	return t
}

// UpdateSubscriptionRows fills the subscription table, sorted by asset then period.
func UpdateSubscriptionRows(t table.Model, subs []queue.Subscription) table.Model {
	sorted := append([]queue.Subscription(nil), subs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Asset != sorted[j].Asset {
			return sorted[i].Asset < sorted[j].Asset
		}

		return sorted[i].Period < sorted[j].Period
	})

	rows := make([]table.Row, 0, len(sorted))

	for _, s := range sorted {
		active := "no"
		if s.Active {
			active = "yes"
		}

		rows = append(rows, table.Row{s.Asset, fmt.Sprintf("%ds", s.Period), active})
	}

	t.SetRows(rows)

	return t
}

// UpdateTradeRows fills the trade table, newest first.
func UpdateTradeRows(t table.Model, trades []session.TradeRecord) table.Model {
	rows := make([]table.Row, 0, len(trades))

	for i := len(trades) - 1; i >= 0; i-- {
		tr := trades[i]

		result := "open"
		if tr.Win.IsSome() {
			result = "lost"
			if tr.Win.Unwrap() {
				result = "won"
			}
		}

		rows = append(rows, table.Row{
			shortID(tr.ID),
			tr.Asset,
			string(tr.Direction),
			tr.Amount.StringFixed(2),
			result,
			tr.Profit.StringFixed(2),
		})
	}

	t.SetRows(rows)

	return t
}

// renderOverview renders the connection, watchdog, queue, session and asset sections.
func renderOverview(stats status.Stats) string {
	var s strings.Builder

	fmt.Fprintf(&s, "%s  %s (session %d)\n",
		SectionStyle.Render("Connection"), FormatConnectionState(stats.Connection.State), stats.Connection.Epoch)

	if wd := stats.Watchdog; wd != nil {
		lastPing := "never"
		if wd.LastPingTime.IsSome() {
			lastPing = wd.LastPingTime.Unwrap().Format(time.TimeOnly)
		}

		fmt.Fprintf(&s, "%s    %s, retry %d, %d failures, %d reconnects, last ping %s\n",
			SectionStyle.Render("Watchdog"), FormatPhase(wd.Phase), wd.Retry,
			wd.ConsecutiveFailures, wd.TotalReconnects, lastPing)
	}

	if q := stats.Queue; q != nil {
		fmt.Fprintf(&s, "%s       general %d/%d, candles %d, trades %d, in flight %d, processed %d, failed %d\n",
			SectionStyle.Render("Queue"), q.QueueSize, q.MaxSize, q.CandleQueueSize, q.TradeQueueSize,
			q.InFlight, q.ProcessedCount, q.FailedCount)
	}

	if sess := stats.Session; sess != nil {
		fmt.Fprintf(&s, "%s     balance %s, profit %s, %d trades, win rate %.1f%%, ROI %.2f%%\n",
			SectionStyle.Render("Session"), sess.Account.BalanceReal.StringFixed(2),
			sess.Account.TotalProfit.StringFixed(2), sess.TotalTrades, sess.WinRate, sess.ROI)
	}

	if as := stats.Assets; as != nil {
		fmt.Fprintf(&s, "%s      %d of %d available\n",
			SectionStyle.Render("Assets"), as.AvailableAssets, as.TotalAssets)
	}

	return s.String()
}
