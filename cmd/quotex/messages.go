package main

import (
	"time"

	"github.com/rxtech-lab/quotex-connect/internal/status"
)

// StatsMsg carries a fresh stats snapshot.
type StatsMsg struct {
	Stats status.Stats
	At    time.Time
}

// FetchErrorMsg indicates that a snapshot could not be fetched.
type FetchErrorMsg struct {
	Err error
}

// tickMsg schedules the next poll.
type tickMsg time.Time
