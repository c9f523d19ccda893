package pricing

import (
	"context"
	"time"
)

// Window is a half-open time range [From, To)
type Window struct {
	From time.Time
	To   time.Time
}

// Previous returns the window of equal length immediately before w
func (w Window) Previous() Window {
	d := w.To.Sub(w.From)
	return Window{From: w.From.Add(-d), To: w.From}
}

// TeamStats aggregates the match results of one team inside a window
type TeamStats struct {
	TeamID    string
	Matches   int // matches played
	Wins      int
	Abandoned int // matches the team left before completion
	Missed    int // scheduled matches the team did not show up for
}

// Source provides match statistics for pricing
type Source interface {
	TeamStats(ctx context.Context, window Window, teamIDs []string) (map[string]TeamStats, error)
	Close() error
}
