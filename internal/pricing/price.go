package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

const (
	MinPrice = 1
	MaxPrice = 20

	basePrice = 4
	// matches beyond this count no longer raise the price
	volumeCap = 20
	// fallback window length for rounds without dates
	defaultWindow = 7 * 24 * time.Hour
)

// Compute derives a team's price and metrics from its statistics.
// A team with no results gets the base price and no rate metrics.
func Compute(team models.Team, stats TeamStats) models.TeamPricing {
	p := models.TeamPricing{TeamID: team.ID, MatchVolume: stats.Matches}

	var winRate float64
	if stats.Matches > 0 {
		winRate = float64(stats.Wins) / float64(stats.Matches)
	}
	price := basePrice + int(math.Round(winRate*12)) + min(stats.Matches, volumeCap)/4

	switch team.Type {
	case models.TeamTypePro:
		if stats.Matches > 0 {
			p.RecentWinRate = &winRate
		}
	case models.TeamTypeAmateur:
		if stats.Matches > 0 {
			abandon := float64(stats.Abandoned) / float64(stats.Matches)
			p.AbandonRate = &abandon
			price -= int(math.Round(abandon * 6))
		}
		if scheduled := stats.Matches + stats.Missed; scheduled > 0 {
			missed := float64(stats.Missed) / float64(scheduled) * 100
			p.MissedPercent = &missed
			price -= int(math.Round(missed / 25))
		}
	}

	p.Price = max(MinPrice, min(MaxPrice, price))
	return p
}

// RoundWindow returns the statistics window of a round. Rounds without
// dates use the week ending at now.
func RoundWindow(round models.Round, now time.Time) Window {
	if round.StartDate.IsZero() || !round.EndDate.After(round.StartDate) {
		return Window{From: now.Add(-defaultWindow), To: now}
	}
	return Window{From: round.StartDate, To: round.EndDate}
}

// PriceRound prices every team of a pool. Pro teams are measured over the
// round window and amateur teams over the window preceding it.
func PriceRound(ctx context.Context, src Source, round models.Round, pool models.CandidatePool, now time.Time) ([]models.TeamPricing, error) {
	window := RoundWindow(round, now)

	proStats, err := statsFor(ctx, src, window, pool.Pro)
	if err != nil {
		return nil, fmt.Errorf("pro stats for round %s: %w", round.ID, err)
	}
	amStats, err := statsFor(ctx, src, window.Previous(), pool.Amateur)
	if err != nil {
		return nil, fmt.Errorf("amateur stats for round %s: %w", round.ID, err)
	}

	prices := make([]models.TeamPricing, 0, len(pool.Pro)+len(pool.Amateur))
	for _, t := range pool.Pro {
		prices = append(prices, Compute(t, proStats[t.ID]))
	}
	for _, t := range pool.Amateur {
		prices = append(prices, Compute(t, amStats[t.ID]))
	}
	return prices, nil
}

func statsFor(ctx context.Context, src Source, window Window, teams []models.Team) (map[string]TeamStats, error) {
	if len(teams) == 0 {
		return map[string]TeamStats{}, nil
	}
	ids := make([]string, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	return src.TeamStats(ctx, window, ids)
}
