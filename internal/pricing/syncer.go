package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// Catalog lists rounds and their candidate pools
type Catalog interface {
	ListRounds(ctx context.Context) ([]models.Round, error)
	ListTeams(ctx context.Context, roundID string) (*models.CandidatePool, error)
}

// Sink receives computed prices for a round
type Sink interface {
	ApplyPricing(ctx context.Context, roundID string, prices []models.TeamPricing) (int, error)
}

// Syncer periodically prices every open round
type Syncer struct {
	catalog  Catalog
	source   Source
	sink     Sink
	interval time.Duration
	now      func() time.Time
}

// NewSyncer creates a syncer running every interval
func NewSyncer(catalog Catalog, source Source, sink Sink, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Syncer{
		catalog:  catalog,
		source:   source,
		sink:     sink,
		interval: interval,
		now:      time.Now,
	}
}

// SyncRound prices one round and hands the result to the sink
func (s *Syncer) SyncRound(ctx context.Context, round models.Round) (int, error) {
	pool, err := s.catalog.ListTeams(ctx, round.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list teams for round %s: %w", round.ID, err)
	}
	prices, err := PriceRound(ctx, s.source, round, *pool, s.now())
	if err != nil {
		return 0, err
	}
	return s.sink.ApplyPricing(ctx, round.ID, prices)
}

// SyncAll prices every round that has not ended. A failing round does not
// stop the others.
func (s *Syncer) SyncAll(ctx context.Context) error {
	rounds, err := s.catalog.ListRounds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rounds: %w", err)
	}

	now := s.now()
	var errs []error
	for _, r := range rounds {
		if !r.EndDate.IsZero() && r.EndDate.Before(now) {
			continue
		}
		n, err := s.SyncRound(ctx, r)
		if err != nil {
			logger.Error("Failed to sync round pricing", "round", r.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Debug("Synced round pricing", "round", r.ID, "teams", n)
	}
	return errors.Join(errs...)
}

// Run syncs immediately and then on every tick until ctx is done
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sync(ctx)
		}
	}
}

func (s *Syncer) sync(ctx context.Context) {
	logger.Info("Syncing team pricing")
	if err := s.SyncAll(ctx); err != nil {
		logger.Error("Failed to sync team pricing", "error", err)
		return
	}
	logger.Info("Team pricing synced successfully")
}
