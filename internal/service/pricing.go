package service

import (
	"context"
	"fmt"

	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
)

// ApplyPricing stores new prices for a round and refreshes the price fields
// of teams already picked in stored sessions of that round. Selections
// themselves are never changed.
func (s *Service) ApplyPricing(ctx context.Context, roundID string, prices []models.TeamPricing) (int, error) {
	updated, err := s.store.SetTeamPrices(ctx, roundID, prices)
	if err != nil {
		s.metrics.PricingSync("failed", 0)
		return 0, fmt.Errorf("failed to store prices for round %s: %w", roundID, err)
	}

	byID := make(map[string]models.TeamPricing, len(prices))
	for _, p := range prices {
		byID[p.TeamID] = p
	}

	ids, err := s.sessions.IDs(ctx, roundID)
	if err != nil {
		logger.Warn("Failed to list sessions for price refresh", "round", roundID, "error", err)
	}
	refreshed := 0
	for _, id := range ids {
		ok, err := s.refreshSession(ctx, id, byID)
		if err != nil {
			logger.Warn("Failed to refresh session prices", "session", id, "error", err)
			continue
		}
		if ok {
			refreshed++
		}
	}

	s.metrics.PricingSync("applied", updated)
	logger.Info("Applied round pricing", "round", roundID, "teams", updated, "sessions", refreshed)

	e := pubsub.NewEvent(pubsub.EventPricesUpdate, map[string]any{
		"roundId": roundID,
		"updated": updated,
		"prices":  prices,
	})
	e.RoundID = roundID
	s.events.Publish(e)
	return updated, nil
}

func (s *Service) refreshSession(ctx context.Context, id string, byID map[string]models.TeamPricing) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return false, err
	}
	if sess.RefreshPrices(byID) == 0 {
		return false, nil
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return false, err
	}
	s.publishSession(pubsub.EventSessionUpdate, newSessionView(sess))
	return true, nil
}
