package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/esports-draft/internal/dal"
	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
)

const (
	outcomeAccepted  = "accepted"
	outcomeRejected  = "rejected"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// Submit finalizes the committed roster. The bonus credit balance is read
// from the store for every attempt, and the debit and the roster insert
// happen in one store operation. A duplicate submission is terminal.
func (s *Service) Submit(ctx context.Context, userID, sessionID string, confirmNoStar bool) (*models.Submission, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Sheet() != nil {
		return nil, s.rejectSubmission(sessionID, errSheetOpen)
	}
	if sess.Roster().State() == draft.StateSubmitted {
		return nil, ErrAlreadySubmitted
	}

	credits, err := s.store.GetBonusCredits(ctx, userID)
	if err != nil {
		s.metrics.Submission(outcomeFailed, 0)
		return nil, fmt.Errorf("failed to read bonus credits: %w", err)
	}
	roster := sess.Roster()
	roster.SetBonusCredits(credits)
	if err := roster.CheckSubmittable(confirmNoStar); err != nil {
		return nil, s.rejectSubmission(sessionID, err)
	}

	spent := roster.Budget().BonusCreditsNeeded(roster.Summary().Spent)
	sub := &models.Submission{
		ID:                uuid.NewString(),
		UserID:            userID,
		RoundID:           sess.RoundID(),
		Payload:           roster.Payload(),
		BonusCreditsSpent: spent,
		SubmittedAt:       time.Now().UTC(),
	}

	switch err := s.store.SubmitRoster(ctx, sub); {
	case err == nil:
	case errors.Is(err, dal.ErrDuplicateSubmission):
		roster.MarkSubmitted()
		s.dropDebouncer(sessionID)
		if err := s.sessions.Save(ctx, sess); err != nil {
			logger.Warn("Failed to save duplicate-submitted session", "session", sessionID, "error", err)
		}
		s.metrics.Submission(outcomeDuplicate, 0)
		logger.Info("Duplicate roster submission", "session", sessionID, "user", userID, "round", sub.RoundID)
		return nil, ErrAlreadySubmitted
	case errors.Is(err, dal.ErrInsufficientCredits):
		// the balance changed between the read and the debit
		if fresh, rerr := s.store.GetBonusCredits(ctx, userID); rerr == nil {
			roster.SetBonusCredits(fresh)
			if rej := roster.Budget().CheckSubmission(roster.Summary().Spent); rej != nil {
				return nil, s.rejectSubmission(sessionID, rej)
			}
		}
		s.metrics.Submission(outcomeFailed, 0)
		return nil, fmt.Errorf("failed to submit roster: %w", err)
	default:
		s.metrics.Submission(outcomeFailed, 0)
		return nil, fmt.Errorf("failed to submit roster: %w", err)
	}

	roster.MarkSubmitted()
	s.dropDebouncer(sessionID)
	if err := s.sessions.Save(ctx, sess); err != nil {
		// the submission is durable; the session will report it on next load
		logger.Warn("Failed to save submitted session", "session", sessionID, "error", err)
	}
	s.metrics.Submission(outcomeAccepted, spent)
	logger.Info("Roster submitted",
		"session", sessionID,
		"user", userID,
		"round", sub.RoundID,
		"bonus_credits_spent", spent)

	e := pubsub.NewEvent(pubsub.EventRosterSubmit, sub)
	e.RoundID = sub.RoundID
	e.SessionID = sessionID
	e.UserID = userID
	s.events.Publish(e)
	s.publishSession(pubsub.EventSessionUpdate, newSessionView(sess))
	return sub, nil
}

func (s *Service) rejectSubmission(sessionID string, err error) error {
	if reason, ok := draft.ReasonOf(err); ok {
		s.metrics.Rejection(string(reason))
		logger.Debug("Roster submission rejected", "session", sessionID, "reason", reason)
	}
	s.metrics.Submission(outcomeRejected, 0)
	return err
}

// GetSubmission returns the recorded roster of a user for a round
func (s *Service) GetSubmission(ctx context.Context, userID, roundID string) (*models.Submission, error) {
	return s.store.GetSubmission(ctx, userID, roundID)
}
