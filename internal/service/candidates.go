package service

import (
	"context"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
)

// sheetSelection lets the filter pipeline treat the working selection as the
// current roster while the sheet is open
type sheetSelection struct {
	sheet  *draft.Sheet
	budget draft.Budget
}

func (s sheetSelection) Contains(teamID string) bool {
	return s.sheet.Contains(teamID)
}

func (s sheetSelection) CanAfford(team models.Team) bool {
	return s.budget.CanAfford(team, s.sheet.Teams())
}

// Candidates returns the visible pool of the filter tab for a session
func (s *Service) Candidates(ctx context.Context, userID, sessionID string, f draft.FilterState) (*CandidateList, error) {
	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.candidates(ctx, sess, f)
}

func (s *Service) candidates(ctx context.Context, sess *draft.Session, f draft.FilterState) (*CandidateList, error) {
	if f.Tab == "" {
		f.Tab = models.TeamTypePro
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	pool, err := s.store.ListTeams(ctx, sess.RoundID())
	if err != nil {
		return nil, err
	}
	if err := s.refreshCredits(ctx, sess); err != nil {
		return nil, err
	}

	roster := sess.Roster()
	var sel draft.Selection = roster
	budget := roster.Summary()
	if sheet := sess.Sheet(); sheet != nil {
		sel = sheetSelection{sheet: sheet, budget: roster.Budget()}
		sum, _ := sess.SheetSummary()
		budget = sum.Summary
	}

	visible := draft.Visible(pool.ForType(f.Tab), f, roster.Round(), sel)
	teams := make([]Candidate, len(visible))
	for i, t := range visible {
		teams[i] = Candidate{
			Team:       t,
			Selected:   sel.Contains(t.ID),
			Affordable: sel.CanAfford(t),
		}
	}
	return &CandidateList{
		SessionID: sess.ID,
		Tab:       f.Tab,
		Filters:   f,
		Teams:     teams,
		Budget:    budget,
	}, nil
}

// SetAdvancedFilters schedules a recompute of the candidate list. Updates
// arriving within the filter delay collapse into one recompute, published as
// a candidates:update event for the session.
func (s *Service) SetAdvancedFilters(ctx context.Context, userID, sessionID string, f draft.FilterState) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if _, err := s.load(ctx, userID, sessionID); err != nil {
		return err
	}

	s.debounceMu.Lock()
	d, ok := s.debouncers[sessionID]
	if !ok {
		d = draft.NewDebouncer(s.filterDelay)
		s.debouncers[sessionID] = d
	}
	s.debounceMu.Unlock()

	d.Trigger(func() {
		// the request context is gone by the time this runs
		bg := context.WithoutCancel(ctx)
		sess, err := s.load(bg, userID, sessionID)
		if err != nil {
			logger.Warn("Dropping filter update for missing session", "session", sessionID, "error", err)
			s.dropDebouncer(sessionID)
			return
		}
		list, err := s.candidates(bg, sess, f)
		if err != nil {
			logger.Error("Failed to recompute candidates", "session", sessionID, "error", err)
			return
		}
		e := pubsub.NewEvent(pubsub.EventCandidatesUpdate, list)
		e.RoundID = sess.RoundID()
		e.SessionID = sessionID
		e.UserID = userID
		s.events.Publish(e)
	})
	return nil
}

// dropDebouncer cancels and forgets the pending filter update of a session
func (s *Service) dropDebouncer(sessionID string) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if d, ok := s.debouncers[sessionID]; ok {
		d.Stop()
		delete(s.debouncers, sessionID)
	}
}
