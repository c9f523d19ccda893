package service

import (
	"context"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

var errSheetOpen = &draft.Rejection{
	Reason:  draft.ReasonSheetOpen,
	Message: "confirm or cancel the selection sheet first",
}

// Toggle adds or removes a pool team from the committed roster
func (s *Service) Toggle(ctx context.Context, userID, sessionID, teamID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "toggle", func(sess *draft.Session) error {
		if sess.Sheet() != nil {
			return errSheetOpen
		}
		if sess.Roster().Contains(teamID) {
			return sess.Roster().Remove(teamID)
		}
		team, err := s.findTeam(ctx, sess.RoundID(), teamID)
		if err != nil {
			return err
		}
		return sess.Roster().Toggle(team)
	})
}

// Remove drops a team from the committed roster
func (s *Service) Remove(ctx context.Context, userID, sessionID, teamID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "remove", func(sess *draft.Session) error {
		if sess.Sheet() != nil {
			return errSheetOpen
		}
		return sess.Roster().Remove(teamID)
	})
}

// SetBench toggles the bench team. An empty id clears the bench.
func (s *Service) SetBench(ctx context.Context, userID, sessionID, teamID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "bench", func(sess *draft.Session) error {
		if teamID == "" {
			return sess.Roster().ClearBench()
		}
		team, err := s.findTeam(ctx, sess.RoundID(), teamID)
		if err != nil {
			return err
		}
		return sess.Roster().SetBench(team)
	})
}

// SetStar sets, moves or clears the star team
func (s *Service) SetStar(ctx context.Context, userID, sessionID, teamID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "star", func(sess *draft.Session) error {
		return sess.Roster().SetStar(teamID)
	})
}

func (s *Service) OpenSheet(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "sheet_open", func(sess *draft.Session) error {
		return sess.OpenSheet()
	})
}

// SheetToggle edits the working selection of the open sheet
func (s *Service) SheetToggle(ctx context.Context, userID, sessionID, teamID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "sheet_toggle", func(sess *draft.Session) error {
		sheet := sess.Sheet()
		if sheet == nil || sheet.Contains(teamID) {
			// removal and the closed-sheet rejection only need the id
			return sess.SheetToggle(models.Team{ID: teamID})
		}
		team, err := s.findTeam(ctx, sess.RoundID(), teamID)
		if err != nil {
			return err
		}
		return sess.SheetToggle(team)
	})
}

// ConfirmSheet commits the working selection. A rejected commit keeps the
// sheet open in the stored session.
func (s *Service) ConfirmSheet(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "sheet_confirm", func(sess *draft.Session) error {
		return sess.Commit()
	})
}

// CancelSheet discards the working selection
func (s *Service) CancelSheet(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	return s.mutate(ctx, userID, sessionID, "sheet_cancel", func(sess *draft.Session) error {
		sess.Discard()
		return nil
	})
}
