package dal

import (
	"context"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// DraftDAL defines the interface for data access layer
type DraftDAL interface {
	ListRounds(ctx context.Context) ([]models.Round, error)
	GetRound(ctx context.Context, id string) (*models.Round, error)
	AddRound(ctx context.Context, round *models.Round) (*models.Round, error)

	// ListTeams returns the candidate pool of a round, pro and amateur teams
	// ordered by name
	ListTeams(ctx context.Context, roundID string) (*models.CandidatePool, error)
	AddTeam(ctx context.Context, roundID string, team *models.Team) (*models.Team, error)
	// SetTeamPrices writes pricing output for a round and reports how many
	// teams were updated. Unknown team ids are skipped.
	SetTeamPrices(ctx context.Context, roundID string, prices []models.TeamPricing) (int, error)

	GetBonusCredits(ctx context.Context, userID string) (int, error)
	GrantBonusCredits(ctx context.Context, userID string, amount int) (int, error)

	// SubmitRoster debits the submission's bonus credits and stores the
	// roster in one transaction. It fails with ErrInsufficientCredits or
	// ErrDuplicateSubmission and leaves the balance untouched on failure.
	SubmitRoster(ctx context.Context, sub *models.Submission) error
	GetSubmission(ctx context.Context, userID, roundID string) (*models.Submission, error)

	Close() error
}
