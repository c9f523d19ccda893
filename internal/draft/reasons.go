package draft

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable code for a rejected transition
type Reason string

const (
	ReasonRosterFull          Reason = "roster_full"
	ReasonOverBudget          Reason = "over_budget"
	ReasonUnpriced            Reason = "unpriced"
	ReasonRoundRestricted     Reason = "round_restricted"
	ReasonInvalidTeam         Reason = "invalid_team"
	ReasonDuplicateTeam       Reason = "duplicate_team"
	ReasonTooManyTeams        Reason = "too_many_teams"
	ReasonBenchIneligible     Reason = "bench_ineligible"
	ReasonBenchConflict       Reason = "bench_conflict"
	ReasonStarNotSelected     Reason = "star_not_selected"
	ReasonIncompleteRoster    Reason = "incomplete_roster"
	ReasonInsufficientCredits Reason = "insufficient_credits"
	ReasonStarUnconfirmed     Reason = "star_unconfirmed"
	ReasonSubmitted           Reason = "roster_submitted"
	ReasonSheetClosed         Reason = "sheet_closed"
	ReasonSheetOpen           Reason = "sheet_open"
)

// Rejection is returned for any transition the engine refuses. The roster
// is never mutated when a Rejection is returned.
type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	// Shortfall is the number of credits missing for over-budget and
	// insufficient-credit rejections
	Shortfall int `json:"shortfall,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

func reject(reason Reason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from err, if any
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// IsRejection reports whether err is a Rejection
func IsRejection(err error) bool {
	_, ok := ReasonOf(err)
	return ok
}
