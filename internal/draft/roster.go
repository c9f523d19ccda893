package draft

import (
	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// MaxTeams is the number of active roster slots
const MaxTeams = 5

// State is the lifecycle position of a roster
type State string

const (
	StateEmpty     State = "empty"
	StatePartial   State = "partial"
	StateFull      State = "full"
	StateSubmitted State = "submitted"
)

// Roster holds one user's selection for one round. It is not safe for
// concurrent use; callers serialize access per session.
type Roster struct {
	round     models.Round
	budget    Budget
	selected  []models.Team
	bench     *models.Team
	starID    string
	submitted bool
}

// NewRoster creates an empty roster for round
func NewRoster(round models.Round, bonusCredits int) *Roster {
	return &Roster{
		round:    round,
		budget:   NewBudget(round.Cap(), bonusCredits),
		selected: []models.Team{},
	}
}

func (r *Roster) Round() models.Round {
	return r.round
}

func (r *Roster) State() State {
	switch {
	case r.submitted:
		return StateSubmitted
	case len(r.selected) == 0:
		return StateEmpty
	case len(r.selected) >= MaxTeams:
		return StateFull
	default:
		return StatePartial
	}
}

// Selected returns a copy of the selected teams in pick order
func (r *Roster) Selected() []models.Team {
	return cloneTeams(r.selected)
}

// Bench returns a copy of the bench team, or nil
func (r *Roster) Bench() *models.Team {
	if r.bench == nil {
		return nil
	}
	b := r.bench.Clone()
	return &b
}

// StarTeamID returns "" when no star is set
func (r *Roster) StarTeamID() string {
	return r.starID
}

func (r *Roster) Budget() Budget {
	return r.budget
}

// SetBonusCredits refreshes the available bonus credits
func (r *Roster) SetBonusCredits(n int) {
	r.budget = NewBudget(r.budget.SalaryCap, n)
}

func (r *Roster) Summary() Summary {
	return r.budget.Summarize(r.selected)
}

// Contains reports whether teamID is in the selection
func (r *Roster) Contains(teamID string) bool {
	return containsTeam(r.selected, teamID)
}

// CanAfford reports whether team fits the remaining budget
func (r *Roster) CanAfford(team models.Team) bool {
	return r.budget.CanAfford(team, r.selected)
}

// Toggle removes team if selected, otherwise tries to append it
func (r *Roster) Toggle(team models.Team) error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if r.Contains(team.ID) {
		r.removeAt(indexOf(r.selected, team.ID))
		return nil
	}
	if err := r.checkAdd(team); err != nil {
		return err
	}
	r.selected = append(r.selected, team.Clone())
	return nil
}

// Remove drops teamID from the selection. Removal is never blocked by the
// budget; removing an absent team is a no-op.
func (r *Roster) Remove(teamID string) error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if i := indexOf(r.selected, teamID); i >= 0 {
		r.removeAt(i)
	}
	return nil
}

func (r *Roster) removeAt(i int) {
	if r.selected[i].ID == r.starID {
		r.starID = ""
	}
	r.selected = append(r.selected[:i:i], r.selected[i+1:]...)
}

func (r *Roster) checkAdd(team models.Team) error {
	if err := team.Validate(); err != nil {
		return reject(ReasonInvalidTeam, "%v", err)
	}
	if !r.round.Allows(team) {
		return reject(ReasonRoundRestricted, "team %s is not eligible for round %s", team.Name, r.round.ID)
	}
	if r.bench != nil && r.bench.ID == team.ID {
		return reject(ReasonBenchConflict, "team %s is on the bench", team.Name)
	}
	if len(r.selected) >= MaxTeams {
		return reject(ReasonRosterFull, "roster already has %d teams", MaxTeams)
	}
	if !team.Priced() {
		return reject(ReasonUnpriced, "team %s has not been priced yet", team.Name)
	}
	if !r.CanAfford(team) {
		remaining := r.budget.Remaining(Spent(r.selected))
		rej := reject(ReasonOverBudget, "team %s costs %d but only %d credits remain", team.Name, team.PriceValue(), remaining)
		rej.Shortfall = team.PriceValue() - remaining
		return rej
	}
	return nil
}

// ReplaceAll accepts a new ordered selection wholesale. Callers must only
// offer this when the selection fits; nothing is truncated.
func (r *Roster) ReplaceAll(teams []models.Team) error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if len(teams) > MaxTeams {
		return reject(ReasonTooManyTeams, "%d teams selected, at most %d allowed", len(teams), MaxTeams)
	}
	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		if seen[t.ID] {
			return reject(ReasonDuplicateTeam, "team %s selected twice", t.Name)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return reject(ReasonInvalidTeam, "%v", err)
		}
		if !r.round.Allows(t) {
			return reject(ReasonRoundRestricted, "team %s is not eligible for round %s", t.Name, r.round.ID)
		}
		if r.bench != nil && r.bench.ID == t.ID {
			return reject(ReasonBenchConflict, "team %s is on the bench", t.Name)
		}
		if !t.Priced() && !r.Contains(t.ID) {
			return reject(ReasonUnpriced, "team %s has not been priced yet", t.Name)
		}
	}
	if spent := Spent(teams); spent > r.budget.Total() {
		rej := reject(ReasonOverBudget, "selection costs %d but budget is %d", spent, r.budget.Total())
		rej.Shortfall = spent - r.budget.Total()
		return rej
	}

	r.selected = cloneTeams(teams)
	if r.starID != "" && !seen[r.starID] {
		r.starID = ""
	}
	return nil
}

// SetBench toggles the bench slot. Only amateur teams outside the active
// selection are eligible.
func (r *Roster) SetBench(team models.Team) error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if r.bench != nil && r.bench.ID == team.ID {
		r.bench = nil
		return nil
	}
	if err := team.Validate(); err != nil {
		return reject(ReasonInvalidTeam, "%v", err)
	}
	if team.Type != models.TeamTypeAmateur {
		return reject(ReasonBenchIneligible, "only amateur teams can be benched")
	}
	if !r.round.Allows(team) {
		return reject(ReasonRoundRestricted, "team %s is not eligible for round %s", team.Name, r.round.ID)
	}
	if r.Contains(team.ID) {
		return reject(ReasonBenchConflict, "team %s is already in the roster", team.Name)
	}
	b := team.Clone()
	r.bench = &b
	return nil
}

// ClearBench empties the bench slot
func (r *Roster) ClearBench() error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	r.bench = nil
	return nil
}

// SetStar designates the double-scoring team. An empty id clears the star and
// setting the current star again unsets it.
func (r *Roster) SetStar(teamID string) error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if teamID == "" || teamID == r.starID {
		r.starID = ""
		return nil
	}
	if !r.Contains(teamID) {
		return reject(ReasonStarNotSelected, "team %s is not in the roster", teamID)
	}
	r.starID = teamID
	return nil
}

// CheckSubmittable runs the submission preconditions in order: a full
// roster, enough bonus credits, then a star or an explicit confirmation.
func (r *Roster) CheckSubmittable(confirmNoStar bool) error {
	if r.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if len(r.selected) != MaxTeams {
		return reject(ReasonIncompleteRoster, "roster has %d of %d teams", len(r.selected), MaxTeams)
	}
	if err := r.budget.CheckSubmission(Spent(r.selected)); err != nil {
		return err
	}
	if r.starID == "" && !confirmNoStar {
		return reject(ReasonStarUnconfirmed, "no star team set; confirm to submit without one")
	}
	return nil
}

// MarkSubmitted moves the roster to its terminal state. Call it only after
// the persistence collaborator confirmed the submission.
func (r *Roster) MarkSubmitted() {
	r.submitted = true
}

// RefreshPrices applies late-arriving pricing to selected and benched teams in
// place and returns how many teams changed. A submitted roster keeps the
// prices it was submitted with.
func (r *Roster) RefreshPrices(pricing map[string]models.TeamPricing) int {
	if r.submitted {
		return 0
	}
	n := 0
	for i := range r.selected {
		if p, ok := pricing[r.selected[i].ID]; ok {
			r.selected[i].ApplyPricing(p)
			n++
		}
	}
	if r.bench != nil {
		if p, ok := pricing[r.bench.ID]; ok {
			r.bench.ApplyPricing(p)
			n++
		}
	}
	return n
}

// Payload builds the submission handed to the persistence collaborator
func (r *Roster) Payload() models.SubmissionPayload {
	picks := make([]models.TeamPick, len(r.selected))
	for i, t := range r.selected {
		picks[i] = models.TeamPick{ID: t.ID, Name: t.Name, Type: t.Type, LogoURL: t.LogoURL}
	}
	p := models.SubmissionPayload{TeamPicks: picks}
	if r.bench != nil {
		p.BenchTeam = &models.BenchPick{ID: r.bench.ID, Name: r.bench.Name, Type: r.bench.Type}
	}
	if r.starID != "" {
		star := r.starID
		p.StarTeamID = &star
	}
	return p
}

func cloneTeams(teams []models.Team) []models.Team {
	out := make([]models.Team, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}
