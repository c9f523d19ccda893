package draft

import (
	"time"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// Sheet is the working selection of the multi-select sheet. It may
// transiently exceed the slot count or budget; nothing is enforced until
// the session commits it.
type Sheet struct {
	teams []models.Team
}

func (s *Sheet) Teams() []models.Team {
	return cloneTeams(s.teams)
}

// Contains reports whether teamID is in the working selection
func (s *Sheet) Contains(teamID string) bool {
	return containsTeam(s.teams, teamID)
}

// SheetSummary describes whether the working selection could be confirmed
type SheetSummary struct {
	Summary
	Count       int  `json:"count"`
	OverCount   bool `json:"overCount"`
	Confirmable bool `json:"confirmable"`
}

// Session wraps the committed roster and the optional working sheet. Commit
// and Discard are the only ways the two are reconciled.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	committed *Roster
	sheet     *Sheet
}

// NewSession starts an empty draft for userID in round
func NewSession(id, userID string, round models.Round, bonusCredits int) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		committed: NewRoster(round, bonusCredits),
	}
}

// Roster returns the committed roster
func (s *Session) Roster() *Roster {
	return s.committed
}

func (s *Session) RoundID() string {
	return s.committed.round.ID
}

// Sheet returns the working sheet, or nil when it is closed
func (s *Session) Sheet() *Sheet {
	return s.sheet
}

// OpenSheet seeds the working selection from the committed roster. Opening
// an already open sheet keeps its working state.
func (s *Session) OpenSheet() error {
	if s.committed.submitted {
		return reject(ReasonSubmitted, "roster already submitted")
	}
	if s.sheet == nil {
		s.sheet = &Sheet{teams: s.committed.Selected()}
	}
	return nil
}

// SheetToggle adds or removes team in the working selection. Only the round
// gate and team validity apply here.
func (s *Session) SheetToggle(team models.Team) error {
	if s.sheet == nil {
		return reject(ReasonSheetClosed, "selection sheet is not open")
	}
	if i := indexOf(s.sheet.teams, team.ID); i >= 0 {
		s.sheet.teams = append(s.sheet.teams[:i:i], s.sheet.teams[i+1:]...)
		return nil
	}
	if err := team.Validate(); err != nil {
		return reject(ReasonInvalidTeam, "%v", err)
	}
	if !s.committed.round.Allows(team) {
		return reject(ReasonRoundRestricted, "team %s is not eligible for round %s", team.Name, s.committed.round.ID)
	}
	s.sheet.teams = append(s.sheet.teams, team.Clone())
	return nil
}

// SheetSummary reports the budget of the working selection
func (s *Session) SheetSummary() (SheetSummary, bool) {
	if s.sheet == nil {
		return SheetSummary{}, false
	}
	sum := s.committed.budget.Summarize(s.sheet.teams)
	over := len(s.sheet.teams) > MaxTeams
	return SheetSummary{
		Summary:     sum,
		Count:       len(s.sheet.teams),
		OverCount:   over,
		Confirmable: !over && !sum.OverBudget,
	}, true
}

// Commit assigns the working selection to the committed roster in one step.
// On rejection the sheet stays open so the user can adjust it.
func (s *Session) Commit() error {
	if s.sheet == nil {
		return reject(ReasonSheetClosed, "selection sheet is not open")
	}
	if err := s.committed.ReplaceAll(s.sheet.teams); err != nil {
		return err
	}
	s.sheet = nil
	return nil
}

// Discard drops the working selection
func (s *Session) Discard() {
	s.sheet = nil
}

// RefreshPrices updates price fields in the committed roster and the sheet
func (s *Session) RefreshPrices(pricing map[string]models.TeamPricing) int {
	n := s.committed.RefreshPrices(pricing)
	if s.sheet != nil {
		for i := range s.sheet.teams {
			if p, ok := pricing[s.sheet.teams[i].ID]; ok {
				s.sheet.teams[i].ApplyPricing(p)
				n++
			}
		}
	}
	return n
}

// SessionSnapshot is the serializable form of a Session
type SessionSnapshot struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	CreatedAt    time.Time     `json:"createdAt"`
	Round        models.Round  `json:"round"`
	BonusCredits int           `json:"bonusCredits"`
	Selected     []models.Team `json:"selected"`
	Bench        *models.Team  `json:"bench,omitempty"`
	StarTeamID   string        `json:"starTeamId,omitempty"`
	Submitted    bool          `json:"submitted"`
	Sheet        []models.Team `json:"sheet,omitempty"`
	SheetOpen    bool          `json:"sheetOpen"`
}

// Snapshot captures the session state
func (s *Session) Snapshot() SessionSnapshot {
	r := s.committed
	snap := SessionSnapshot{
		ID:           s.ID,
		UserID:       s.UserID,
		CreatedAt:    s.CreatedAt,
		Round:        r.round,
		BonusCredits: r.budget.BonusCredits,
		Selected:     r.Selected(),
		Bench:        r.Bench(),
		StarTeamID:   r.starID,
		Submitted:    r.submitted,
	}
	if s.sheet != nil {
		snap.SheetOpen = true
		snap.Sheet = s.sheet.Teams()
	}
	return snap
}

// RestoreSession rebuilds a session from a snapshot
func RestoreSession(snap SessionSnapshot) *Session {
	r := NewRoster(snap.Round, snap.BonusCredits)
	r.selected = cloneTeams(snap.Selected)
	if snap.Bench != nil {
		b := snap.Bench.Clone()
		r.bench = &b
	}
	if containsTeam(r.selected, snap.StarTeamID) {
		r.starID = snap.StarTeamID
	}
	r.submitted = snap.Submitted

	s := &Session{
		ID:        snap.ID,
		UserID:    snap.UserID,
		CreatedAt: snap.CreatedAt,
		committed: r,
	}
	if snap.SheetOpen {
		s.sheet = &Sheet{teams: cloneTeams(snap.Sheet)}
	}
	return s
}
