package service

import (
	"time"

	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// SessionView is the client-facing state of a draft session
type SessionView struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Round      models.Round  `json:"round"`
	State      draft.State   `json:"state"`
	Selected   []models.Team `json:"selected"`
	Bench      *models.Team  `json:"bench"`
	StarTeamID string        `json:"starTeamId,omitempty"`
	Budget     draft.Summary `json:"budget"`
	Sheet      *SheetView    `json:"sheet,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// SheetView is the working selection of an open sheet
type SheetView struct {
	Teams   []models.Team      `json:"teams"`
	Summary draft.SheetSummary `json:"summary"`
}

func newSessionView(s *draft.Session) *SessionView {
	r := s.Roster()
	v := &SessionView{
		ID:         s.ID,
		UserID:     s.UserID,
		Round:      r.Round(),
		State:      r.State(),
		Selected:   r.Selected(),
		Bench:      r.Bench(),
		StarTeamID: r.StarTeamID(),
		Budget:     r.Summary(),
		CreatedAt:  s.CreatedAt,
	}
	if sheet := s.Sheet(); sheet != nil {
		sum, _ := s.SheetSummary()
		v.Sheet = &SheetView{Teams: sheet.Teams(), Summary: sum}
	}
	return v
}

// Candidate is a pool team annotated for the current selection
type Candidate struct {
	models.Team
	Selected   bool `json:"selected"`
	Affordable bool `json:"affordable"`
}

// CandidateList is the visible pool of one tab
type CandidateList struct {
	SessionID string            `json:"sessionId"`
	Tab       models.TeamType   `json:"tab"`
	Filters   draft.FilterState `json:"filters"`
	Teams     []Candidate       `json:"teams"`
	Budget    draft.Summary     `json:"budget"`
}
