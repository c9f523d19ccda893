package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSalaryCap is the credit budget of a round before bonus credits
const DefaultSalaryCap = 50

// TeamType classifies a draftable team
type TeamType string

const (
	TeamTypePro     TeamType = "pro"
	TeamTypeAmateur TeamType = "amateur"
)

// Valid reports whether t is a known team type
func (t TeamType) Valid() bool {
	return t == TeamTypePro || t == TeamTypeAmateur
}

// ProMetrics holds the metrics available for pro teams.
// MatchVolume counts matches inside the round window.
type ProMetrics struct {
	MatchVolume   int      `json:"matchVolume"`
	RecentWinRate *float64 `json:"recentWinRate,omitempty"` // 0..1
}

// AmateurMetrics holds the metrics available for amateur teams.
// MatchVolume counts matches in the window preceding the round.
type AmateurMetrics struct {
	MatchVolume   int      `json:"matchVolume"`
	AbandonRate   *float64 `json:"abandonRate,omitempty"`   // 0..1
	MissedPercent *float64 `json:"missedPercent,omitempty"` // 0..100
	Region        string   `json:"region,omitempty"`
}

// Team represents a draftable team. Exactly one of Pro or Amateur is set,
// matching Type.
type Team struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     TeamType        `json:"type"`
	LogoURL  string          `json:"logoUrl,omitempty"`
	GameType string          `json:"gameType,omitempty"`
	Price    *int            `json:"price"`
	Pro      *ProMetrics     `json:"pro,omitempty"`
	Amateur  *AmateurMetrics `json:"amateur,omitempty"`
}

// NewProTeam builds a pro team with an empty metrics payload
func NewProTeam(id, name, gameType string) Team {
	return Team{ID: id, Name: name, Type: TeamTypePro, GameType: gameType, Pro: &ProMetrics{}}
}

// NewAmateurTeam builds an amateur team with an empty metrics payload
func NewAmateurTeam(id, name, gameType, region string) Team {
	return Team{ID: id, Name: name, Type: TeamTypeAmateur, GameType: gameType, Amateur: &AmateurMetrics{Region: region}}
}

// Validate checks the payload matches the team type
func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	switch t.Type {
	case TeamTypePro:
		if t.Pro == nil || t.Amateur != nil {
			return fmt.Errorf("team %s: pro team must carry pro metrics only", t.ID)
		}
	case TeamTypeAmateur:
		if t.Amateur == nil || t.Pro != nil {
			return fmt.Errorf("team %s: amateur team must carry amateur metrics only", t.ID)
		}
	default:
		return fmt.Errorf("team %s: unknown type %q", t.ID, t.Type)
	}
	if t.Price != nil && *t.Price < 0 {
		return fmt.Errorf("team %s: negative price", t.ID)
	}
	return nil
}

// Priced reports whether a price has been assigned for the round
func (t Team) Priced() bool {
	return t.Price != nil
}

// PriceValue returns the price, counting an unpriced team as 0
func (t Team) PriceValue() int {
	if t.Price == nil {
		return 0
	}
	return *t.Price
}

// HasLogo reports whether the team has a logo
func (t Team) HasLogo() bool {
	return strings.TrimSpace(t.LogoURL) != ""
}

func (t Team) MatchVolume() int {
	switch t.Type {
	case TeamTypePro:
		if t.Pro != nil {
			return t.Pro.MatchVolume
		}
	case TeamTypeAmateur:
		if t.Amateur != nil {
			return t.Amateur.MatchVolume
		}
	}
	return 0
}

// RecentWinRate is only tracked for pro teams
func (t Team) RecentWinRate() (float64, bool) {
	switch t.Type {
	case TeamTypePro:
		if t.Pro != nil && t.Pro.RecentWinRate != nil {
			return *t.Pro.RecentWinRate, true
		}
	case TeamTypeAmateur:
	}
	return 0, false
}

// AbandonRate is only tracked for amateur teams
func (t Team) AbandonRate() (float64, bool) {
	switch t.Type {
	case TeamTypeAmateur:
		if t.Amateur != nil && t.Amateur.AbandonRate != nil {
			return *t.Amateur.AbandonRate, true
		}
	case TeamTypePro:
	}
	return 0, false
}

// MissedPercent is only tracked for amateur teams
func (t Team) MissedPercent() (float64, bool) {
	switch t.Type {
	case TeamTypeAmateur:
		if t.Amateur != nil && t.Amateur.MissedPercent != nil {
			return *t.Amateur.MissedPercent, true
		}
	case TeamTypePro:
	}
	return 0, false
}

func (t Team) Region() string {
	if t.Type == TeamTypeAmateur && t.Amateur != nil {
		return t.Amateur.Region
	}
	return ""
}

// Clone returns a deep copy so callers can mutate metrics safely
func (t Team) Clone() Team {
	c := t
	if t.Price != nil {
		p := *t.Price
		c.Price = &p
	}
	if t.Pro != nil {
		pm := *t.Pro
		pm.RecentWinRate = cloneFloat(t.Pro.RecentWinRate)
		c.Pro = &pm
	}
	if t.Amateur != nil {
		am := *t.Amateur
		am.AbandonRate = cloneFloat(t.Amateur.AbandonRate)
		am.MissedPercent = cloneFloat(t.Amateur.MissedPercent)
		c.Amateur = &am
	}
	return c
}

// ApplyPricing refreshes the price and metric fields in place
func (t *Team) ApplyPricing(p TeamPricing) {
	price := p.Price
	t.Price = &price
	switch t.Type {
	case TeamTypePro:
		if t.Pro == nil {
			t.Pro = &ProMetrics{}
		}
		t.Pro.MatchVolume = p.MatchVolume
		t.Pro.RecentWinRate = cloneFloat(p.RecentWinRate)
	case TeamTypeAmateur:
		if t.Amateur == nil {
			t.Amateur = &AmateurMetrics{}
		}
		t.Amateur.MatchVolume = p.MatchVolume
		t.Amateur.AbandonRate = cloneFloat(p.AbandonRate)
		t.Amateur.MissedPercent = cloneFloat(p.MissedPercent)
	}
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// TeamPricing is the per-round output of the pricing collaborator
type TeamPricing struct {
	TeamID        string   `json:"teamId"`
	Price         int      `json:"price"`
	MatchVolume   int      `json:"matchVolume"`
	RecentWinRate *float64 `json:"recentWinRate,omitempty"`
	AbandonRate   *float64 `json:"abandonRate,omitempty"`
	MissedPercent *float64 `json:"missedPercent,omitempty"`
}

// TeamTypeRestriction limits which team types a round accepts
type TeamTypeRestriction string

const (
	RestrictBoth    TeamTypeRestriction = "both"
	RestrictPro     TeamTypeRestriction = "pro"
	RestrictAmateur TeamTypeRestriction = "amateur"
)

// Valid reports whether r is a known restriction. Empty means both.
func (r TeamTypeRestriction) Valid() bool {
	switch r {
	case "", RestrictBoth, RestrictPro, RestrictAmateur:
		return true
	}
	return false
}

// Round is a time-boxed drafting period with its own pool and pricing
type Round struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	TeamTypeRestriction TeamTypeRestriction `json:"teamTypeRestriction"`
	GameTypeRestriction string              `json:"gameTypeRestriction,omitempty"`
	SalaryCap           int                 `json:"salaryCap"`
	StartDate           time.Time           `json:"startDate"`
	EndDate             time.Time           `json:"endDate"`
}

// Cap returns the salary cap, falling back to DefaultSalaryCap
func (r Round) Cap() int {
	if r.SalaryCap <= 0 {
		return DefaultSalaryCap
	}
	return r.SalaryCap
}

// Allows applies the round configuration gate
func (r Round) Allows(t Team) bool {
	switch r.TeamTypeRestriction {
	case RestrictPro:
		if t.Type != TeamTypePro {
			return false
		}
	case RestrictAmateur:
		if t.Type != TeamTypeAmateur {
			return false
		}
	}
	if r.GameTypeRestriction != "" && !strings.EqualFold(r.GameTypeRestriction, t.GameType) {
		return false
	}
	return true
}

// CandidatePool is the set of draftable teams for a round
type CandidatePool struct {
	Pro     []Team `json:"pro"`
	Amateur []Team `json:"amateur"`
}

// ForType returns the teams of one tab
func (p CandidatePool) ForType(t TeamType) []Team {
	if t == TeamTypeAmateur {
		return p.Amateur
	}
	return p.Pro
}

func (p CandidatePool) All() []Team {
	all := make([]Team, 0, len(p.Pro)+len(p.Amateur))
	all = append(all, p.Pro...)
	return append(all, p.Amateur...)
}

// Find looks a team up by id across both lists
func (p CandidatePool) Find(id string) (Team, bool) {
	for _, t := range p.Pro {
		if t.ID == id {
			return t, true
		}
	}
	for _, t := range p.Amateur {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// TeamPick is one roster entry in a submission
type TeamPick struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    TeamType `json:"type"`
	LogoURL string   `json:"logoUrl"`
}

// BenchPick is the reserve entry in a submission
type BenchPick struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Type TeamType `json:"type"`
}

// SubmissionPayload is what the engine hands to the persistence collaborator
type SubmissionPayload struct {
	TeamPicks  []TeamPick `json:"teamPicks"`
	BenchTeam  *BenchPick `json:"benchTeam"`
	StarTeamID *string    `json:"starTeamId"`
}

// Submission is a finalized roster for a (user, round) pair
type Submission struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	RoundID           string            `json:"roundId"`
	Payload           SubmissionPayload `json:"payload"`
	BonusCreditsSpent int               `json:"bonusCreditsSpent"`
	SubmittedAt       time.Time         `json:"submittedAt"`
}
