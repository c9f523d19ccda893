package draft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// AdvancedFilters are the slider-driven upper bounds. Rate bounds use the
// 0..100 display scale.
type AdvancedFilters struct {
	MaxMatches     *int     `json:"maxMatches,omitempty"`
	MaxCredits     *int     `json:"maxCredits,omitempty"`
	MaxWinRate     *float64 `json:"maxWinRate,omitempty"`     // pro, 0..100
	MaxAbandonRate *float64 `json:"maxAbandonRate,omitempty"` // amateur, 0..100
}

// Active reports whether any advanced bound is set
func (a AdvancedFilters) Active() bool {
	return a.MaxMatches != nil || a.MaxCredits != nil || a.MaxWinRate != nil || a.MaxAbandonRate != nil
}

// FilterState is the per-tab filter and sort configuration
type FilterState struct {
	Tab              models.TeamType `json:"tab"`
	Search           string          `json:"search,omitempty"`
	GameType         string          `json:"gameType,omitempty"`
	Region           string          `json:"region,omitempty"` // amateur tab only
	LogoOnly         bool            `json:"logoOnly,omitempty"`
	MinMatches       int             `json:"minMatches,omitempty"`
	MaxMissedPercent *float64        `json:"maxMissedPercent,omitempty"` // amateur, 0..100
	MinPrice         *int            `json:"minPrice,omitempty"`
	MaxPrice         *int            `json:"maxPrice,omitempty"`
	AffordableOnly   bool            `json:"affordableOnly,omitempty"`
	Advanced         AdvancedFilters `json:"advanced"`
	Sort             SortKey         `json:"sort,omitempty"`
	Direction        SortDirection   `json:"direction,omitempty"`
}

// ErrInvalidFilter is returned for filter states naming an unknown tab, sort
// key or direction
var ErrInvalidFilter = errors.New("invalid filter")

// Validate rejects enumerated fields outside their known values. An empty
// tab, sort key or direction selects the default.
func (f FilterState) Validate() error {
	if f.Tab != "" && !f.Tab.Valid() {
		return fmt.Errorf("%w: unknown tab %q", ErrInvalidFilter, f.Tab)
	}
	if !f.Sort.Valid() {
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidFilter, f.Sort)
	}
	if !f.Direction.Valid() {
		return fmt.Errorf("%w: unknown sort direction %q", ErrInvalidFilter, f.Direction)
	}
	return nil
}

// Selection is what the pipeline needs to know about the current roster
type Selection interface {
	Contains(teamID string) bool
	CanAfford(team models.Team) bool
}

// Visible narrows pool through the ordered pipeline stages and sorts the
// result. Teams in the selection bypass every stage except the round gate so
// the user can always find and deselect them.
func Visible(pool []models.Team, f FilterState, round models.Round, sel Selection) []models.Team {
	out := make([]models.Team, 0, len(pool))
	for _, t := range pool {
		if !round.Allows(t) {
			continue
		}
		if sel != nil && sel.Contains(t.ID) {
			out = append(out, t)
			continue
		}
		if !matchesSearch(t, f) {
			continue
		}
		if !withinThresholds(t, f, sel) {
			continue
		}
		if !withinAdvanced(t, f.Advanced) {
			continue
		}
		out = append(out, t)
	}
	SortTeams(out, f.Sort, f.Direction)
	return out
}

// stage 2
func matchesSearch(t models.Team, f FilterState) bool {
	if q := strings.TrimSpace(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(t.Name), strings.ToLower(q)) {
			return false
		}
	}
	if f.GameType != "" && !strings.EqualFold(f.GameType, t.GameType) {
		return false
	}
	if f.Region != "" && t.Type == models.TeamTypeAmateur && !strings.EqualFold(f.Region, t.Region()) {
		return false
	}
	if f.LogoOnly && !t.HasLogo() {
		return false
	}
	return true
}

// stage 3
func withinThresholds(t models.Team, f FilterState, sel Selection) bool {
	if f.MinMatches > 0 && t.MatchVolume() < f.MinMatches {
		return false
	}
	if f.MaxMissedPercent != nil {
		// missedPercent is already stored on the 0..100 scale
		if missed, ok := t.MissedPercent(); ok && missed > *f.MaxMissedPercent {
			return false
		}
	}
	if f.MinPrice != nil && t.PriceValue() < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && t.PriceValue() > *f.MaxPrice {
		return false
	}
	if f.AffordableOnly && sel != nil && !sel.CanAfford(t) {
		return false
	}
	return true
}

// stage 4
func withinAdvanced(t models.Team, a AdvancedFilters) bool {
	if a.MaxMatches != nil && t.MatchVolume() > *a.MaxMatches {
		return false
	}
	if a.MaxCredits != nil && t.PriceValue() > *a.MaxCredits {
		return false
	}
	switch t.Type {
	case models.TeamTypePro:
		if a.MaxWinRate != nil {
			if wr, ok := t.RecentWinRate(); ok && wr > FromDisplayPercent(*a.MaxWinRate) {
				return false
			}
		}
	case models.TeamTypeAmateur:
		if a.MaxAbandonRate != nil {
			if ar, ok := t.AbandonRate(); ok && ar > FromDisplayPercent(*a.MaxAbandonRate) {
				return false
			}
		}
	}
	return true
}

// FromDisplayPercent converts a 0..100 slider value to a 0..1 fraction
func FromDisplayPercent(p float64) float64 {
	return p / 100
}

// ToDisplayPercent converts a 0..1 fraction to the 0..100 display scale
func ToDisplayPercent(f float64) float64 {
	return f * 100
}
