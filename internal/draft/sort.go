package draft

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// SortKey selects the metric candidates are ordered by
type SortKey string

const (
	SortByName        SortKey = "name"
	SortByPrice       SortKey = "price"
	SortByWinRate     SortKey = "winRate"
	SortByMatchVolume SortKey = "matchVolume"
	SortByAbandonRate SortKey = "abandonRate"
)

// Valid reports whether k is a known sort key. The empty key sorts by name.
func (k SortKey) Valid() bool {
	switch k {
	case "", SortByName, SortByPrice, SortByWinRate, SortByMatchVolume, SortByAbandonRate:
		return true
	}
	return false
}

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == "" || d == Ascending || d == Descending
}

// missing metrics sort below every real value
const missingMetric = -1.0

func sortValue(t models.Team, key SortKey) float64 {
	switch key {
	case SortByPrice:
		if !t.Priced() {
			return missingMetric
		}
		return float64(t.PriceValue())
	case SortByWinRate:
		if wr, ok := t.RecentWinRate(); ok {
			return wr
		}
		return missingMetric
	case SortByMatchVolume:
		return float64(t.MatchVolume())
	case SortByAbandonRate:
		if ar, ok := t.AbandonRate(); ok {
			return ar
		}
		return missingMetric
	default:
		return 0
	}
}

// SortTeams orders teams in place by key. Ties always break by name
// ascending, then id, whatever the direction.
func SortTeams(teams []models.Team, key SortKey, dir SortDirection) {
	if key == "" {
		key = SortByName
	}
	slices.SortStableFunc(teams, func(a, b models.Team) int {
		if key != SortByName {
			c := cmp.Compare(sortValue(a, key), sortValue(b, key))
			if dir == Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			if key == SortByName && dir == Descending {
				return -c
			}
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
