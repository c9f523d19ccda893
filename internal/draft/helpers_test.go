package draft

import (
	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func pro(id, name string, price int) models.Team {
	t := models.NewProTeam(id, name, "cs2")
	t.Price = intp(price)
	return t
}

func amateur(id, name string, price, matches int) models.Team {
	t := models.NewAmateurTeam(id, name, "cs2", "eu")
	t.Price = intp(price)
	t.Amateur.MatchVolume = matches
	return t
}

func testRound() models.Round {
	return models.Round{ID: "r1", Name: "Round 1", TeamTypeRestriction: models.RestrictBoth, SalaryCap: 50}
}

func ids(teams []models.Team) []string {
	out := make([]string, len(teams))
	for i, t := range teams {
		out[i] = t.ID
	}
	return out
}

// fiveCheap returns five pro teams costing 8 each
func fiveCheap() []models.Team {
	return []models.Team{
		pro("a", "Alpha", 8),
		pro("b", "Bravo", 8),
		pro("c", "Charlie", 8),
		pro("d", "Delta", 8),
		pro("e", "Echo", 8),
	}
}
