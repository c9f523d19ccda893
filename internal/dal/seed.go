package dal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// DefaultRoundID identifies the round seeded into an empty store
const DefaultRoundID = "round-1"

func genID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8])
}

// getDefaultRound returns a week-long round starting at the beginning of
// the current UTC day
func getDefaultRound(now time.Time) models.Round {
	start := now.UTC().Truncate(24 * time.Hour)
	return models.Round{
		ID:                  DefaultRoundID,
		Name:                "Weekly Cup",
		TeamTypeRestriction: models.RestrictBoth,
		SalaryCap:           models.DefaultSalaryCap,
		StartDate:           start,
		EndDate:             start.Add(7 * 24 * time.Hour),
	}
}

// getDefaultTeams returns the seed pool. Prices are left unset until the
// first pricing sync.
func getDefaultTeams() []models.Team {
	pros := []struct{ id, name, game, logo string }{
		{"pro-aurora", "Aurora Esports", "cs2", "/logos/aurora.png"},
		{"pro-blackvane", "Blackvane", "cs2", "/logos/blackvane.png"},
		{"pro-cinder", "Cinder Five", "cs2", ""},
		{"pro-drift", "Drift Gaming", "valorant", "/logos/drift.png"},
		{"pro-ember", "Ember Nation", "cs2", "/logos/ember.png"},
		{"pro-frostline", "Frostline", "valorant", ""},
		{"pro-granite", "Granite Wolves", "cs2", "/logos/granite.png"},
		{"pro-halcyon", "Halcyon", "cs2", ""},
	}
	amateurs := []struct{ id, name, game, region, logo string }{
		{"am-lowtide", "Low Tide", "cs2", "eu", ""},
		{"am-mosspit", "Mosspit", "cs2", "eu", "/logos/mosspit.png"},
		{"am-northpaw", "Northpaw", "cs2", "na", ""},
		{"am-ozone", "Ozone Kids", "valorant", "na", "/logos/ozone.png"},
		{"am-pebble", "Pebble Squad", "cs2", "sa", ""},
		{"am-quarry", "Quarry Rats", "cs2", "eu", ""},
		{"am-rustbelt", "Rustbelt", "cs2", "na", "/logos/rustbelt.png"},
		{"am-saltmarsh", "Saltmarsh", "valorant", "oce", ""},
	}

	teams := make([]models.Team, 0, len(pros)+len(amateurs))
	for _, p := range pros {
		t := models.NewProTeam(p.id, p.name, p.game)
		t.LogoURL = p.logo
		teams = append(teams, t)
	}
	for _, a := range amateurs {
		t := models.NewAmateurTeam(a.id, a.name, a.game, a.region)
		t.LogoURL = a.logo
		teams = append(teams, t)
	}
	return teams
}
