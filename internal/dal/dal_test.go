package dal

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

func newSQLite(t *testing.T) *SQLiteDAL {
	t.Helper()
	d, err := NewSQLiteDAL(filepath.Join(t.TempDir(), "draft.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDAL: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// forEachDAL runs fn against every implementation that works without an
// external server
func forEachDAL(t *testing.T, fn func(t *testing.T, d DraftDAL)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryDAL()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
}

func testSubmission(userID string, spent int) *models.Submission {
	star := "pro-aurora"
	return &models.Submission{
		UserID:  userID,
		RoundID: DefaultRoundID,
		Payload: models.SubmissionPayload{
			TeamPicks: []models.TeamPick{
				{ID: "pro-aurora", Name: "Aurora Esports", Type: models.TeamTypePro},
				{ID: "am-lowtide", Name: "Low Tide", Type: models.TeamTypeAmateur},
			},
			BenchTeam:  &models.BenchPick{ID: "am-quarry", Name: "Quarry Rats", Type: models.TeamTypeAmateur},
			StarTeamID: &star,
		},
		BonusCreditsSpent: spent,
	}
}

func TestSeededRound(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		rounds, err := d.ListRounds(ctx)
		if err != nil {
			t.Fatalf("ListRounds: %v", err)
		}
		if len(rounds) != 1 || rounds[0].ID != DefaultRoundID {
			t.Fatalf("expected seeded round %q, got %+v", DefaultRoundID, rounds)
		}
		if rounds[0].SalaryCap != models.DefaultSalaryCap {
			t.Errorf("expected salary cap %d, got %d", models.DefaultSalaryCap, rounds[0].SalaryCap)
		}

		pool, err := d.ListTeams(ctx, DefaultRoundID)
		if err != nil {
			t.Fatalf("ListTeams: %v", err)
		}
		if len(pool.Pro) == 0 || len(pool.Amateur) == 0 {
			t.Fatalf("expected both pro and amateur teams, got %d/%d", len(pool.Pro), len(pool.Amateur))
		}
		for _, team := range pool.All() {
			if err := team.Validate(); err != nil {
				t.Errorf("seeded team invalid: %v", err)
			}
			if team.Priced() {
				t.Errorf("team %s should be unpriced before the first sync", team.ID)
			}
		}
		if pool.Pro[0].Name != "Aurora Esports" {
			t.Errorf("expected pool sorted by name, first pro is %q", pool.Pro[0].Name)
		}
	})
}

func TestRoundNotFound(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		if _, err := d.GetRound(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRound: expected ErrNotFound, got %v", err)
		}
		if _, err := d.ListTeams(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("ListTeams: expected ErrNotFound, got %v", err)
		}
	})
}

func TestAddRoundAndTeam(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		round, err := d.AddRound(ctx, &models.Round{Name: "Amateur Night", TeamTypeRestriction: models.RestrictAmateur})
		if err != nil {
			t.Fatalf("AddRound: %v", err)
		}
		if round.ID == "" || round.SalaryCap != models.DefaultSalaryCap {
			t.Fatalf("expected generated id and default cap, got %+v", round)
		}

		got, err := d.GetRound(ctx, round.ID)
		if err != nil {
			t.Fatalf("GetRound: %v", err)
		}
		if got.TeamTypeRestriction != models.RestrictAmateur {
			t.Errorf("expected amateur restriction, got %q", got.TeamTypeRestriction)
		}

		team := models.NewAmateurTeam("", "Tin Cans", "cs2", "eu")
		if _, err := d.AddTeam(ctx, round.ID, &team); err != nil {
			t.Fatalf("AddTeam: %v", err)
		}
		pool, err := d.ListTeams(ctx, round.ID)
		if err != nil {
			t.Fatalf("ListTeams: %v", err)
		}
		if len(pool.Amateur) != 1 || pool.Amateur[0].Region() != "eu" {
			t.Fatalf("expected one eu amateur team, got %+v", pool.Amateur)
		}

		bad := models.Team{ID: "x", Type: models.TeamTypePro}
		if _, err := d.AddTeam(ctx, round.ID, &bad); err == nil {
			t.Error("expected validation error for a pro team without metrics")
		}
	})
}

func TestSetTeamPrices(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		win := 0.62
		abandon := 0.1
		n, err := d.SetTeamPrices(ctx, DefaultRoundID, []models.TeamPricing{
			{TeamID: "pro-aurora", Price: 14, MatchVolume: 9, RecentWinRate: &win},
			{TeamID: "am-lowtide", Price: 6, MatchVolume: 4, AbandonRate: &abandon},
			{TeamID: "ghost", Price: 1},
		})
		if err != nil {
			t.Fatalf("SetTeamPrices: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 teams updated, got %d", n)
		}

		pool, _ := d.ListTeams(ctx, DefaultRoundID)
		aurora, _ := pool.Find("pro-aurora")
		if aurora.PriceValue() != 14 || aurora.MatchVolume() != 9 {
			t.Errorf("unexpected aurora pricing: %+v", aurora)
		}
		if rate, ok := aurora.RecentWinRate(); !ok || rate != win {
			t.Errorf("expected win rate %v, got %v (%v)", win, rate, ok)
		}
		lowtide, _ := pool.Find("am-lowtide")
		if rate, ok := lowtide.AbandonRate(); !ok || rate != abandon {
			t.Errorf("expected abandon rate %v, got %v (%v)", abandon, rate, ok)
		}
		if _, ok := lowtide.MissedPercent(); ok {
			t.Error("missed percent should stay unset")
		}
	})
}

func TestBonusCredits(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		if bal, err := d.GetBonusCredits(ctx, "u1"); err != nil || bal != 0 {
			t.Fatalf("expected zero balance for a new user, got %d (%v)", bal, err)
		}
		if _, err := d.GrantBonusCredits(ctx, "u1", 0); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
		d.GrantBonusCredits(ctx, "u1", 10)
		bal, err := d.GrantBonusCredits(ctx, "u1", 5)
		if err != nil {
			t.Fatalf("GrantBonusCredits: %v", err)
		}
		if bal != 15 {
			t.Errorf("expected balance 15, got %d", bal)
		}
	})
}

func TestSubmitRosterDebitsAndStores(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		d.GrantBonusCredits(ctx, "u1", 10)

		sub := testSubmission("u1", 4)
		if err := d.SubmitRoster(ctx, sub); err != nil {
			t.Fatalf("SubmitRoster: %v", err)
		}
		if sub.ID == "" || sub.SubmittedAt.IsZero() {
			t.Error("expected id and timestamp to be assigned")
		}

		bal, _ := d.GetBonusCredits(ctx, "u1")
		if bal != 6 {
			t.Errorf("expected 6 credits left, got %d", bal)
		}

		got, err := d.GetSubmission(ctx, "u1", DefaultRoundID)
		if err != nil {
			t.Fatalf("GetSubmission: %v", err)
		}
		if len(got.Payload.TeamPicks) != 2 || got.Payload.BenchTeam == nil || got.Payload.BenchTeam.ID != "am-quarry" {
			t.Errorf("payload not round-tripped: %+v", got.Payload)
		}
		if got.Payload.StarTeamID == nil || *got.Payload.StarTeamID != "pro-aurora" {
			t.Errorf("star not round-tripped: %v", got.Payload.StarTeamID)
		}
		if got.BonusCreditsSpent != 4 {
			t.Errorf("expected 4 credits spent, got %d", got.BonusCreditsSpent)
		}
	})
}

func TestSubmitRosterDuplicateKeepsBalance(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		d.GrantBonusCredits(ctx, "u1", 10)
		if err := d.SubmitRoster(ctx, testSubmission("u1", 2)); err != nil {
			t.Fatalf("first SubmitRoster: %v", err)
		}

		err := d.SubmitRoster(ctx, testSubmission("u1", 3))
		if !errors.Is(err, ErrDuplicateSubmission) {
			t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
		}
		bal, _ := d.GetBonusCredits(ctx, "u1")
		if bal != 8 {
			t.Errorf("duplicate must not debit; expected 8, got %d", bal)
		}
	})
}

func TestSubmitRosterInsufficientCredits(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		d.GrantBonusCredits(ctx, "u1", 3)

		err := d.SubmitRoster(ctx, testSubmission("u1", 5))
		if !errors.Is(err, ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got %v", err)
		}
		if _, err := d.GetSubmission(ctx, "u1", DefaultRoundID); !errors.Is(err, ErrNotFound) {
			t.Errorf("failed submit must not store a roster, got %v", err)
		}

		// no credits needed succeeds even without a balance row
		if err := d.SubmitRoster(ctx, testSubmission("u2", 0)); err != nil {
			t.Errorf("zero-spend submit: %v", err)
		}
	})
}

func TestSubmitRosterConcurrentSingleWinner(t *testing.T) {
	forEachDAL(t, func(t *testing.T, d DraftDAL) {
		ctx := context.Background()
		d.GrantBonusCredits(ctx, "u1", 10)

		var wg sync.WaitGroup
		errs := make(chan error, 5)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- d.SubmitRoster(ctx, testSubmission("u1", 2))
			}()
		}
		wg.Wait()
		close(errs)

		ok := 0
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDuplicateSubmission):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if ok != 1 {
			t.Errorf("expected exactly one successful submit, got %d", ok)
		}
		if bal, _ := d.GetBonusCredits(ctx, "u1"); bal != 8 {
			t.Errorf("expected a single debit, balance %d", bal)
		}
	})
}

func TestDollarParams(t *testing.T) {
	got := dollarParams("UPDATE t SET a = ? WHERE b = ? AND c = ?")
	want := "UPDATE t SET a = $1 WHERE b = $2 AND c = $3"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
