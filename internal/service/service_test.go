package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/esports-draft/internal/dal"
	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
	"github.com/Billy-Davies-2/esports-draft/internal/sessions"
)

var fivePros = []string{"pro-aurora", "pro-blackvane", "pro-cinder", "pro-drift", "pro-ember"}

type fixture struct {
	svc    *Service
	store  *dal.MemoryDAL
	events *pubsub.PubSub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := dal.NewMemoryDAL()
	events := pubsub.New()
	svc := New(store, sessions.NewMemoryStore(), Options{Events: events, FilterDelay: 20 * time.Millisecond})
	t.Cleanup(svc.Close)
	return &fixture{svc: svc, store: store, events: events}
}

// priceAll gives every seeded team the same price
func (f *fixture) priceAll(t *testing.T, price int) {
	t.Helper()
	ctx := context.Background()
	pool, err := f.store.ListTeams(ctx, dal.DefaultRoundID)
	require.NoError(t, err)
	var prices []models.TeamPricing
	for _, team := range pool.All() {
		prices = append(prices, models.TeamPricing{TeamID: team.ID, Price: price})
	}
	_, err = f.svc.ApplyPricing(ctx, dal.DefaultRoundID, prices)
	require.NoError(t, err)
}

func (f *fixture) fullRoster(t *testing.T, user string) *SessionView {
	t.Helper()
	ctx := context.Background()
	view, err := f.svc.CreateSession(ctx, user, dal.DefaultRoundID)
	require.NoError(t, err)
	for _, id := range fivePros {
		view, err = f.svc.Toggle(ctx, user, view.ID, id)
		require.NoError(t, err, id)
	}
	return view
}

func requireReason(t *testing.T, err error, want draft.Reason) {
	t.Helper()
	require.Error(t, err)
	reason, ok := draft.ReasonOf(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, want, reason)
}

func waitFor(t *testing.T, ch chan pubsub.Event, typ string) pubsub.Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case e := <-ch:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event received", typ)
		}
	}
}

func TestSubmitFullRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view := f.fullRoster(t, "u1")
	assert.Equal(t, draft.StateFull, view.State)
	assert.Equal(t, 50, view.Budget.Spent)

	view, err := f.svc.SetStar(ctx, "u1", view.ID, "pro-cinder")
	require.NoError(t, err)
	assert.Equal(t, "pro-cinder", view.StarTeamID)

	events := f.events.Subscribe()
	defer f.events.Unsubscribe(events)

	sub, err := f.svc.Submit(ctx, "u1", view.ID, false)
	require.NoError(t, err)
	assert.Equal(t, dal.DefaultRoundID, sub.RoundID)
	assert.Zero(t, sub.BonusCreditsSpent)
	require.Len(t, sub.Payload.TeamPicks, 5)
	require.NotNil(t, sub.Payload.StarTeamID)
	assert.Equal(t, "pro-cinder", *sub.Payload.StarTeamID)

	e := waitFor(t, events, pubsub.EventRosterSubmit)
	assert.Equal(t, "u1", e.UserID)

	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.StateSubmitted, got.State)

	stored, err := f.svc.GetSubmission(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, stored.ID)

	_, err = f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	requireReason(t, err, draft.ReasonSubmitted)
}

func TestSubmitSpendsBonusCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 12)
	_, err := f.svc.GrantBonusCredits(ctx, "u1", 15)
	require.NoError(t, err)

	view := f.fullRoster(t, "u1")
	assert.Equal(t, 10, view.Budget.BonusCreditsNeeded)

	sub, err := f.svc.Submit(ctx, "u1", view.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 10, sub.BonusCreditsSpent)
	assert.Nil(t, sub.Payload.StarTeamID)

	bal, err := f.svc.BonusCredits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, bal)
}

func TestSubmitPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	for _, id := range fivePros[:4] {
		_, err = f.svc.Toggle(ctx, "u1", view.ID, id)
		require.NoError(t, err)
	}

	_, err = f.svc.Submit(ctx, "u1", view.ID, true)
	requireReason(t, err, draft.ReasonIncompleteRoster)
	_, err = f.svc.GetSubmission(ctx, "u1", dal.DefaultRoundID)
	assert.ErrorIs(t, err, dal.ErrNotFound, "no external call for an incomplete roster")

	_, err = f.svc.Toggle(ctx, "u1", view.ID, fivePros[4])
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "u1", view.ID, false)
	requireReason(t, err, draft.ReasonStarUnconfirmed)

	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.StateFull, got.State)
}

func TestDuplicateSubmissionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	first := f.fullRoster(t, "u1")
	second := f.fullRoster(t, "u1")

	_, err := f.svc.Submit(ctx, "u1", first.ID, true)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, "u1", second.ID, true)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	got, err := f.svc.GetSession(ctx, "u1", second.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.StateSubmitted, got.State)
}

func TestToggleRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)

	_, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	requireReason(t, err, draft.ReasonUnpriced)

	_, err = f.svc.Toggle(ctx, "u1", view.ID, "nope")
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = f.svc.Toggle(ctx, "someone-else", view.ID, "pro-aurora")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.CreateSession(ctx, "u1", "missing-round")
	assert.ErrorIs(t, err, dal.ErrNotFound)
}

func TestToggleOverBudgetLeavesRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ApplyPricing(ctx, dal.DefaultRoundID, []models.TeamPricing{
		{TeamID: "pro-aurora", Price: 20},
		{TeamID: "pro-blackvane", Price: 40},
	})
	require.NoError(t, err)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	view, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	assert.Equal(t, 30, view.Budget.Remaining)

	_, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-blackvane")
	requireReason(t, err, draft.ReasonOverBudget)

	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	require.Len(t, got.Selected, 1)
	assert.Equal(t, "pro-aurora", got.Selected[0].ID)
}

func TestBenchAndStar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 5)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)

	_, err = f.svc.SetBench(ctx, "u1", view.ID, "pro-aurora")
	requireReason(t, err, draft.ReasonBenchIneligible)

	view, err = f.svc.SetBench(ctx, "u1", view.ID, "am-lowtide")
	require.NoError(t, err)
	require.NotNil(t, view.Bench)
	assert.Equal(t, "am-lowtide", view.Bench.ID)

	_, err = f.svc.Toggle(ctx, "u1", view.ID, "am-lowtide")
	requireReason(t, err, draft.ReasonBenchConflict)

	_, err = f.svc.SetStar(ctx, "u1", view.ID, "pro-aurora")
	requireReason(t, err, draft.ReasonStarNotSelected)

	view, err = f.svc.SetBench(ctx, "u1", view.ID, "")
	require.NoError(t, err)
	assert.Nil(t, view.Bench)

	view, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	view, err = f.svc.SetStar(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	view, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	assert.Empty(t, view.StarTeamID, "removing the star team clears the star")
}

func TestSheetCommitAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	_, err = f.svc.SheetToggle(ctx, "u1", view.ID, "pro-aurora")
	requireReason(t, err, draft.ReasonSheetClosed)

	view, err = f.svc.OpenSheet(ctx, "u1", view.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Sheet)

	for _, id := range append(fivePros, "pro-frostline") {
		view, err = f.svc.SheetToggle(ctx, "u1", view.ID, id)
		require.NoError(t, err, id)
	}
	assert.True(t, view.Sheet.Summary.OverCount)
	assert.False(t, view.Sheet.Summary.Confirmable)
	assert.Empty(t, view.Selected, "the committed roster is untouched while the sheet is open")

	_, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-halcyon")
	requireReason(t, err, draft.ReasonSheetOpen)
	_, err = f.svc.Submit(ctx, "u1", view.ID, true)
	requireReason(t, err, draft.ReasonSheetOpen)

	_, err = f.svc.ConfirmSheet(ctx, "u1", view.ID)
	requireReason(t, err, draft.ReasonTooManyTeams)
	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Sheet, "a rejected commit keeps the sheet open")

	_, err = f.svc.SheetToggle(ctx, "u1", view.ID, "pro-frostline")
	require.NoError(t, err)
	view, err = f.svc.ConfirmSheet(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Sheet)
	assert.Len(t, view.Selected, 5)

	view, err = f.svc.OpenSheet(ctx, "u1", view.ID)
	require.NoError(t, err)
	view, err = f.svc.SheetToggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	assert.Len(t, view.Sheet.Teams, 4)
	view, err = f.svc.CancelSheet(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Sheet)
	assert.Len(t, view.Selected, 5)
}

func TestCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-halcyon")
	require.NoError(t, err)

	list, err := f.svc.Candidates(ctx, "u1", view.ID, draft.FilterState{Search: "aurora"})
	require.NoError(t, err)
	assert.Equal(t, models.TeamTypePro, list.Tab)
	require.Len(t, list.Teams, 2, "the selected team survives the search")
	assert.Equal(t, "pro-aurora", list.Teams[0].ID)
	assert.Equal(t, "pro-halcyon", list.Teams[1].ID)
	assert.True(t, list.Teams[1].Selected)
	assert.True(t, list.Teams[0].Affordable)
	assert.Equal(t, 10, list.Budget.Spent)

	list, err = f.svc.Candidates(ctx, "u1", view.ID, draft.FilterState{Tab: models.TeamTypeAmateur, Region: "eu"})
	require.NoError(t, err)
	var got []string
	for _, c := range list.Teams {
		got = append(got, c.ID)
	}
	assert.Equal(t, []string{"am-lowtide", "am-mosspit", "am-quarry"}, got)
}

func TestCandidatesFollowOpenSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 20)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	_, err = f.svc.OpenSheet(ctx, "u1", view.ID)
	require.NoError(t, err)
	_, err = f.svc.SheetToggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	_, err = f.svc.SheetToggle(ctx, "u1", view.ID, "pro-blackvane")
	require.NoError(t, err)

	list, err := f.svc.Candidates(ctx, "u1", view.ID, draft.FilterState{})
	require.NoError(t, err)
	for _, c := range list.Teams {
		switch c.ID {
		case "pro-aurora", "pro-blackvane":
			assert.True(t, c.Selected, c.ID)
		default:
			assert.False(t, c.Selected, c.ID)
			assert.False(t, c.Affordable, "only 10 credits remain in the sheet")
		}
	}
	assert.Equal(t, 40, list.Budget.Spent)
}

func TestAdvancedFiltersAreDebounced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)

	events := f.events.Subscribe()
	defer f.events.Unsubscribe(events)

	for _, limit := range []int{20, 15, 5} {
		fs := draft.FilterState{Advanced: draft.AdvancedFilters{MaxCredits: &limit}}
		require.NoError(t, f.svc.SetAdvancedFilters(ctx, "u1", view.ID, fs))
	}

	e := waitFor(t, events, pubsub.EventCandidatesUpdate)
	assert.Equal(t, view.ID, e.SessionID)
	teams, ok := e.Payload["teams"].([]any)
	require.True(t, ok, "payload carries the candidate list")
	assert.Empty(t, teams, "only the last update is applied")

	select {
	case e := <-events:
		t.Fatalf("unexpected extra event %s", e.Type)
	case <-time.After(100 * time.Millisecond):
	}

	err = f.svc.SetAdvancedFilters(ctx, "u2", view.ID, draft.FilterState{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestApplyPricingRefreshesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)

	events := f.events.Subscribe()
	defer f.events.Unsubscribe(events)

	wr := 0.75
	n, err := f.svc.ApplyPricing(ctx, dal.DefaultRoundID, []models.TeamPricing{
		{TeamID: "pro-aurora", Price: 14, MatchVolume: 8, RecentWinRate: &wr},
		{TeamID: "unknown", Price: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e := waitFor(t, events, pubsub.EventPricesUpdate)
	assert.Equal(t, dal.DefaultRoundID, e.RoundID)

	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	require.Len(t, got.Selected, 1)
	picked := got.Selected[0]
	assert.Equal(t, 14, picked.PriceValue())
	assert.Equal(t, 8, picked.MatchVolume())
	assert.Equal(t, 14, got.Budget.Spent)

	_, err = f.svc.ApplyPricing(ctx, "missing-round", nil)
	assert.ErrorIs(t, err, dal.ErrNotFound)
}

func TestConcurrentTogglesRespectSlotLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 1)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	pool, err := f.svc.Pool(ctx, dal.DefaultRoundID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, len(pool.Pro))
	for _, team := range pool.Pro {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.Toggle(ctx, "u1", view.ID, id)
			errs <- err
		}(team.ID)
	}
	wg.Wait()
	close(errs)

	accepted, full := 0, 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		reason, _ := draft.ReasonOf(err)
		assert.Equal(t, draft.ReasonRosterFull, reason, fmt.Sprint(err))
		full++
	}
	assert.Equal(t, draft.MaxTeams, accepted)
	assert.Equal(t, len(pool.Pro)-draft.MaxTeams, full)

	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Len(t, got.Selected, draft.MaxTeams)
}

func TestAddTeamPublishesPoolChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := f.events.Subscribe()
	defer f.events.Unsubscribe(events)

	team := models.NewAmateurTeam("am-newcomer", "Newcomer", "cs2", "eu")
	_, err := f.svc.AddTeam(ctx, dal.DefaultRoundID, &team)
	require.NoError(t, err)

	e := waitFor(t, events, pubsub.EventCandidatesUpdate)
	assert.Equal(t, "am-newcomer", e.Payload["added"])
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	done := make(chan struct{})
	go func() {
		defer close(done)
		k.Lock("a")()
	}()
	unlock()
	<-done

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

func TestCreditsGrantedAfterCreateSessionCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.ApplyPricing(ctx, dal.DefaultRoundID, []models.TeamPricing{
		{TeamID: "pro-aurora", Price: 20},
		{TeamID: "pro-blackvane", Price: 40},
	})
	require.NoError(t, err)

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)
	assert.Equal(t, 50, view.Budget.Total)

	_, err = f.svc.GrantBonusCredits(ctx, "u1", 20)
	require.NoError(t, err)

	view, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-aurora")
	require.NoError(t, err)
	assert.Equal(t, 70, view.Budget.Total)
	assert.Equal(t, 50, view.Budget.Remaining)

	list, err := f.svc.Candidates(ctx, "u1", view.ID, draft.FilterState{Search: "blackvane"})
	require.NoError(t, err)
	require.Len(t, list.Teams, 2)
	for _, c := range list.Teams {
		assert.True(t, c.Affordable, c.ID)
	}
	assert.Equal(t, 70, list.Budget.Total)

	view, err = f.svc.Toggle(ctx, "u1", view.ID, "pro-blackvane")
	require.NoError(t, err)
	assert.Equal(t, 60, view.Budget.Spent)
	assert.Equal(t, 10, view.Budget.BonusCreditsNeeded)
}

func TestLatePricingLeavesSubmittedSessionAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	view := f.fullRoster(t, "u1")
	_, err := f.svc.Submit(ctx, "u1", view.ID, true)
	require.NoError(t, err)

	events := f.events.Subscribe()
	defer f.events.Unsubscribe(events)

	_, err = f.svc.ApplyPricing(ctx, dal.DefaultRoundID, []models.TeamPricing{{TeamID: "pro-aurora", Price: 40}})
	require.NoError(t, err)
	e := waitFor(t, events, pubsub.EventPricesUpdate)
	assert.Equal(t, dal.DefaultRoundID, e.RoundID)
	select {
	case e := <-events:
		t.Fatalf("unexpected %s event for a submitted session", e.Type)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := f.svc.GetSession(ctx, "u1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.StateSubmitted, got.State)
	assert.Equal(t, 50, got.Budget.Spent)
}

func TestCandidatesRejectUnknownSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.CreateSession(ctx, "u1", dal.DefaultRoundID)
	require.NoError(t, err)

	_, err = f.svc.Candidates(ctx, "u1", view.ID, draft.FilterState{Sort: "popularity"})
	assert.ErrorIs(t, err, draft.ErrInvalidFilter)
	err = f.svc.SetAdvancedFilters(ctx, "u1", view.ID, draft.FilterState{Direction: "up"})
	assert.ErrorIs(t, err, draft.ErrInvalidFilter)
}

func debouncerCount(s *Service) int {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	return len(s.debouncers)
}

func TestDebouncersAreReleased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.priceAll(t, 10)

	submitted := f.fullRoster(t, "u1")
	require.NoError(t, f.svc.SetAdvancedFilters(ctx, "u1", submitted.ID, draft.FilterState{}))
	require.Equal(t, 1, debouncerCount(f.svc))
	_, err := f.svc.Submit(ctx, "u1", submitted.ID, true)
	require.NoError(t, err)
	assert.Zero(t, debouncerCount(f.svc), "submitting releases the session's debouncer")

	gone, err := f.svc.CreateSession(ctx, "u2", dal.DefaultRoundID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetAdvancedFilters(ctx, "u2", gone.ID, draft.FilterState{}))
	require.NoError(t, f.svc.sessions.Delete(ctx, gone.ID))

	deadline := time.Now().Add(time.Second)
	for debouncerCount(f.svc) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, debouncerCount(f.svc), "a debouncer firing for a deleted session is released")
}
