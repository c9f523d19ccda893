package dal

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// MemoryDAL implements DraftDAL using in-memory storage
type MemoryDAL struct {
	mu          sync.RWMutex
	rounds      []models.Round
	teams       map[string][]models.Team // by round id
	credits     map[string]int
	submissions map[string]models.Submission // by user id + round id
}

// NewMemoryDAL creates a new in-memory data access layer seeded with the
// default round and its pool
func NewMemoryDAL() *MemoryDAL {
	m := &MemoryDAL{
		teams:       make(map[string][]models.Team),
		credits:     make(map[string]int),
		submissions: make(map[string]models.Submission),
	}
	round := getDefaultRound(time.Now())
	m.rounds = []models.Round{round}
	m.teams[round.ID] = getDefaultTeams()
	return m
}

func submissionKey(userID, roundID string) string {
	return userID + "\x00" + roundID
}

func (m *MemoryDAL) ListRounds(ctx context.Context) ([]models.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rounds := slices.Clone(m.rounds)
	slices.SortStableFunc(rounds, func(a, b models.Round) int {
		return a.StartDate.Compare(b.StartDate)
	})
	return rounds, nil
}

func (m *MemoryDAL) GetRound(ctx context.Context, id string) (*models.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rounds {
		if r.ID == id {
			round := r
			return &round, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDAL) AddRound(ctx context.Context, round *models.Round) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if round.ID == "" {
		round.ID = genID("round")
	}
	if round.SalaryCap <= 0 {
		round.SalaryCap = models.DefaultSalaryCap
	}
	if round.TeamTypeRestriction == "" {
		round.TeamTypeRestriction = models.RestrictBoth
	}
	m.rounds = append(m.rounds, *round)
	return round, nil
}

func (m *MemoryDAL) ListTeams(ctx context.Context, roundID string) (*models.CandidatePool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasRound(roundID) {
		return nil, ErrNotFound
	}
	pool := &models.CandidatePool{Pro: []models.Team{}, Amateur: []models.Team{}}
	for _, t := range m.teams[roundID] {
		if t.Type == models.TeamTypeAmateur {
			pool.Amateur = append(pool.Amateur, t.Clone())
		} else {
			pool.Pro = append(pool.Pro, t.Clone())
		}
	}
	byName := func(a, b models.Team) int {
		return cmp.Or(cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)), cmp.Compare(a.ID, b.ID))
	}
	slices.SortFunc(pool.Pro, byName)
	slices.SortFunc(pool.Amateur, byName)
	return pool, nil
}

func (m *MemoryDAL) AddTeam(ctx context.Context, roundID string, team *models.Team) (*models.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasRound(roundID) {
		return nil, ErrNotFound
	}
	if team.ID == "" {
		team.ID = genID(string(team.Type))
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	for i, t := range m.teams[roundID] {
		if t.ID == team.ID {
			m.teams[roundID][i] = team.Clone()
			return team, nil
		}
	}
	m.teams[roundID] = append(m.teams[roundID], team.Clone())
	return team, nil
}

func (m *MemoryDAL) SetTeamPrices(ctx context.Context, roundID string, prices []models.TeamPricing) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasRound(roundID) {
		return 0, ErrNotFound
	}
	byID := make(map[string]models.TeamPricing, len(prices))
	for _, p := range prices {
		byID[p.TeamID] = p
	}
	updated := 0
	teams := m.teams[roundID]
	for i := range teams {
		if p, ok := byID[teams[i].ID]; ok {
			teams[i].ApplyPricing(p)
			updated++
		}
	}
	return updated, nil
}

func (m *MemoryDAL) GetBonusCredits(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credits[userID], nil
}

func (m *MemoryDAL) GrantBonusCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credits[userID] += amount
	return m.credits[userID], nil
}

func (m *MemoryDAL) SubmitRoster(ctx context.Context, sub *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := submissionKey(sub.UserID, sub.RoundID)
	if _, exists := m.submissions[key]; exists {
		return ErrDuplicateSubmission
	}
	if sub.BonusCreditsSpent > m.credits[sub.UserID] {
		return ErrInsufficientCredits
	}

	if sub.ID == "" {
		sub.ID = genID("sub")
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	m.credits[sub.UserID] -= sub.BonusCreditsSpent
	m.submissions[key] = *sub
	return nil
}

func (m *MemoryDAL) GetSubmission(ctx context.Context, userID, roundID string) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.submissions[submissionKey(userID, roundID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (m *MemoryDAL) Close() error {
	return nil
}

func (m *MemoryDAL) hasRound(id string) bool {
	for _, r := range m.rounds {
		if r.ID == id {
			return true
		}
	}
	return false
}
