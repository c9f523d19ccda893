package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/esports-draft/internal/dal"
	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/metrics"
	"github.com/Billy-Davies-2/esports-draft/internal/models"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
	"github.com/Billy-Davies-2/esports-draft/internal/sessions"
)

// Options carries the optional collaborators of a Service
type Options struct {
	Events      pubsub.Broker
	Metrics     *metrics.Metrics
	FilterDelay time.Duration
}

// Service hosts draft sessions on top of the persistence collaborator.
// Operations on one session are serialized; different sessions proceed in
// parallel.
type Service struct {
	store    dal.DraftDAL
	sessions sessions.Store
	events   pubsub.Broker
	metrics  *metrics.Metrics
	locks    *keyedMutex

	filterDelay time.Duration
	debounceMu  sync.Mutex
	debouncers  map[string]*draft.Debouncer
}

func New(store dal.DraftDAL, sessionStore sessions.Store, opts Options) *Service {
	if opts.Events == nil {
		opts.Events = pubsub.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.FilterDelay <= 0 {
		opts.FilterDelay = draft.AdvancedFilterDelay
	}
	return &Service{
		store:       store,
		sessions:    sessionStore,
		events:      opts.Events,
		metrics:     opts.Metrics,
		locks:       newKeyedMutex(),
		filterDelay: opts.FilterDelay,
		debouncers:  make(map[string]*draft.Debouncer),
	}
}

// Close cancels pending debounced work
func (s *Service) Close() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	for id, d := range s.debouncers {
		d.Stop()
		delete(s.debouncers, id)
	}
}

func (s *Service) ListRounds(ctx context.Context) ([]models.Round, error) {
	return s.store.ListRounds(ctx)
}

func (s *Service) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return s.store.GetRound(ctx, id)
}

func (s *Service) AddRound(ctx context.Context, round *models.Round) (*models.Round, error) {
	return s.store.AddRound(ctx, round)
}

// Pool returns the full candidate pool of a round
func (s *Service) Pool(ctx context.Context, roundID string) (*models.CandidatePool, error) {
	return s.store.ListTeams(ctx, roundID)
}

// AddTeam adds a team to a round pool and tells clients the pool changed
func (s *Service) AddTeam(ctx context.Context, roundID string, team *models.Team) (*models.Team, error) {
	t, err := s.store.AddTeam(ctx, roundID, team)
	if err != nil {
		return nil, err
	}
	e := pubsub.NewEvent(pubsub.EventCandidatesUpdate, map[string]any{"added": t.ID})
	e.RoundID = roundID
	s.events.Publish(e)
	return t, nil
}

func (s *Service) BonusCredits(ctx context.Context, userID string) (int, error) {
	return s.store.GetBonusCredits(ctx, userID)
}

// GrantBonusCredits credits a user, e.g. as a mission reward
func (s *Service) GrantBonusCredits(ctx context.Context, userID string, amount int) (int, error) {
	bal, err := s.store.GrantBonusCredits(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	logger.Info("Granted bonus credits", "user", userID, "amount", amount, "balance", bal)
	return bal, nil
}

// CreateSession opens an empty draft for userID in a round. A user who
// already submitted for the round cannot start another draft.
func (s *Service) CreateSession(ctx context.Context, userID, roundID string) (*SessionView, error) {
	round, err := s.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetSubmission(ctx, userID, roundID); err == nil {
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, dal.ErrNotFound) {
		return nil, err
	}
	credits, err := s.store.GetBonusCredits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read bonus credits: %w", err)
	}

	sess := draft.NewSession(uuid.NewString(), userID, *round, credits)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.metrics.SessionCreated()
	logger.Info("Draft session created", "session", sess.ID, "user", userID, "round", roundID)

	view := newSessionView(sess)
	s.publishSession(pubsub.EventSessionUpdate, view)
	return view, nil
}

// GetSession returns the session with the current bonus credit balance
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshCredits(ctx, sess); err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

// refreshCredits replaces the balance carried by the stored session with the
// account's current one. Grants can land at any time after CreateSession.
func (s *Service) refreshCredits(ctx context.Context, sess *draft.Session) error {
	credits, err := s.store.GetBonusCredits(ctx, sess.UserID)
	if err != nil {
		return fmt.Errorf("failed to read bonus credits: %w", err)
	}
	sess.Roster().SetBonusCredits(credits)
	return nil
}

func (s *Service) load(ctx context.Context, userID, sessionID string) (*draft.Session, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// mutate runs fn against a locked session and saves it when fn succeeds.
// Rejections leave the stored session untouched.
func (s *Service) mutate(ctx context.Context, userID, sessionID, op string, fn func(*draft.Session) error) (*SessionView, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.refreshCredits(ctx, sess); err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		if reason, ok := draft.ReasonOf(err); ok {
			s.metrics.Rejection(string(reason))
			logger.Debug("Roster operation rejected", "session", sessionID, "op", op, "reason", reason)
		}
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.metrics.RosterMutation(op)

	view := newSessionView(sess)
	s.publishSession(pubsub.EventSessionUpdate, view)
	return view, nil
}

func (s *Service) publishSession(typ string, view *SessionView) {
	e := pubsub.NewEvent(typ, view)
	e.RoundID = view.Round.ID
	e.SessionID = view.ID
	e.UserID = view.UserID
	s.events.Publish(e)
}

// findTeam resolves a team id against the current pool so prices are fresh
func (s *Service) findTeam(ctx context.Context, roundID, teamID string) (models.Team, error) {
	pool, err := s.store.ListTeams(ctx, roundID)
	if err != nil {
		return models.Team{}, err
	}
	t, ok := pool.Find(teamID)
	if !ok {
		return models.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	return t, nil
}
