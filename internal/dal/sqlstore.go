package dal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Billy-Davies-2/esports-draft/internal/models"
)

// sqlStore holds the queries shared by the SQLite and Postgres DALs.
// Queries are written with ? placeholders and rebound per driver.
type sqlStore struct {
	db       *sql.DB
	rebind   func(string) string
	isUnique func(error) bool
}

const txTimeout = 30 * time.Second

// dollarParams rewrites ? placeholders into Postgres $n form
func dollarParams(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(q), args...)
}

// seedIfEmpty inserts the default round and pool when no round exists yet
func (s *sqlStore) seedIfEmpty(ctx context.Context) error {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM rounds`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	round := getDefaultRound(time.Now())
	if err := s.insertRound(ctx, tx, &round); err != nil {
		return err
	}
	for _, team := range getDefaultTeams() {
		if err := s.upsertTeam(ctx, tx, round.ID, &team); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqlStore) insertRound(ctx context.Context, db execer, r *models.Round) error {
	_, err := db.ExecContext(ctx, s.rebind(`
		INSERT INTO rounds (id, name, team_type_restriction, game_type_restriction, salary_cap, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.Name, string(r.TeamTypeRestriction), r.GameTypeRestriction, r.SalaryCap, r.StartDate.Unix(), r.EndDate.Unix())
	return err
}

func (s *sqlStore) upsertTeam(ctx context.Context, db execer, roundID string, t *models.Team) error {
	var price sql.NullInt64
	if t.Price != nil {
		price = sql.NullInt64{Int64: int64(*t.Price), Valid: true}
	}
	win, hasWin := t.RecentWinRate()
	abandon, hasAbandon := t.AbandonRate()
	missed, hasMissed := t.MissedPercent()

	_, err := db.ExecContext(ctx, s.rebind(`
		INSERT INTO teams (round_id, id, name, type, logo_url, game_type, region, price,
			match_volume, recent_win_rate, abandon_rate, missed_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id, id) DO UPDATE SET
			name = excluded.name, type = excluded.type, logo_url = excluded.logo_url,
			game_type = excluded.game_type, region = excluded.region, price = excluded.price,
			match_volume = excluded.match_volume, recent_win_rate = excluded.recent_win_rate,
			abandon_rate = excluded.abandon_rate, missed_percent = excluded.missed_percent
	`), roundID, t.ID, t.Name, string(t.Type), t.LogoURL, t.GameType, t.Region(), price,
		t.MatchVolume(), nullFloat(win, hasWin), nullFloat(abandon, hasAbandon), nullFloat(missed, hasMissed))
	return err
}

func nullFloat(v float64, ok bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *sqlStore) ListRounds(ctx context.Context) ([]models.Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, team_type_restriction, game_type_restriction, salary_cap, start_date, end_date
		FROM rounds
		ORDER BY start_date, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := []models.Round{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *r)
	}
	return rounds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(row scanner) (*models.Round, error) {
	var (
		r          models.Round
		restrict   string
		start, end int64
	)
	if err := row.Scan(&r.ID, &r.Name, &restrict, &r.GameTypeRestriction, &r.SalaryCap, &start, &end); err != nil {
		return nil, err
	}
	r.TeamTypeRestriction = models.TeamTypeRestriction(restrict)
	r.StartDate = time.Unix(start, 0).UTC()
	r.EndDate = time.Unix(end, 0).UTC()
	return &r, nil
}

func (s *sqlStore) GetRound(ctx context.Context, id string) (*models.Round, error) {
	r, err := scanRound(s.queryRow(ctx, `
		SELECT id, name, team_type_restriction, game_type_restriction, salary_cap, start_date, end_date
		FROM rounds WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *sqlStore) AddRound(ctx context.Context, round *models.Round) (*models.Round, error) {
	if round.ID == "" {
		round.ID = genID("round")
	}
	if round.SalaryCap <= 0 {
		round.SalaryCap = models.DefaultSalaryCap
	}
	if round.TeamTypeRestriction == "" {
		round.TeamTypeRestriction = models.RestrictBoth
	}
	if err := s.insertRound(ctx, s.db, round); err != nil {
		return nil, err
	}
	return round, nil
}

func (s *sqlStore) ListTeams(ctx context.Context, roundID string) (*models.CandidatePool, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, type, logo_url, game_type, region, price,
			match_volume, recent_win_rate, abandon_rate, missed_percent
		FROM teams
		WHERE round_id = ?
		ORDER BY LOWER(name), id
	`), roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pool := &models.CandidatePool{Pro: []models.Team{}, Amateur: []models.Team{}}
	for rows.Next() {
		var (
			id, name, typ, logo, game, region string
			price                             sql.NullInt64
			matches                           int
			win, abandon, missed              sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &typ, &logo, &game, &region, &price, &matches, &win, &abandon, &missed); err != nil {
			return nil, err
		}

		var t models.Team
		switch models.TeamType(typ) {
		case models.TeamTypePro:
			t = models.NewProTeam(id, name, game)
			t.Pro.MatchVolume = matches
			t.Pro.RecentWinRate = floatPtr(win)
		case models.TeamTypeAmateur:
			t = models.NewAmateurTeam(id, name, game, region)
			t.Amateur.MatchVolume = matches
			t.Amateur.AbandonRate = floatPtr(abandon)
			t.Amateur.MissedPercent = floatPtr(missed)
		default:
			return nil, fmt.Errorf("team %s: unknown type %q", id, typ)
		}
		t.LogoURL = logo
		if price.Valid {
			p := int(price.Int64)
			t.Price = &p
		}

		if t.Type == models.TeamTypeAmateur {
			pool.Amateur = append(pool.Amateur, t)
		} else {
			pool.Pro = append(pool.Pro, t)
		}
	}
	return pool, rows.Err()
}

func (s *sqlStore) AddTeam(ctx context.Context, roundID string, team *models.Team) (*models.Team, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return nil, err
	}
	if team.ID == "" {
		team.ID = genID(string(team.Type))
	}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	if err := s.upsertTeam(ctx, s.db, roundID, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *sqlStore) SetTeamPrices(ctx context.Context, roundID string, prices []models.TeamPricing) (int, error) {
	if _, err := s.GetRound(ctx, roundID); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		UPDATE teams
		SET price = ?, match_volume = ?, recent_win_rate = ?, abandon_rate = ?, missed_percent = ?
		WHERE round_id = ? AND id = ?
	`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	updated := 0
	for _, p := range prices {
		res, err := stmt.ExecContext(ctx, p.Price, p.MatchVolume,
			optFloat(p.RecentWinRate), optFloat(p.AbandonRate), optFloat(p.MissedPercent),
			roundID, p.TeamID)
		if err != nil {
			return 0, fmt.Errorf("failed to price team %s: %w", p.TeamID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		updated += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

func optFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func (s *sqlStore) GetBonusCredits(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.queryRow(ctx, `SELECT balance FROM bonus_credits WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (s *sqlStore) GrantBonusCredits(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	_, err := s.exec(ctx, `
		INSERT INTO bonus_credits (user_id, balance) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET balance = bonus_credits.balance + excluded.balance
	`, userID, amount)
	if err != nil {
		return 0, err
	}
	return s.GetBonusCredits(ctx, userID)
}

func (s *sqlStore) SubmitRoster(ctx context.Context, sub *models.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	if sub.ID == "" {
		sub.ID = genID("sub")
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal roster payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO submissions (id, user_id, round_id, payload, bonus_credits_spent, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), sub.ID, sub.UserID, sub.RoundID, string(payload), sub.BonusCreditsSpent, sub.SubmittedAt.UnixMilli())
	if err != nil {
		if s.isUnique(err) {
			return ErrDuplicateSubmission
		}
		return err
	}

	if sub.BonusCreditsSpent > 0 {
		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE bonus_credits SET balance = balance - ?
			WHERE user_id = ? AND balance >= ?
		`), sub.BonusCreditsSpent, sub.UserID, sub.BonusCreditsSpent)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInsufficientCredits
		}
	}

	return tx.Commit()
}

func (s *sqlStore) GetSubmission(ctx context.Context, userID, roundID string) (*models.Submission, error) {
	var (
		sub     models.Submission
		payload []byte
		at      int64
	)
	err := s.queryRow(ctx, `
		SELECT id, user_id, round_id, payload, bonus_credits_spent, submitted_at
		FROM submissions WHERE user_id = ? AND round_id = ?
	`, userID, roundID).Scan(&sub.ID, &sub.UserID, &sub.RoundID, &payload, &sub.BonusCreditsSpent, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &sub.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode roster payload: %w", err)
	}
	sub.SubmittedAt = time.UnixMilli(at).UTC()
	return &sub, nil
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
