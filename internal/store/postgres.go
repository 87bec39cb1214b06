package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/internal/types/streak"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool with the same limits the API has always run with.
func Connect(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const participantColumns = `id, clerk_id, username, team_id, timezone, created_at`

func scanParticipant(row pgx.Row) (*participant.Participant, error) {
	p := &participant.Participant{}
	err := row.Scan(&p.ID, &p.ClerkID, &p.Username, &p.TeamID, &p.Timezone, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) Participant(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	p, err := scanParticipant(s.db.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("participant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ParticipantByClerkID(ctx context.Context, clerkID string) (*participant.Participant, error) {
	p, err := scanParticipant(s.db.QueryRow(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE clerk_id = $1`, clerkID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("participant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Team(ctx context.Context, id uuid.UUID) (*participant.Team, error) {
	t := &participant.Team{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, timezone, created_at FROM teams WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Timezone, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("team")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) TeamMembers(ctx context.Context, teamID uuid.UUID) ([]participant.Participant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE team_id = $1 ORDER BY username`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []participant.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, *p)
	}
	return members, rows.Err()
}

const templateColumns = `t.id, t.type, t.difficulty_level, t.description, t.media_ref, t.source, t.created_at`

func scanTemplates(rows pgx.Rows) ([]challenge.Template, error) {
	defer rows.Close()
	var out []challenge.Template
	for rows.Next() {
		var t challenge.Template
		if err := rows.Scan(&t.ID, &t.Type, &t.DifficultyLevel, &t.Description, &t.MediaRef, &t.Source, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListTemplates(ctx context.Context, t challenge.Type) ([]challenge.Template, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+templateColumns+` FROM challenge_templates t WHERE t.type = $1 ORDER BY t.difficulty_level, t.created_at`,
		string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return scanTemplates(rows)
}

func (s *PostgresStore) EligibleTemplates(ctx context.Context, t challenge.Type, actorID uuid.UUID) ([]challenge.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM challenge_templates t
		WHERE t.type = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM attempts a
		      WHERE a.actor_id = $2 AND a.challenge_id = t.id AND a.status = 'valid'
		  )
	`
	rows, err := s.db.Query(ctx, query, string(t), actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible templates: %w", err)
	}
	return scanTemplates(rows)
}

func (s *PostgresStore) InsertTemplates(ctx context.Context, templates []challenge.Template) ([]challenge.Template, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO challenge_templates AS t (id, type, difficulty_level, description, media_ref, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING ` + templateColumns

	var inserted []challenge.Template
	for _, tpl := range templates {
		if tpl.ID == uuid.Nil {
			tpl.ID = uuid.New()
		}
		if tpl.Source == "" {
			tpl.Source = challenge.SourceCatalog
		}
		if tpl.CreatedAt.IsZero() {
			tpl.CreatedAt = time.Now().UTC()
		}
		var out challenge.Template
		err := tx.QueryRow(ctx, query,
			tpl.ID, string(tpl.Type), tpl.DifficultyLevel, tpl.Description, tpl.MediaRef, string(tpl.Source), tpl.CreatedAt,
		).Scan(&out.ID, &out.Type, &out.DifficultyLevel, &out.Description, &out.MediaRef, &out.Source, &out.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert template: %w", err)
		}
		inserted = append(inserted, out)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit templates: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ValidDescriptions(ctx context.Context, actorID uuid.UUID, t challenge.Type) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT t.description
		FROM attempts a
		JOIN challenge_templates t ON t.id = a.challenge_id
		WHERE a.actor_id = $1 AND a.type = $2 AND a.status = 'valid'
	`, actorID, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list completed descriptions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const attemptColumns = `a.id, a.actor_id, a.actor_kind, a.team_id, a.challenge_id, a.type, a.start_at, a.end_at,
	a.status, a.evidence_ref, a.verdict_reason, a.completed_at, a.points_awarded, a.streak_index, a.created_at`

func attemptDest(a *challenge.Attempt) []any {
	return []any{
		&a.ID, &a.ActorID, &a.ActorKind, &a.TeamID, &a.ChallengeID, &a.Type, &a.StartAt, &a.EndAt,
		&a.Status, &a.EvidenceRef, &a.VerdictReason, &a.CompletedAt, &a.PointsAwarded, &a.StreakIndex, &a.CreatedAt,
	}
}

func scanAttempt(row pgx.Row) (*challenge.Attempt, error) {
	a := &challenge.Attempt{}
	if err := row.Scan(attemptDest(a)...); err != nil {
		return nil, err
	}
	return a, nil
}

func scanAttemptView(row pgx.Row) (*challenge.AttemptView, error) {
	v := &challenge.AttemptView{}
	dest := append(attemptDest(&v.Attempt), &v.Description, &v.DifficultyLevel)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *PostgresStore) OpenAttempt(ctx context.Context, a *challenge.Attempt) (*challenge.Attempt, error) {
	query := `
		INSERT INTO attempts AS a (id, actor_id, actor_kind, team_id, challenge_id, type, start_at, end_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'open', $9)
		ON CONFLICT (actor_id, type) WHERE status IN ('open', 'invalid_pending') DO NOTHING
		RETURNING ` + attemptColumns

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	created, err := scanAttempt(s.db.QueryRow(ctx, query,
		a.ID, a.ActorID, string(a.ActorKind), a.TeamID, a.ChallengeID, string(a.Type), a.StartAt, a.EndAt, a.CreatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt: %w", err)
	}
	return created, nil
}

const attemptViewQuery = `SELECT ` + attemptColumns + `, t.description, t.difficulty_level
	FROM attempts a
	JOIN challenge_templates t ON t.id = a.challenge_id`

func (s *PostgresStore) Attempt(ctx context.Context, id uuid.UUID) (*challenge.AttemptView, error) {
	v, err := scanAttemptView(s.db.QueryRow(ctx, attemptViewQuery+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("attempt")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return v, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (s *PostgresStore) listViews(ctx context.Context, query string, args ...any) ([]challenge.AttemptView, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var out []challenge.AttemptView
	for rows.Next() {
		v, err := scanAttemptView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveAttempts(ctx context.Context, actorIDs []uuid.UUID) ([]challenge.AttemptView, error) {
	return s.listViews(ctx, attemptViewQuery+`
		WHERE a.actor_id = ANY($1::uuid[]) AND a.status IN ('open', 'invalid_pending')
		ORDER BY a.end_at`, uuidStrings(actorIDs))
}

func (s *PostgresStore) AttemptHistory(ctx context.Context, actorIDs []uuid.UUID, limit int) ([]challenge.AttemptView, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.listViews(ctx, attemptViewQuery+`
		WHERE a.actor_id = ANY($1::uuid[]) AND a.status IN ('valid', 'expired')
		ORDER BY a.end_at DESC
		LIMIT $2`, uuidStrings(actorIDs), limit)
}

func (s *PostgresStore) RecordEvidence(ctx context.Context, id uuid.UUID, ref string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE attempts SET evidence_ref = $2
		WHERE id = $1 AND status IN ('open', 'invalid_pending')
	`, id, ref)
	if err != nil {
		return false, fmt.Errorf("failed to record evidence: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) MarkInvalid(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE attempts SET status = 'invalid_pending', verdict_reason = $2
		WHERE id = $1 AND status IN ('open', 'invalid_pending') AND end_at > $3
	`, id, reason, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark attempt invalid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CloseValid(ctx context.Context, req CloseRequest) (*CloseResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	closed, err := scanAttempt(tx.QueryRow(ctx, `
		UPDATE attempts AS a
		SET status = 'valid', completed_at = $2, points_awarded = $3, verdict_reason = NULL
		WHERE a.id = $1
		  AND a.status IN ('open', 'invalid_pending')
		  AND a.start_at <= $2 AND a.end_at > $2
		RETURNING `+attemptColumns,
		req.AttemptID, req.Now, req.Delta,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		_ = tx.Rollback(ctx)
		current, err := s.Attempt(ctx, req.AttemptID)
		if err != nil {
			return nil, err
		}
		return &CloseResult{Attempt: current.Attempt}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close attempt: %w", err)
	}

	result := &CloseResult{Closed: true}

	if closed.TeamID != nil {
		var total int
		err := tx.QueryRow(ctx, `
			INSERT INTO team_ledgers (team_id, points, last_variation, updated_at)
			VALUES ($1, $2, $2, $3)
			ON CONFLICT (team_id) DO UPDATE
			SET points = team_ledgers.points + EXCLUDED.points,
			    last_variation = EXCLUDED.last_variation,
			    updated_at = EXCLUDED.updated_at
			RETURNING points
		`, *closed.TeamID, req.Delta, req.Now).Scan(&total)
		if err != nil {
			return nil, fmt.Errorf("failed to apply ledger delta: %w", err)
		}
		result.LedgerTotal = &total
	}

	if closed.Type == challenge.TypeDaily && closed.TeamID != nil && req.StreakDay >= 0 && req.StreakDay < streak.Days {
		rec, err := markStreak(ctx, tx, closed, req)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			day := req.StreakDay
			if _, err := tx.Exec(ctx, `UPDATE attempts SET streak_index = $2 WHERE id = $1`, closed.ID, day); err != nil {
				return nil, fmt.Errorf("failed to record streak index: %w", err)
			}
			closed.StreakIndex = &day
			result.Streak = rec
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit close: %w", err)
	}
	result.Attempt = *closed
	return result, nil
}

// markStreak sets the participant's slot on the team's current weekly
// attempt. It returns nil when the team has no current weekly attempt.
func markStreak(ctx context.Context, tx pgx.Tx, daily *challenge.Attempt, req CloseRequest) (*streak.Record, error) {
	var weeklyID uuid.UUID
	err := tx.QueryRow(ctx, `
		SELECT id FROM attempts
		WHERE actor_id = $1 AND type = 'weekly' AND status <> 'expired'
		  AND start_at <= $2 AND end_at > $2
		ORDER BY status IN ('open', 'invalid_pending') DESC, start_at DESC, created_at DESC
		LIMIT 1
	`, *daily.TeamID, req.Now).Scan(&weeklyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find weekly attempt: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO streaks (participant_id, weekly_attempt_id, slots, updated_at)
		VALUES ($1, $2, 'uuuuuuu', $3)
		ON CONFLICT DO NOTHING
	`, daily.ActorID, weeklyID, req.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to create streak: %w", err)
	}

	var code string
	err = tx.QueryRow(ctx, `
		SELECT slots FROM streaks
		WHERE participant_id = $1 AND weekly_attempt_id = $2
		FOR UPDATE
	`, daily.ActorID, weeklyID).Scan(&code)
	if err != nil {
		return nil, fmt.Errorf("failed to lock streak: %w", err)
	}
	slots, err := streak.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("stored streak: %w", err)
	}
	slots = slots.Normalize(req.StreakDay).Mark(req.StreakDay)

	_, err = tx.Exec(ctx, `
		UPDATE streaks SET slots = $3, updated_at = $4
		WHERE participant_id = $1 AND weekly_attempt_id = $2
	`, daily.ActorID, weeklyID, slots.String(), req.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	return &streak.Record{
		ParticipantID:   daily.ActorID,
		WeeklyAttemptID: weeklyID,
		Slots:           slots,
		UpdatedAt:       req.Now,
	}, nil
}

func (s *PostgresStore) ExpireDue(ctx context.Context, now time.Time, limit int) ([]challenge.Attempt, error) {
	if limit <= 0 {
		limit = DefaultSweepBatch
	}
	rows, err := s.db.Query(ctx, `
		UPDATE attempts AS a SET status = 'expired'
		WHERE a.id IN (
		    SELECT id FROM attempts
		    WHERE status IN ('open', 'invalid_pending') AND end_at <= $1
		    ORDER BY end_at
		    LIMIT $2
		    FOR UPDATE SKIP LOCKED
		)
		AND a.status IN ('open', 'invalid_pending')
		RETURNING `+attemptColumns, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire attempts: %w", err)
	}
	defer rows.Close()

	var expired []challenge.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expired attempt: %w", err)
		}
		expired = append(expired, *a)
	}
	return expired, rows.Err()
}

func (s *PostgresStore) Ledger(ctx context.Context, teamID uuid.UUID) (*ledger.TeamLedger, error) {
	l := &ledger.TeamLedger{}
	err := s.db.QueryRow(ctx, `
		SELECT t.id, COALESCE(l.points, 0), COALESCE(l.last_variation, 0), COALESCE(l.updated_at, t.created_at)
		FROM teams t
		LEFT JOIN team_ledgers l ON l.team_id = t.id
		WHERE t.id = $1
	`, teamID).Scan(&l.TeamID, &l.Points, &l.LastVariation, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("team")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) Standings(ctx context.Context, limit int) ([]ledger.Standing, error) {
	if limit <= 0 {
		limit = DefaultStandingsLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT t.id, t.name, COALESCE(l.points, 0) AS points, COALESCE(l.last_variation, 0)
		FROM teams t
		LEFT JOIN team_ledgers l ON l.team_id = t.id
		ORDER BY points DESC, t.name ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	defer rows.Close()

	var out []ledger.Standing
	for rows.Next() {
		var st ledger.Standing
		if err := rows.Scan(&st.TeamID, &st.TeamName, &st.Points, &st.LastVariation); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ledger.Rank(out), nil
}

func (s *PostgresStore) CurrentWeeklyAttempt(ctx context.Context, teamID uuid.UUID, now time.Time) (*challenge.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM attempts a
		WHERE a.actor_id = $1 AND a.type = 'weekly' AND a.status <> 'expired'
		  AND a.start_at <= $2 AND a.end_at > $2
		ORDER BY a.status IN ('open', 'invalid_pending') DESC, a.start_at DESC, a.created_at DESC
		LIMIT 1
	`, teamID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("weekly attempt")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly attempt: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Streaks(ctx context.Context, weeklyAttemptID uuid.UUID) ([]streak.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT participant_id, weekly_attempt_id, slots, updated_at
		FROM streaks
		WHERE weekly_attempt_id = $1
	`, weeklyAttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streaks: %w", err)
	}
	defer rows.Close()

	var out []streak.Record
	for rows.Next() {
		var rec streak.Record
		var code string
		if err := rows.Scan(&rec.ParticipantID, &rec.WeeklyAttemptID, &code, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan streak: %w", err)
		}
		if rec.Slots, err = streak.Parse(code); err != nil {
			return nil, fmt.Errorf("stored streak for %s: %w", rec.ParticipantID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RegisterDevice(ctx context.Context, token participant.DeviceToken) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (participant_id, token, platform, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (participant_id, token) DO UPDATE
		SET platform = EXCLUDED.platform, updated_at = NOW()
	`, token.ParticipantID, token.Token, token.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeviceTokens(ctx context.Context, participantIDs []uuid.UUID) ([]participant.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT participant_id, token, platform FROM device_tokens
		WHERE participant_id = ANY($1::uuid[])
	`, uuidStrings(participantIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var out []participant.DeviceToken
	for rows.Next() {
		var dt participant.DeviceToken
		if err := rows.Scan(&dt.ParticipantID, &dt.Token, &dt.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}
