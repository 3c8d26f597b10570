package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayusman/ptrack/internal/store"
)

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return store.DefaultListLimit
	}
	return limit
}

func stamp(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if created.IsZero() {
		*created = time.Now().UTC()
	}
}

type flexionRepo struct {
	pool *pgxpool.Pool
}

func (r *flexionRepo) Insert(ctx context.Context, s *store.FlexionSession) error {
	stamp(&s.ID, &s.CreatedAt)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO flexion_sessions
			(id, subject_id, session, degree_forward, degree_backward, repetitions, level_up, created_at)
		 SELECT $1::uuid, $2::uuid, COALESCE(MAX(session), 0) + 1, $3::int, $4::int, $5::int, $6::boolean, $7::timestamptz
		 FROM flexion_sessions WHERE subject_id = $2::uuid
		 RETURNING session`,
		s.ID, s.SubjectID, s.TargetForward, s.TargetBackward, s.Repetitions, s.LeveledUp, s.CreatedAt,
	).Scan(&s.Session)
	if err != nil {
		return fmt.Errorf("inserting flexion session: %w", err)
	}
	return nil
}

const flexionColumns = `id::text, subject_id::text, session, degree_forward, degree_backward, repetitions, level_up, created_at`

func scanFlexion(row pgx.Row) (*store.FlexionSession, error) {
	s := &store.FlexionSession{}
	err := row.Scan(&s.ID, &s.SubjectID, &s.Session, &s.TargetForward, &s.TargetBackward, &s.Repetitions, &s.LeveledUp, &s.CreatedAt)
	return s, err
}

func (r *flexionRepo) Latest(ctx context.Context, subjectID string) (*store.FlexionSession, error) {
	s, err := scanFlexion(r.pool.QueryRow(ctx,
		`SELECT `+flexionColumns+` FROM flexion_sessions
		 WHERE subject_id = $1 ORDER BY session DESC LIMIT 1`,
		subjectID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest flexion session: %w", err)
	}
	return s, nil
}

func (r *flexionRepo) List(ctx context.Context, subjectID string, limit int) ([]*store.FlexionSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+flexionColumns+` FROM flexion_sessions
		 WHERE subject_id = $1 ORDER BY session DESC LIMIT $2`,
		subjectID, limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying flexion sessions: %w", err)
	}
	defer rows.Close()

	var out []*store.FlexionSession
	for rows.Next() {
		s, err := scanFlexion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning flexion session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type gripRepo struct {
	pool *pgxpool.Pool
}

func (r *gripRepo) Insert(ctx context.Context, s *store.GripSession) error {
	stamp(&s.ID, &s.CreatedAt)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO grip_sessions
			(id, subject_id, session, fsr_palm, r_fsr_palm, samples, reduction, created_at)
		 SELECT $1::uuid, $2::uuid, COALESCE(MAX(session), 0) + 1, $3::float8, $4::float8, $5::int, $6::text, $7::timestamptz
		 FROM grip_sessions WHERE subject_id = $2::uuid
		 RETURNING session`,
		s.ID, s.SubjectID, s.Palm, s.PalmRatio, s.Samples, s.Reduction, s.CreatedAt,
	).Scan(&s.Session)
	if err != nil {
		return fmt.Errorf("inserting grip session: %w", err)
	}
	return nil
}

func (r *gripRepo) List(ctx context.Context, subjectID string, limit int) ([]*store.GripSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, subject_id::text, session, fsr_palm, r_fsr_palm, samples, reduction, created_at
		 FROM grip_sessions WHERE subject_id = $1 ORDER BY session DESC LIMIT $2`,
		subjectID, limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying grip sessions: %w", err)
	}
	defer rows.Close()

	var out []*store.GripSession
	for rows.Next() {
		s := &store.GripSession{}
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.Session, &s.Palm, &s.PalmRatio, &s.Samples, &s.Reduction, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning grip session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type pinchRepo struct {
	pool *pgxpool.Pool
}

func (r *pinchRepo) Insert(ctx context.Context, s *store.PinchSession) error {
	stamp(&s.ID, &s.CreatedAt)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO pinch_sessions
			(id, subject_id, session, index_thumb, middle_thumb, r_index_thumb, r_middle_thumb, samples, reduction, created_at)
		 SELECT $1::uuid, $2::uuid, COALESCE(MAX(session), 0) + 1, $3::float8, $4::float8, $5::float8, $6::float8, $7::int, $8::text, $9::timestamptz
		 FROM pinch_sessions WHERE subject_id = $2::uuid
		 RETURNING session`,
		s.ID, s.SubjectID, s.IndexThumb, s.MiddleThumb, s.IndexRatio, s.MiddleRatio, s.Samples, s.Reduction, s.CreatedAt,
	).Scan(&s.Session)
	if err != nil {
		return fmt.Errorf("inserting pinch session: %w", err)
	}
	return nil
}

func (r *pinchRepo) List(ctx context.Context, subjectID string, limit int) ([]*store.PinchSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, subject_id::text, session, index_thumb, middle_thumb, r_index_thumb, r_middle_thumb, samples, reduction, created_at
		 FROM pinch_sessions WHERE subject_id = $1 ORDER BY session DESC LIMIT $2`,
		subjectID, limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying pinch sessions: %w", err)
	}
	defer rows.Close()

	var out []*store.PinchSession
	for rows.Next() {
		s := &store.PinchSession{}
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.Session, &s.IndexThumb, &s.MiddleThumb, &s.IndexRatio, &s.MiddleRatio, &s.Samples, &s.Reduction, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pinch session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type baselineRepo struct {
	pool *pgxpool.Pool
}

func (r *baselineRepo) Get(ctx context.Context, subjectID string) (*store.Baseline, error) {
	b := &store.Baseline{}
	err := r.pool.QueryRow(ctx,
		`SELECT subject_id::text, base_grip, base_index_thumb, base_middle_thumb, updated_at
		 FROM baselines WHERE subject_id = $1`,
		subjectID,
	).Scan(&b.SubjectID, &b.Grip, &b.IndexThumb, &b.MiddleThumb, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying baseline: %w", err)
	}
	return b, nil
}

func (r *baselineRepo) Upsert(ctx context.Context, b *store.Baseline) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO baselines (subject_id, base_grip, base_index_thumb, base_middle_thumb, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (subject_id) DO UPDATE SET
			base_grip = EXCLUDED.base_grip,
			base_index_thumb = EXCLUDED.base_index_thumb,
			base_middle_thumb = EXCLUDED.base_middle_thumb,
			updated_at = EXCLUDED.updated_at`,
		b.SubjectID, b.Grip, b.IndexThumb, b.MiddleThumb, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting baseline: %w", err)
	}
	return nil
}
