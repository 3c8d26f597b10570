package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type gripRepo struct {
	db *sql.DB
}

// Insert stores s, filling in ID, Session and (if zero) CreatedAt.
func (r *gripRepo) Insert(ctx context.Context, s *GripSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx,
		`INSERT INTO grip_sessions
			(id, subject_id, session, fsr_palm, r_fsr_palm, samples, reduction, created_at)
		 SELECT ?, ?, COALESCE(MAX(session), 0) + 1, ?, ?, ?, ?, ?
		 FROM grip_sessions WHERE subject_id = ?
		 RETURNING session`,
		s.ID, s.SubjectID, s.Palm, s.PalmRatio, s.Samples, s.Reduction, s.CreatedAt,
		s.SubjectID,
	).Scan(&s.Session)
}

func (r *gripRepo) List(ctx context.Context, subjectID string, limit int) ([]*GripSession, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, session, fsr_palm, r_fsr_palm, samples, reduction, created_at
		 FROM grip_sessions WHERE subject_id = ?
		 ORDER BY session DESC LIMIT ?`,
		subjectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*GripSession
	for rows.Next() {
		s := &GripSession{}
		var ratio sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.Session, &s.Palm, &ratio, &s.Samples, &s.Reduction, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.PalmRatio = floatPtr(ratio)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

type pinchRepo struct {
	db *sql.DB
}

// Insert stores s, filling in ID, Session and (if zero) CreatedAt.
func (r *pinchRepo) Insert(ctx context.Context, s *PinchSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx,
		`INSERT INTO pinch_sessions
			(id, subject_id, session, index_thumb, middle_thumb, r_index_thumb, r_middle_thumb, samples, reduction, created_at)
		 SELECT ?, ?, COALESCE(MAX(session), 0) + 1, ?, ?, ?, ?, ?, ?, ?
		 FROM pinch_sessions WHERE subject_id = ?
		 RETURNING session`,
		s.ID, s.SubjectID, s.IndexThumb, s.MiddleThumb, s.IndexRatio, s.MiddleRatio, s.Samples, s.Reduction, s.CreatedAt,
		s.SubjectID,
	).Scan(&s.Session)
}

func (r *pinchRepo) List(ctx context.Context, subjectID string, limit int) ([]*PinchSession, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, session, index_thumb, middle_thumb, r_index_thumb, r_middle_thumb, samples, reduction, created_at
		 FROM pinch_sessions WHERE subject_id = ?
		 ORDER BY session DESC LIMIT ?`,
		subjectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*PinchSession
	for rows.Next() {
		s := &PinchSession{}
		var index, middle, rIndex, rMiddle sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.Session, &index, &middle, &rIndex, &rMiddle, &s.Samples, &s.Reduction, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.IndexThumb = floatPtr(index)
		s.MiddleThumb = floatPtr(middle)
		s.IndexRatio = floatPtr(rIndex)
		s.MiddleRatio = floatPtr(rMiddle)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
