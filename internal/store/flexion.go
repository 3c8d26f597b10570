package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List results when the caller passes limit <= 0.
const DefaultListLimit = 100

type flexionRepo struct {
	db *sql.DB
}

// Insert stores s, filling in ID, Session and (if zero) CreatedAt.
func (r *flexionRepo) Insert(ctx context.Context, s *FlexionSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx,
		`INSERT INTO flexion_sessions
			(id, subject_id, session, degree_forward, degree_backward, repetitions, level_up, created_at)
		 SELECT ?, ?, COALESCE(MAX(session), 0) + 1, ?, ?, ?, ?, ?
		 FROM flexion_sessions WHERE subject_id = ?
		 RETURNING session`,
		s.ID, s.SubjectID, s.TargetForward, s.TargetBackward, s.Repetitions, s.LeveledUp, s.CreatedAt,
		s.SubjectID,
	).Scan(&s.Session)
}

// Latest returns the subject's highest-numbered session.
func (r *flexionRepo) Latest(ctx context.Context, subjectID string) (*FlexionSession, error) {
	s := &FlexionSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject_id, session, degree_forward, degree_backward, repetitions, level_up, created_at
		 FROM flexion_sessions WHERE subject_id = ?
		 ORDER BY session DESC LIMIT 1`,
		subjectID,
	).Scan(&s.ID, &s.SubjectID, &s.Session, &s.TargetForward, &s.TargetBackward, &s.Repetitions, &s.LeveledUp, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns the subject's sessions, newest first.
func (r *flexionRepo) List(ctx context.Context, subjectID string, limit int) ([]*FlexionSession, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, session, degree_forward, degree_backward, repetitions, level_up, created_at
		 FROM flexion_sessions WHERE subject_id = ?
		 ORDER BY session DESC LIMIT ?`,
		subjectID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*FlexionSession
	for rows.Next() {
		s := &FlexionSession{}
		if err := rows.Scan(&s.ID, &s.SubjectID, &s.Session, &s.TargetForward, &s.TargetBackward, &s.Repetitions, &s.LeveledUp, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
