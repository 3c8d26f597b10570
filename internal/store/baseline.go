package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type baselineRepo struct {
	db *sql.DB
}

func (r *baselineRepo) Get(ctx context.Context, subjectID string) (*Baseline, error) {
	b := &Baseline{}
	var grip, index, middle sql.NullFloat64

	err := r.db.QueryRowContext(ctx,
		`SELECT subject_id, base_grip, base_index_thumb, base_middle_thumb, updated_at
		 FROM baselines WHERE subject_id = ?`,
		subjectID,
	).Scan(&b.SubjectID, &grip, &index, &middle, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	b.Grip = floatPtr(grip)
	b.IndexThumb = floatPtr(index)
	b.MiddleThumb = floatPtr(middle)
	return b, nil
}

// Upsert replaces the subject's baseline. Nil fields are stored as NULL.
func (r *baselineRepo) Upsert(ctx context.Context, b *Baseline) error {
	b.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO baselines (subject_id, base_grip, base_index_thumb, base_middle_thumb, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(subject_id) DO UPDATE SET
			base_grip = excluded.base_grip,
			base_index_thumb = excluded.base_index_thumb,
			base_middle_thumb = excluded.base_middle_thumb,
			updated_at = excluded.updated_at`,
		b.SubjectID, b.Grip, b.IndexThumb, b.MiddleThumb, b.UpdatedAt,
	)
	return err
}
