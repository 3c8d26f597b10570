package store

import (
	"context"
	"errors"

	"github.com/ayusman/ptrack/internal/tracker"
)

// FlexionSink adapts a FlexionRepository to the tracker's persistence sink.
type FlexionSink struct {
	Repo FlexionRepository
}

// Insert stores rec as a new flexion session.
func (s FlexionSink) Insert(ctx context.Context, rec tracker.SessionRecord) error {
	return s.Repo.Insert(ctx, &FlexionSession{
		SubjectID:      rec.SubjectID,
		TargetForward:  rec.TargetForward,
		TargetBackward: rec.TargetBackward,
		Repetitions:    rec.Repetitions,
		LeveledUp:      rec.LeveledUp,
		CreatedAt:      rec.Timestamp,
	})
}

// Latest returns the subject's last session, or nil if there is none.
func (s FlexionSink) Latest(ctx context.Context, subjectID string) (*tracker.SessionRecord, error) {
	fs, err := s.Repo.Latest(ctx, subjectID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tracker.SessionRecord{
		SubjectID:      fs.SubjectID,
		TargetForward:  fs.TargetForward,
		TargetBackward: fs.TargetBackward,
		Repetitions:    fs.Repetitions,
		LeveledUp:      fs.LeveledUp,
		Timestamp:      fs.CreatedAt,
	}, nil
}

var _ tracker.Sink = FlexionSink{}
