package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// FlexionSession is one persisted wrist-flexion session.
type FlexionSession struct {
	ID             string    `json:"id"`
	SubjectID      string    `json:"subject_id"`
	Session        int       `json:"session"`
	TargetForward  int       `json:"degree_forward"`
	TargetBackward int       `json:"degree_backward"`
	Repetitions    int       `json:"repetitions"`
	LeveledUp      bool      `json:"level_up"`
	CreatedAt      time.Time `json:"created_at"`
}

// GripSession is one persisted grip-strength window.
type GripSession struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Session   int       `json:"session"`
	Palm      float64   `json:"fsr_palm"`
	PalmRatio *float64  `json:"r_fsr_palm"`
	Samples   int       `json:"samples"`
	Reduction string    `json:"reduction"`
	CreatedAt time.Time `json:"created_at"`
}

// PinchSession is one persisted pinch-strength window. A channel that
// produced no samples is nil.
type PinchSession struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id"`
	Session     int       `json:"session"`
	IndexThumb  *float64  `json:"index_thumb"`
	MiddleThumb *float64  `json:"middle_thumb"`
	IndexRatio  *float64  `json:"r_index_thumb"`
	MiddleRatio *float64  `json:"r_middle_thumb"`
	Samples     int       `json:"samples"`
	Reduction   string    `json:"reduction"`
	CreatedAt   time.Time `json:"created_at"`
}

// Baseline holds a subject's reference strength values.
type Baseline struct {
	SubjectID   string    `json:"subject_id"`
	Grip        *float64  `json:"base_grip"`
	IndexThumb  *float64  `json:"base_index_thumb"`
	MiddleThumb *float64  `json:"base_middle_thumb"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FlexionRepository persists flexion sessions.
type FlexionRepository interface {
	// Insert assigns ID and the next per-subject session number.
	Insert(ctx context.Context, s *FlexionSession) error
	// Latest returns ErrNotFound when the subject has no sessions.
	Latest(ctx context.Context, subjectID string) (*FlexionSession, error)
	// List returns the newest sessions first, at most limit.
	List(ctx context.Context, subjectID string, limit int) ([]*FlexionSession, error)
}

// GripRepository persists grip sessions.
type GripRepository interface {
	Insert(ctx context.Context, s *GripSession) error
	List(ctx context.Context, subjectID string, limit int) ([]*GripSession, error)
}

// PinchRepository persists pinch sessions.
type PinchRepository interface {
	Insert(ctx context.Context, s *PinchSession) error
	List(ctx context.Context, subjectID string, limit int) ([]*PinchSession, error)
}

// BaselineRepository reads and writes subject baselines.
type BaselineRepository interface {
	// Get returns ErrNotFound when the subject has no baseline.
	Get(ctx context.Context, subjectID string) (*Baseline, error)
	Upsert(ctx context.Context, b *Baseline) error
}

// Backend is a session database.
type Backend interface {
	Flexion() FlexionRepository
	Grip() GripRepository
	Pinch() PinchRepository
	Baselines() BaselineRepository
	Ping(ctx context.Context) error
	Close() error
}
