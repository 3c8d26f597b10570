package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/ayusman/ptrack/internal/store"
)

// newTestDB connects to PTRACK_TEST_PG_DSN, migrates it, and returns a DB.
// Tests skip when the variable is unset.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("PTRACK_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PTRACK_TEST_PG_DSN not set")
	}
	if err := RunMigrations(dsn); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	db, err := New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(v float64) *float64 { return &v }

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) == 0 || len(entries)%2 != 0 {
		t.Errorf("expected paired up/down migrations, got %d files", len(entries))
	}
}

func TestFlexionRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	subject := uuid.New().String()
	repo := db.Flexion()

	if _, err := repo.Latest(ctx, subject); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Latest() error = %v, want ErrNotFound", err)
	}

	for want := 1; want <= 3; want++ {
		s := &store.FlexionSession{SubjectID: subject, TargetForward: 30, TargetBackward: 15, Repetitions: want, LeveledUp: want == 3}
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if s.Session != want {
			t.Errorf("session = %d, want %d", s.Session, want)
		}
	}

	latest, err := repo.Latest(ctx, subject)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.Session != 3 || !latest.LeveledUp {
		t.Errorf("Latest() = %+v", latest)
	}

	list, err := repo.List(ctx, subject, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Session != 3 {
		t.Errorf("List() returned %d sessions", len(list))
	}
}

func TestStrengthRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	subject := uuid.New().String()

	g := &store.GripSession{SubjectID: subject, Palm: 480, Samples: 100, Reduction: "max"}
	if err := db.Grip().Insert(ctx, g); err != nil {
		t.Fatalf("grip Insert() error = %v", err)
	}
	grips, err := db.Grip().List(ctx, subject, 0)
	if err != nil || len(grips) != 1 {
		t.Fatalf("grip List() = %d, %v", len(grips), err)
	}
	if grips[0].PalmRatio != nil {
		t.Error("grip ratio should be NULL")
	}

	p := &store.PinchSession{SubjectID: subject, IndexThumb: ptr(3.2), IndexRatio: ptr(0.8), Samples: 50, Reduction: "max"}
	if err := db.Pinch().Insert(ctx, p); err != nil {
		t.Fatalf("pinch Insert() error = %v", err)
	}
	pinches, err := db.Pinch().List(ctx, subject, 0)
	if err != nil || len(pinches) != 1 {
		t.Fatalf("pinch List() = %d, %v", len(pinches), err)
	}
	if pinches[0].IndexThumb == nil || *pinches[0].IndexThumb != 3.2 || pinches[0].MiddleThumb != nil {
		t.Errorf("pinch = %+v", pinches[0])
	}
}

func TestBaselineRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	subject := uuid.New().String()

	if _, err := db.Baselines().Get(ctx, subject); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	if err := db.Baselines().Upsert(ctx, &store.Baseline{SubjectID: subject, Grip: ptr(400)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := db.Baselines().Upsert(ctx, &store.Baseline{SubjectID: subject, Grip: ptr(410), MiddleThumb: ptr(2)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	b, err := db.Baselines().Get(ctx, subject)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *b.Grip != 410 || b.IndexThumb != nil || *b.MiddleThumb != 2 {
		t.Errorf("Get() = %+v", b)
	}
}
