package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per persistence point of the flexion tracker
		`CREATE TABLE IF NOT EXISTS flexion_sessions (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			session INTEGER NOT NULL,
			degree_forward INTEGER NOT NULL,
			degree_backward INTEGER NOT NULL,
			repetitions INTEGER NOT NULL DEFAULT 0,
			level_up INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			UNIQUE(subject_id, session)
		)`,

		`CREATE TABLE IF NOT EXISTS grip_sessions (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			session INTEGER NOT NULL,
			fsr_palm REAL NOT NULL,
			r_fsr_palm REAL,
			samples INTEGER NOT NULL DEFAULT 0,
			reduction TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(subject_id, session)
		)`,

		`CREATE TABLE IF NOT EXISTS pinch_sessions (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			session INTEGER NOT NULL,
			index_thumb REAL,
			middle_thumb REAL,
			r_index_thumb REAL,
			r_middle_thumb REAL,
			samples INTEGER NOT NULL DEFAULT 0,
			reduction TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(subject_id, session)
		)`,

		// Reference strength values, one row per subject
		`CREATE TABLE IF NOT EXISTS baselines (
			subject_id TEXT PRIMARY KEY,
			base_grip REAL,
			base_index_thumb REAL,
			base_middle_thumb REAL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_flexion_sessions_subject ON flexion_sessions(subject_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_grip_sessions_subject ON grip_sessions(subject_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pinch_sessions_subject ON pinch_sessions(subject_id, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
