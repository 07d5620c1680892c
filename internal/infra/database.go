package infra

import (
	"fmt"

	"confcheckin/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate for
// the attendee table, then applies the idempotent SQL patches that GORM cannot
// express (functional unique index, CHECK constraint, partial index).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // unique violations surface as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// applySchemaPatches runs idempotent DDL statements. Each statement is guarded
// by an existence check so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"unique lower(email)", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_attendees_email_lower') THEN
    CREATE UNIQUE INDEX uni_attendees_email_lower ON attendees (LOWER(email));
  END IF;
END $$`},
		// checked_in_at is set exactly when checked_in is true
		{"check checked_in_at", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_attendees_checked_in_at') THEN
    ALTER TABLE attendees ADD CONSTRAINT chk_attendees_checked_in_at
      CHECK ((checked_in AND checked_in_at IS NOT NULL) OR (NOT checked_in AND checked_in_at IS NULL));
  END IF;
END $$`},
		{"check role", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_attendees_role') THEN
    ALTER TABLE attendees ADD CONSTRAINT chk_attendees_role CHECK (role IN ('attendee', 'staff'));
  END IF;
END $$`},
		// recent feed query
		{"partial index recent check-ins", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_attendees_recent_checkins') THEN
    CREATE INDEX idx_attendees_recent_checkins
        ON attendees (checked_in_at DESC, created_at, id)
        WHERE checked_in;
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}

// RunMigrations creates the attendee table and applies schema patches.
// Also used by integration tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Attendee{}); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}
