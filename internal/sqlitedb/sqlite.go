// Package sqlitedb is the SQLite persistence gateway, for single-process
// deployments without a PostgreSQL server. It implements the same domain
// port interfaces as the database package; SQLite's single-writer model
// plus the partial unique index on active time logs back the timer
// exclusivity invariant.
package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := db.AutoMigrate(
		&userModel{}, &jobModel{}, &jobAssignmentModel{},
		&timeLogModel{}, &archivedJobModel{}, &archivedTimeEntryModel{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Partial unique index: at most one active time log per (job, user).
	// AutoMigrate cannot express the WHERE clause.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_timer
		ON time_logs(job_id, user_id) WHERE end_time IS NULL
	`).Error; err != nil {
		return nil, fmt.Errorf("failed to create active-timer index: %w", err)
	}

	return db, nil
}

// Ping verifies the underlying connection, for readiness checks.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
