package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// TimeLogRepo implements domain.TimeLogRepository backed by PostgreSQL.
// Start and Stop run their precondition check and all coupled writes in one
// transaction; the partial unique index on (job_id, user_id) where end_time
// is null backs the exclusivity invariant across processes.
type TimeLogRepo struct {
	pool *pgxpool.Pool
}

func NewTimeLogRepo(pool *pgxpool.Pool) *TimeLogRepo {
	return &TimeLogRepo{pool: pool}
}

// Start creates an active time log and promotes the job from todo to
// in_progress in the same transaction. Completed jobs keep their status.
func (r *TimeLogRepo) Start(ctx context.Context, jobID, userID uuid.UUID, now time.Time) (*domain.TimerStart, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var status domain.JobStatus
	err = tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock job: %w", err)
	}

	var log domain.TimeLog
	err = tx.QueryRow(ctx, `
		INSERT INTO time_logs (job_id, user_id, start_time)
		VALUES ($1, $2, $3)
		RETURNING id, job_id, user_id, start_time, end_time, duration_minutes
	`, jobID, userID, now).Scan(
		&log.ID, &log.JobID, &log.UserID, &log.StartTime, &log.EndTime, &log.DurationMinutes,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrTimerAlreadyActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert time log: %w", err)
	}

	promoted := false
	if status == domain.StatusTodo {
		if _, err := tx.Exec(ctx, `
			UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3
		`, domain.StatusInProgress, now, jobID); err != nil {
			return nil, fmt.Errorf("failed to promote job status: %w", err)
		}
		promoted = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &domain.TimerStart{Log: log, Promoted: promoted}, nil
}

// Stop closes the active log for the pair and recomputes the job's actual
// hours from scratch in the same transaction. Recomputing instead of
// incrementing keeps the derived field drift-free.
func (r *TimeLogRepo) Stop(ctx context.Context, jobID, userID uuid.UUID, now time.Time) (*domain.TimerStop, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var log domain.TimeLog
	err = tx.QueryRow(ctx, `
		SELECT id, job_id, user_id, start_time
		FROM time_logs
		WHERE job_id = $1 AND user_id = $2 AND end_time IS NULL
		FOR UPDATE
	`, jobID, userID).Scan(&log.ID, &log.JobID, &log.UserID, &log.StartTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoActiveTimer
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock active time log: %w", err)
	}

	minutes := int(now.Sub(log.StartTime) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	if _, err := tx.Exec(ctx, `
		UPDATE time_logs SET end_time = $1, duration_minutes = $2 WHERE id = $3
	`, now, minutes, log.ID); err != nil {
		return nil, fmt.Errorf("failed to close time log: %w", err)
	}
	log.EndTime = &now
	log.DurationMinutes = minutes

	var actualHours float64
	err = tx.QueryRow(ctx, `
		UPDATE jobs
		SET actual_hours = (
			SELECT COALESCE(SUM(duration_minutes), 0) / 60.0
			FROM time_logs WHERE job_id = $1
		), updated_at = $2
		WHERE id = $1
		RETURNING actual_hours
	`, jobID, now).Scan(&actualHours)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute actual hours: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &domain.TimerStop{Log: log, ActualHours: actualHours}, nil
}

func (r *TimeLogRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]domain.TimeLog, error) {
	return r.queryLogs(ctx, `
		SELECT id, job_id, user_id, start_time, end_time, duration_minutes
		FROM time_logs
		WHERE user_id = $1 AND end_time IS NULL
		ORDER BY start_time
	`, userID)
}

func (r *TimeLogRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.TimeLog, error) {
	return r.queryLogs(ctx, `
		SELECT id, job_id, user_id, start_time, end_time, duration_minutes
		FROM time_logs
		WHERE job_id = $1
		ORDER BY start_time
	`, jobID)
}

func (r *TimeLogRepo) queryLogs(ctx context.Context, query string, args ...any) ([]domain.TimeLog, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.TimeLog
	for rows.Next() {
		var log domain.TimeLog
		if err := rows.Scan(
			&log.ID, &log.JobID, &log.UserID, &log.StartTime, &log.EndTime, &log.DurationMinutes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan time log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
