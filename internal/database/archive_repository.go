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

// ArchiveRepo implements domain.ArchiveRepository backed by PostgreSQL.
type ArchiveRepo struct {
	pool *pgxpool.Pool
}

func NewArchiveRepo(pool *pgxpool.Pool) *ArchiveRepo {
	return &ArchiveRepo{pool: pool}
}

// Archive snapshots a completed job and deletes the live rows in one
// transaction. The preconditions (completed status, no active timer) are
// checked under a row lock inside that transaction, so a concurrent reopen
// or timer start cannot slip between check and delete.
func (r *ArchiveRepo) Archive(ctx context.Context, jobID, archivedBy uuid.UUID, now time.Time) (*domain.ArchivedJob, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	job, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock job: %w", err)
	}

	if job.Status != domain.StatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}

	var activeTimers int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM time_logs WHERE job_id = $1 AND end_time IS NULL
	`, jobID).Scan(&activeTimers)
	if err != nil {
		return nil, fmt.Errorf("failed to count active timers: %w", err)
	}
	if activeTimers > 0 {
		return nil, domain.ErrJobHasActiveTimer
	}

	var totalMinutes int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0) FROM time_logs WHERE job_id = $1
	`, jobID).Scan(&totalMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to sum time logs: %w", err)
	}

	completedAt := job.UpdatedAt
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}

	archived := domain.ArchivedJob{
		OriginalJobID:    job.ID,
		Title:            job.Title,
		Description:      job.Description,
		CustomerName:     job.CustomerName,
		VehicleInfo:      job.VehicleInfo,
		EstimatedHours:   job.EstimatedHours,
		CreatedBy:        job.CreatedBy,
		PhotoURL:         job.PhotoURL,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      completedAt,
		ArchivedAt:       now,
		ArchivedBy:       archivedBy,
		TotalTimeMinutes: totalMinutes,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO archived_jobs (original_job_id, title, description, customer_name,
			vehicle_info, estimated_hours, created_by, photo_url, created_at,
			completed_at, archived_at, archived_by, total_time_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, archived.OriginalJobID, archived.Title, archived.Description, archived.CustomerName,
		archived.VehicleInfo, archived.EstimatedHours, archived.CreatedBy, archived.PhotoURL,
		archived.CreatedAt, archived.CompletedAt, archived.ArchivedAt, archived.ArchivedBy,
		archived.TotalTimeMinutes).Scan(&archived.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert archived job: %w", err)
	}

	// Per-employee breakdown, captured before the live time logs go away.
	if _, err := tx.Exec(ctx, `
		INSERT INTO archived_time_entries (archived_job_id, user_id, minutes)
		SELECT $1, user_id, COALESCE(SUM(duration_minutes), 0)
		FROM time_logs
		WHERE job_id = $2
		GROUP BY user_id
	`, archived.ID, jobID); err != nil {
		return nil, fmt.Errorf("failed to insert archived time entries: %w", err)
	}

	// Assignments and time logs cascade with the job row.
	if _, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID); err != nil {
		return nil, fmt.Errorf("failed to delete live job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &archived, nil
}

func (r *ArchiveRepo) List(ctx context.Context) ([]domain.ArchivedJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, original_job_id, title, description, customer_name, vehicle_info,
			estimated_hours, created_by, photo_url, created_at, completed_at,
			archived_at, archived_by, total_time_minutes
		FROM archived_jobs
		ORDER BY archived_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ArchivedJob
	for rows.Next() {
		var a domain.ArchivedJob
		if err := rows.Scan(
			&a.ID, &a.OriginalJobID, &a.Title, &a.Description, &a.CustomerName,
			&a.VehicleInfo, &a.EstimatedHours, &a.CreatedBy, &a.PhotoURL,
			&a.CreatedAt, &a.CompletedAt, &a.ArchivedAt, &a.ArchivedBy, &a.TotalTimeMinutes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archived job: %w", err)
		}
		jobs = append(jobs, a)
	}
	return jobs, rows.Err()
}

func (r *ArchiveRepo) Stats(ctx context.Context) (*domain.ArchiveStats, error) {
	var stats domain.ArchiveStats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_time_minutes), 0),
			COALESCE(AVG(total_time_minutes), 0)
		FROM archived_jobs
	`).Scan(&stats.JobCount, &stats.TotalMinutes, &stats.AverageMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute archive stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT user_id, COALESCE(SUM(minutes), 0)
		FROM archived_time_entries
		GROUP BY user_id
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute per-employee totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.EmployeeTime
		if err := rows.Scan(&entry.UserID, &entry.Minutes); err != nil {
			return nil, fmt.Errorf("failed to scan per-employee total: %w", err)
		}
		stats.MinutesByEmployee = append(stats.MinutesByEmployee, entry)
	}
	return &stats, rows.Err()
}
