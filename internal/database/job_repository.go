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

// jobColumns must match the Scan order in scanJob.
const jobColumns = `id, title, description, customer_name, vehicle_info, status,
	estimated_hours, actual_hours, created_by, photo_url, completed_at, created_at, updated_at`

// JobRepo implements domain.JobRepository backed by PostgreSQL.
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(
		&job.ID, &job.Title, &job.Description, &job.CustomerName, &job.VehicleInfo,
		&job.Status, &job.EstimatedHours, &job.ActualHours, &job.CreatedBy,
		&job.PhotoURL, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Create inserts the job and its initial assignments in one transaction.
func (r *JobRepo) Create(ctx context.Context, job *domain.Job, assigneeIDs []uuid.UUID) (*domain.Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	created, err := scanJob(tx.QueryRow(ctx, `
		INSERT INTO jobs (title, description, customer_name, vehicle_info, status,
			estimated_hours, actual_hours, created_by, photo_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $9)
		RETURNING `+jobColumns,
		job.Title, job.Description, job.CustomerName, job.VehicleInfo, job.Status,
		job.EstimatedHours, job.CreatedBy, job.PhotoURL, job.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}

	for _, userID := range assigneeIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO job_assignments (job_id, user_id, assigned_by, assigned_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (job_id, user_id) DO NOTHING
		`, created.ID, userID, job.CreatedBy, job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (r *JobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any

	if filter.Assignee != uuid.Nil {
		query = `SELECT ` + jobColumns + ` FROM jobs
			WHERE id IN (SELECT job_id FROM job_assignments WHERE user_id = $1)`
		args = append(args, filter.Assignee)
	}
	if filter.Status != "" {
		if len(args) == 0 {
			query += ` WHERE status = $1`
		} else {
			query += ` AND status = $2`
		}
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID, &job.Title, &job.Description, &job.CustomerName, &job.VehicleInfo,
			&job.Status, &job.EstimatedHours, &job.ActualHours, &job.CreatedBy,
			&job.PhotoURL, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateWithAssignments overwrites the mutable fields of a job and replaces
// its assignee set in one transaction. Rows for employees that stay assigned
// keep their assigned_at.
func (r *JobRepo) UpdateWithAssignments(ctx context.Context, job *domain.Job, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, now time.Time) (*domain.Job, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx, `
		UPDATE jobs
		SET title = $1, description = $2, customer_name = $3, vehicle_info = $4,
			estimated_hours = $5, photo_url = $6, updated_at = $7
		WHERE id = $8
	`, job.Title, job.Description, job.CustomerName, job.VehicleInfo,
		job.EstimatedHours, job.PhotoURL, now, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrJobNotFound
	}

	rows, err := tx.Query(ctx,
		`SELECT user_id FROM job_assignments WHERE job_id = $1`, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	current := make(map[uuid.UUID]bool)
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		current[userID] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	desired := make(map[uuid.UUID]bool, len(assigneeIDs))
	for _, userID := range assigneeIDs {
		desired[userID] = true
		if current[userID] {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO job_assignments (job_id, user_id, assigned_by, assigned_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (job_id, user_id) DO NOTHING
		`, job.ID, userID, assignedBy, now); err != nil {
			return nil, fmt.Errorf("failed to add assignment: %w", err)
		}
	}
	for userID := range current {
		if desired[userID] {
			continue
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM job_assignments WHERE job_id = $1 AND user_id = $2
		`, job.ID, userID); err != nil {
			return nil, fmt.Errorf("failed to remove assignment: %w", err)
		}
	}

	updated, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, job.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// SetStatus changes the job status and stamps completed_at when entering
// completed (clearing it otherwise).
func (r *JobRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1,
			completed_at = CASE WHEN $1 = 'completed' THEN $2 ELSE NULL END,
			updated_at = $2
		WHERE id = $3
	`, status, now, id)
	if err != nil {
		return fmt.Errorf("failed to set job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Delete removes a job; assignments and time logs cascade.
func (r *JobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepo) ListAssignments(ctx context.Context, jobID uuid.UUID) ([]domain.JobAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT job_id, user_id, assigned_by, assigned_at
		FROM job_assignments
		WHERE job_id = $1
		ORDER BY assigned_at
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []domain.JobAssignment
	for rows.Next() {
		var a domain.JobAssignment
		if err := rows.Scan(&a.JobID, &a.UserID, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
