package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// JobRepo implements domain.JobRepository backed by SQLite.
type JobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Create(ctx context.Context, job *domain.Job, assigneeIDs []uuid.UUID) (*domain.Job, error) {
	model := jobModel{
		ID:             uuid.New(),
		Title:          job.Title,
		Description:    job.Description,
		CustomerName:   job.CustomerName,
		VehicleInfo:    job.VehicleInfo,
		Status:         string(job.Status),
		EstimatedHours: job.EstimatedHours,
		CreatedBy:      job.CreatedBy,
		PhotoURL:       job.PhotoURL,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.CreatedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
		for _, userID := range assigneeIDs {
			assignment := jobAssignmentModel{
				JobID:      model.ID,
				UserID:     userID,
				AssignedBy: job.CreatedBy,
				AssignedAt: job.CreatedAt,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment).Error; err != nil {
				return fmt.Errorf("failed to insert assignment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model.toDomain(), nil
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var model jobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return model.toDomain(), nil
}

func (r *JobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := r.db.WithContext(ctx).Model(&jobModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Assignee != uuid.Nil {
		query = query.Where("id IN (?)",
			r.db.Model(&jobAssignmentModel{}).Select("job_id").Where("user_id = ?", filter.Assignee))
	}

	var models []jobModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs := make([]domain.Job, len(models))
	for i := range models {
		jobs[i] = *models[i].toDomain()
	}
	return jobs, nil
}

// UpdateWithAssignments overwrites the mutable fields of a job and replaces
// its assignee set in one transaction. Rows for employees that stay assigned
// keep their assigned_at.
func (r *JobRepo) UpdateWithAssignments(ctx context.Context, job *domain.Job, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, now time.Time) (*domain.Job, error) {
	var updated jobModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&jobModel{}).Where("id = ?", job.ID).Updates(map[string]any{
			"title":           job.Title,
			"description":     job.Description,
			"customer_name":   job.CustomerName,
			"vehicle_info":    job.VehicleInfo,
			"estimated_hours": job.EstimatedHours,
			"photo_url":       job.PhotoURL,
			"updated_at":      now,
		})
		if result.Error != nil {
			return fmt.Errorf("failed to update job: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrJobNotFound
		}

		var currentIDs []uuid.UUID
		if err := tx.Model(&jobAssignmentModel{}).
			Where("job_id = ?", job.ID).
			Pluck("user_id", &currentIDs).Error; err != nil {
			return fmt.Errorf("failed to list assignments: %w", err)
		}
		current := make(map[uuid.UUID]bool, len(currentIDs))
		for _, userID := range currentIDs {
			current[userID] = true
		}

		desired := make(map[uuid.UUID]bool, len(assigneeIDs))
		for _, userID := range assigneeIDs {
			desired[userID] = true
			if current[userID] {
				continue
			}
			assignment := jobAssignmentModel{
				JobID:      job.ID,
				UserID:     userID,
				AssignedBy: assignedBy,
				AssignedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment).Error; err != nil {
				return fmt.Errorf("failed to add assignment: %w", err)
			}
		}
		for userID := range current {
			if desired[userID] {
				continue
			}
			if err := tx.Where("job_id = ? AND user_id = ?", job.ID, userID).
				Delete(&jobAssignmentModel{}).Error; err != nil {
				return fmt.Errorf("failed to remove assignment: %w", err)
			}
		}

		if err := tx.First(&updated, "id = ?", job.ID).Error; err != nil {
			return fmt.Errorf("failed to reload job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.toDomain(), nil
}

func (r *JobRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, now time.Time) error {
	var completedAt *time.Time
	if status == domain.StatusCompleted {
		completedAt = &now
	}
	result := r.db.WithContext(ctx).Model(&jobModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":       string(status),
		"completed_at": completedAt,
		"updated_at":   now,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Delete removes a job along with its assignments and time logs.
func (r *JobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&timeLogModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete time logs: %w", err)
		}
		if err := tx.Where("job_id = ?", id).Delete(&jobAssignmentModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		result := tx.Delete(&jobModel{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete job: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrJobNotFound
		}
		return nil
	})
}

func (r *JobRepo) ListAssignments(ctx context.Context, jobID uuid.UUID) ([]domain.JobAssignment, error) {
	var models []jobAssignmentModel
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("assigned_at").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	assignments := make([]domain.JobAssignment, len(models))
	for i := range models {
		assignments[i] = models[i].toDomain()
	}
	return assignments, nil
}
