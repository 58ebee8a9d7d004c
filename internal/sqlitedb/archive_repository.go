package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// ArchiveRepo implements domain.ArchiveRepository backed by SQLite.
type ArchiveRepo struct {
	db *gorm.DB
}

func NewArchiveRepo(db *gorm.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

func (r *ArchiveRepo) Archive(ctx context.Context, jobID, archivedBy uuid.UUID, now time.Time) (*domain.ArchivedJob, error) {
	var archived domain.ArchivedJob

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job jobModel
		err := tx.First(&job, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}

		if job.Status != string(domain.StatusCompleted) {
			return domain.ErrJobNotCompleted
		}

		var activeTimers int64
		if err := tx.Model(&timeLogModel{}).
			Where("job_id = ? AND end_time IS NULL", jobID).
			Count(&activeTimers).Error; err != nil {
			return fmt.Errorf("failed to count active timers: %w", err)
		}
		if activeTimers > 0 {
			return domain.ErrJobHasActiveTimer
		}

		var totalMinutes int64
		if err := tx.Model(&timeLogModel{}).
			Where("job_id = ?", jobID).
			Select("COALESCE(SUM(duration_minutes), 0)").
			Scan(&totalMinutes).Error; err != nil {
			return fmt.Errorf("failed to sum time logs: %w", err)
		}

		completedAt := job.UpdatedAt
		if job.CompletedAt != nil {
			completedAt = *job.CompletedAt
		}

		model := archivedJobModel{
			ID:               uuid.New(),
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
			TotalTimeMinutes: int(totalMinutes),
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert archived job: %w", err)
		}

		// Per-employee breakdown, captured before the live time logs go away.
		var perUser []struct {
			UserID  uuid.UUID
			Minutes int
		}
		if err := tx.Model(&timeLogModel{}).
			Where("job_id = ?", jobID).
			Select("user_id, COALESCE(SUM(duration_minutes), 0) AS minutes").
			Group("user_id").
			Scan(&perUser).Error; err != nil {
			return fmt.Errorf("failed to compute per-employee totals: %w", err)
		}
		for _, entry := range perUser {
			if err := tx.Create(&archivedTimeEntryModel{
				ArchivedJobID: model.ID,
				UserID:        entry.UserID,
				Minutes:       entry.Minutes,
			}).Error; err != nil {
				return fmt.Errorf("failed to insert archived time entry: %w", err)
			}
		}

		if err := tx.Where("job_id = ?", jobID).Delete(&timeLogModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete time logs: %w", err)
		}
		if err := tx.Where("job_id = ?", jobID).Delete(&jobAssignmentModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		if err := tx.Delete(&jobModel{}, "id = ?", jobID).Error; err != nil {
			return fmt.Errorf("failed to delete live job: %w", err)
		}

		archived = model.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &archived, nil
}

func (r *ArchiveRepo) List(ctx context.Context) ([]domain.ArchivedJob, error) {
	var models []archivedJobModel
	if err := r.db.WithContext(ctx).Order("archived_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list archived jobs: %w", err)
	}
	jobs := make([]domain.ArchivedJob, len(models))
	for i := range models {
		jobs[i] = models[i].toDomain()
	}
	return jobs, nil
}

func (r *ArchiveRepo) Stats(ctx context.Context) (*domain.ArchiveStats, error) {
	var stats domain.ArchiveStats

	var agg struct {
		JobCount       int
		TotalMinutes   int
		AverageMinutes float64
	}
	if err := r.db.WithContext(ctx).Model(&archivedJobModel{}).
		Select("COUNT(*) AS job_count, COALESCE(SUM(total_time_minutes), 0) AS total_minutes, COALESCE(AVG(total_time_minutes), 0) AS average_minutes").
		Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("failed to compute archive stats: %w", err)
	}
	stats.JobCount = agg.JobCount
	stats.TotalMinutes = agg.TotalMinutes
	stats.AverageMinutes = agg.AverageMinutes

	var perUser []struct {
		UserID  uuid.UUID
		Minutes int
	}
	if err := r.db.WithContext(ctx).Model(&archivedTimeEntryModel{}).
		Select("user_id, COALESCE(SUM(minutes), 0) AS minutes").
		Group("user_id").
		Order("user_id").
		Scan(&perUser).Error; err != nil {
		return nil, fmt.Errorf("failed to compute per-employee totals: %w", err)
	}
	for _, entry := range perUser {
		stats.MinutesByEmployee = append(stats.MinutesByEmployee, domain.EmployeeTime{
			UserID:  entry.UserID,
			Minutes: entry.Minutes,
		})
	}
	return &stats, nil
}
