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

// TimeLogRepo implements domain.TimeLogRepository backed by SQLite. SQLite
// serializes writers, so a transaction is enough to make the precondition
// check and insert atomic; the partial unique index is the backstop.
type TimeLogRepo struct {
	db *gorm.DB
}

func NewTimeLogRepo(db *gorm.DB) *TimeLogRepo {
	return &TimeLogRepo{db: db}
}

func (r *TimeLogRepo) Start(ctx context.Context, jobID, userID uuid.UUID, now time.Time) (*domain.TimerStart, error) {
	var result domain.TimerStart

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job jobModel
		err := tx.First(&job, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}

		log := timeLogModel{
			ID:        uuid.New(),
			JobID:     jobID,
			UserID:    userID,
			StartTime: now,
		}
		if err := tx.Create(&log).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrTimerAlreadyActive
			}
			return fmt.Errorf("failed to insert time log: %w", err)
		}

		if job.Status == string(domain.StatusTodo) {
			if err := tx.Model(&jobModel{}).Where("id = ?", jobID).Updates(map[string]any{
				"status":     string(domain.StatusInProgress),
				"updated_at": now,
			}).Error; err != nil {
				return fmt.Errorf("failed to promote job status: %w", err)
			}
			result.Promoted = true
		}

		result.Log = log.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *TimeLogRepo) Stop(ctx context.Context, jobID, userID uuid.UUID, now time.Time) (*domain.TimerStop, error) {
	var result domain.TimerStop

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log timeLogModel
		err := tx.First(&log, "job_id = ? AND user_id = ? AND end_time IS NULL", jobID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNoActiveTimer
		}
		if err != nil {
			return fmt.Errorf("failed to load active time log: %w", err)
		}

		minutes := int(now.Sub(log.StartTime) / time.Minute)
		if minutes < 0 {
			minutes = 0
		}

		if err := tx.Model(&timeLogModel{}).Where("id = ?", log.ID).Updates(map[string]any{
			"end_time":         now,
			"duration_minutes": minutes,
		}).Error; err != nil {
			return fmt.Errorf("failed to close time log: %w", err)
		}
		log.EndTime = &now
		log.DurationMinutes = minutes

		// Full recompute rather than increment, so the derived field
		// cannot drift from the time log set.
		var totalMinutes int64
		if err := tx.Model(&timeLogModel{}).
			Where("job_id = ?", jobID).
			Select("COALESCE(SUM(duration_minutes), 0)").
			Scan(&totalMinutes).Error; err != nil {
			return fmt.Errorf("failed to sum time logs: %w", err)
		}

		actualHours := float64(totalMinutes) / 60.0
		if err := tx.Model(&jobModel{}).Where("id = ?", jobID).Updates(map[string]any{
			"actual_hours": actualHours,
			"updated_at":   now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update actual hours: %w", err)
		}

		result.Log = log.toDomain()
		result.ActualHours = actualHours
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *TimeLogRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]domain.TimeLog, error) {
	var models []timeLogModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active time logs: %w", err)
	}
	return toDomainLogs(models), nil
}

func (r *TimeLogRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.TimeLog, error) {
	var models []timeLogModel
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_time").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list time logs: %w", err)
	}
	return toDomainLogs(models), nil
}

func toDomainLogs(models []timeLogModel) []domain.TimeLog {
	logs := make([]domain.TimeLog, len(models))
	for i := range models {
		logs[i] = models[i].toDomain()
	}
	return logs
}
