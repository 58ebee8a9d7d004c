package sqlitedb

import (
	"time"

	"github.com/google/uuid"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// gorm models mirror the PostgreSQL schema; uuid columns are stored as TEXT
// via uuid.UUID's driver.Valuer implementation.

type userModel struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	DisplayName  string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:employee"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

type jobModel struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey"`
	Title          string    `gorm:"not null"`
	Description    string
	CustomerName   string `gorm:"not null"`
	VehicleInfo    string
	Status         string  `gorm:"not null;default:todo;index"`
	EstimatedHours float64 `gorm:"not null;default:0"`
	ActualHours    float64 `gorm:"not null;default:0"`
	CreatedBy      uuid.UUID `gorm:"type:text;not null"`
	PhotoURL       string
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (jobModel) TableName() string { return "jobs" }

func (m *jobModel) toDomain() *domain.Job {
	return &domain.Job{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		CustomerName:   m.CustomerName,
		VehicleInfo:    m.VehicleInfo,
		Status:         domain.JobStatus(m.Status),
		EstimatedHours: m.EstimatedHours,
		ActualHours:    m.ActualHours,
		CreatedBy:      m.CreatedBy,
		PhotoURL:       m.PhotoURL,
		CompletedAt:    m.CompletedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type jobAssignmentModel struct {
	JobID      uuid.UUID `gorm:"type:text;primaryKey"`
	UserID     uuid.UUID `gorm:"type:text;primaryKey"`
	AssignedBy uuid.UUID `gorm:"type:text;not null"`
	AssignedAt time.Time
}

func (jobAssignmentModel) TableName() string { return "job_assignments" }

func (m *jobAssignmentModel) toDomain() domain.JobAssignment {
	return domain.JobAssignment{
		JobID:      m.JobID,
		UserID:     m.UserID,
		AssignedBy: m.AssignedBy,
		AssignedAt: m.AssignedAt,
	}
}

type timeLogModel struct {
	ID              uuid.UUID `gorm:"type:text;primaryKey"`
	JobID           uuid.UUID `gorm:"type:text;not null;index"`
	UserID          uuid.UUID `gorm:"type:text;not null"`
	StartTime       time.Time `gorm:"not null"`
	EndTime         *time.Time
	DurationMinutes int `gorm:"not null;default:0"`
}

func (timeLogModel) TableName() string { return "time_logs" }

func (m *timeLogModel) toDomain() domain.TimeLog {
	return domain.TimeLog{
		ID:              m.ID,
		JobID:           m.JobID,
		UserID:          m.UserID,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		DurationMinutes: m.DurationMinutes,
	}
}

type archivedJobModel struct {
	ID               uuid.UUID `gorm:"type:text;primaryKey"`
	OriginalJobID    uuid.UUID `gorm:"type:text;uniqueIndex;not null"`
	Title            string    `gorm:"not null"`
	Description      string
	CustomerName     string `gorm:"not null"`
	VehicleInfo      string
	EstimatedHours   float64
	CreatedBy        uuid.UUID `gorm:"type:text;not null"`
	PhotoURL         string
	CreatedAt        time.Time
	CompletedAt      time.Time
	ArchivedAt       time.Time
	ArchivedBy       uuid.UUID `gorm:"type:text;not null"`
	TotalTimeMinutes int       `gorm:"not null"`
}

func (archivedJobModel) TableName() string { return "archived_jobs" }

func (m *archivedJobModel) toDomain() domain.ArchivedJob {
	return domain.ArchivedJob{
		ID:               m.ID,
		OriginalJobID:    m.OriginalJobID,
		Title:            m.Title,
		Description:      m.Description,
		CustomerName:     m.CustomerName,
		VehicleInfo:      m.VehicleInfo,
		EstimatedHours:   m.EstimatedHours,
		CreatedBy:        m.CreatedBy,
		PhotoURL:         m.PhotoURL,
		CreatedAt:        m.CreatedAt,
		CompletedAt:      m.CompletedAt,
		ArchivedAt:       m.ArchivedAt,
		ArchivedBy:       m.ArchivedBy,
		TotalTimeMinutes: m.TotalTimeMinutes,
	}
}

type archivedTimeEntryModel struct {
	ArchivedJobID uuid.UUID `gorm:"type:text;primaryKey"`
	UserID        uuid.UUID `gorm:"type:text;primaryKey"`
	Minutes       int       `gorm:"not null"`
}

func (archivedTimeEntryModel) TableName() string { return "archived_time_entries" }
