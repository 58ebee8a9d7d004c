package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

type JobStatus string

const (
	StatusTodo       JobStatus = "todo"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
)

// ValidStatus reports whether s is one of the three live job states.
func ValidStatus(s JobStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Job struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	CustomerName   string     `json:"customer_name" db:"customer_name"`
	VehicleInfo    string     `json:"vehicle_info" db:"vehicle_info"`
	Status         JobStatus  `json:"status" db:"status"`
	EstimatedHours float64    `json:"estimated_hours" db:"estimated_hours"`
	ActualHours    float64    `json:"actual_hours" db:"actual_hours"`
	CreatedBy      uuid.UUID  `json:"created_by" db:"created_by"`
	PhotoURL       string     `json:"photo_url,omitempty" db:"photo_url"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

type JobAssignment struct {
	JobID      uuid.UUID `json:"job_id" db:"job_id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	AssignedBy uuid.UUID `json:"assigned_by" db:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

type TimeLog struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	JobID           uuid.UUID  `json:"job_id" db:"job_id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	StartTime       time.Time  `json:"start_time" db:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty" db:"end_time"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
}

type ArchivedJob struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OriginalJobID    uuid.UUID `json:"original_job_id" db:"original_job_id"`
	Title            string    `json:"title" db:"title"`
	Description      string    `json:"description" db:"description"`
	CustomerName     string    `json:"customer_name" db:"customer_name"`
	VehicleInfo      string    `json:"vehicle_info" db:"vehicle_info"`
	EstimatedHours   float64   `json:"estimated_hours" db:"estimated_hours"`
	CreatedBy        uuid.UUID `json:"created_by" db:"created_by"`
	PhotoURL         string    `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	CompletedAt      time.Time `json:"completed_at" db:"completed_at"`
	ArchivedAt       time.Time `json:"archived_at" db:"archived_at"`
	ArchivedBy       uuid.UUID `json:"archived_by" db:"archived_by"`
	TotalTimeMinutes int       `json:"total_time_minutes" db:"total_time_minutes"`
}

// EmployeeTime is one row of the per-employee archive breakdown.
type EmployeeTime struct {
	UserID  uuid.UUID `json:"user_id" db:"user_id"`
	Minutes int       `json:"minutes" db:"minutes"`
}

// ArchiveStats aggregates over all archived jobs.
type ArchiveStats struct {
	JobCount          int            `json:"job_count"`
	TotalMinutes      int            `json:"total_minutes"`
	AverageMinutes    float64        `json:"average_minutes"`
	MinutesByEmployee []EmployeeTime `json:"minutes_by_employee"`
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// JobFilter narrows ListJobs. Zero values mean "no filter".
type JobFilter struct {
	Status   JobStatus
	Assignee uuid.UUID
}

// --- Shared value types ---

// TimerStart is the result of starting a timer: the created log plus whether
// the job was promoted from todo to in_progress.
type TimerStart struct {
	Log      TimeLog `json:"log"`
	Promoted bool    `json:"promoted"`
}

// TimerStop is the result of stopping a timer: the closed log plus the job's
// recomputed actual hours. It doubles as the timer.stopped event payload so
// clients can update displayed hours without a refetch.
type TimerStop struct {
	Log         TimeLog `json:"log"`
	ActualHours float64 `json:"actual_hours"`
}

// --- Persistence port interfaces ---

// UserRepository abstracts employee account persistence.
type UserRepository interface {
	Create(ctx context.Context, username, displayName, passwordHash string, role Role) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// JobRepository abstracts live job and assignment persistence.
// UpdateWithAssignments is atomic: the field overwrite and the assignee-set
// replacement land in one transaction, so a failed update leaves neither
// behind. Existing assignments keep their assigned_at.
type JobRepository interface {
	Create(ctx context.Context, job *Job, assigneeIDs []uuid.UUID) (*Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, filter JobFilter) ([]Job, error)
	UpdateWithAssignments(ctx context.Context, job *Job, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, now time.Time) (*Job, error)
	SetStatus(ctx context.Context, id uuid.UUID, status JobStatus, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListAssignments(ctx context.Context, jobID uuid.UUID) ([]JobAssignment, error)
}

// TimeLogRepository abstracts work session persistence. Start and Stop are
// atomic: the precondition check, the row mutation, and the coupled job
// update (status promotion, actual-hours recompute) happen in one
// transaction.
type TimeLogRepository interface {
	Start(ctx context.Context, jobID, userID uuid.UUID, now time.Time) (*TimerStart, error)
	Stop(ctx context.Context, jobID, userID uuid.UUID, now time.Time) (*TimerStop, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]TimeLog, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]TimeLog, error)
}

// ArchiveRepository abstracts the archive store. Archive re-validates its
// preconditions (job completed, no active timer) inside the same transaction
// that writes the snapshot and deletes the live rows.
type ArchiveRepository interface {
	Archive(ctx context.Context, jobID, archivedBy uuid.UUID, now time.Time) (*ArchivedJob, error)
	List(ctx context.Context) ([]ArchivedJob, error)
	Stats(ctx context.Context) (*ArchiveStats, error)
}

// AppService is the application layer contract — handlers route all
// operations through here.
type AppService interface {
	// Jobs
	CreateJob(ctx context.Context, params CreateJobParams, actor Actor) (*Job, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)
	UpdateJob(ctx context.Context, jobID uuid.UUID, params UpdateJobParams, actor Actor) (*Job, error)
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, actor Actor) (*Job, error)
	DeleteJob(ctx context.Context, jobID uuid.UUID, actor Actor) error
	ListJobAssignments(ctx context.Context, jobID uuid.UUID) ([]JobAssignment, error)

	// Timers
	StartTimer(ctx context.Context, jobID uuid.UUID, actor Actor) (*TimerStart, error)
	StopTimer(ctx context.Context, jobID uuid.UUID, actor Actor) (*TimerStop, error)
	ListActiveTimers(ctx context.Context, userID uuid.UUID) ([]TimeLog, error)

	// Archive
	ArchiveJob(ctx context.Context, jobID uuid.UUID, actor Actor) (*ArchivedJob, error)
	ListArchivedJobs(ctx context.Context) ([]ArchivedJob, error)
	ArchiveStats(ctx context.Context) (*ArchiveStats, error)

	// Users
	Authenticate(ctx context.Context, username, password string) (*User, error)
	CreateUser(ctx context.Context, username, displayName, password string, role Role, actor Actor) (*User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// CreateJobParams carries the operator-entered fields of a new job.
type CreateJobParams struct {
	Title          string
	Description    string
	CustomerName   string
	VehicleInfo    string
	EstimatedHours float64
	PhotoURL       string
	AssigneeIDs    []uuid.UUID
}

// UpdateJobParams overwrites the mutable fields of a job. AssigneeIDs
// replaces the whole assignee set; the service diffs it against the stored
// assignments.
type UpdateJobParams struct {
	Title          string
	Description    string
	CustomerName   string
	VehicleInfo    string
	EstimatedHours float64
	PhotoURL       string
	AssigneeIDs    []uuid.UUID
}
