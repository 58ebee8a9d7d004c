package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/errors"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/metrics"
)

// CreateJob creates a job in todo state and assigns the given employees.
func (s *Service) CreateJob(ctx context.Context, params domain.CreateJobParams, actor domain.Actor) (*domain.Job, error) {
	if params.Title == "" {
		return nil, apperrors.ValidationError("title is required")
	}
	if params.CustomerName == "" {
		return nil, apperrors.ValidationError("customer name is required")
	}
	if params.EstimatedHours < 0 {
		return nil, apperrors.ValidationError("estimated hours must not be negative")
	}

	assigneeIDs := dedupeIDs(params.AssigneeIDs)
	for _, userID := range assigneeIDs {
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	job := &domain.Job{
		Title:          params.Title,
		Description:    params.Description,
		CustomerName:   params.CustomerName,
		VehicleInfo:    params.VehicleInfo,
		Status:         domain.StatusTodo,
		EstimatedHours: params.EstimatedHours,
		CreatedBy:      actor.ID,
		PhotoURL:       params.PhotoURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.jobs.Create(ctx, job, assigneeIDs)
	if err != nil {
		return nil, err
	}

	metrics.JobsCreatedTotal.Inc()
	slog.Info("Job created", "job_id", created.ID.String(), "assignees", len(assigneeIDs))
	s.emit(ctx, domain.EventJobCreated, created.ID, created)
	return created, nil
}

// GetJob retrieves a live job by ID.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// ListJobs returns live jobs, optionally filtered by status and assignee.
func (s *Service) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, apperrors.ValidationError("invalid status filter").WithField("status", string(filter.Status))
	}
	return s.jobs.List(ctx, filter)
}

// ListJobAssignments returns the assignment rows of a job.
func (s *Service) ListJobAssignments(ctx context.Context, jobID uuid.UUID) ([]domain.JobAssignment, error) {
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.ListAssignments(ctx, jobID)
}

// UpdateJob overwrites the mutable fields of a job and replaces its assignee
// set. Only an admin or the job's creator may update.
func (s *Service) UpdateJob(ctx context.Context, jobID uuid.UUID, params domain.UpdateJobParams, actor domain.Actor) (*domain.Job, error) {
	if params.Title == "" {
		return nil, apperrors.ValidationError("title is required")
	}
	if params.CustomerName == "" {
		return nil, apperrors.ValidationError("customer name is required")
	}
	if params.EstimatedHours < 0 {
		return nil, apperrors.ValidationError("estimated hours must not be negative")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && job.CreatedBy != actor.ID {
		return nil, domain.ErrForbidden
	}

	assigneeIDs := dedupeIDs(params.AssigneeIDs)
	for _, userID := range assigneeIDs {
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return nil, err
		}
	}

	job.Title = params.Title
	job.Description = params.Description
	job.CustomerName = params.CustomerName
	job.VehicleInfo = params.VehicleInfo
	job.EstimatedHours = params.EstimatedHours
	job.PhotoURL = params.PhotoURL

	updated, err := s.jobs.UpdateWithAssignments(ctx, job, assigneeIDs, actor.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventJobUpdated, jobID, updated)
	return updated, nil
}

// SetJobStatus moves a job to the given status. Any transition between live
// states is allowed; completing a job stamps its completion time. Only an
// admin or an assigned employee may change the status.
func (s *Service) SetJobStatus(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, actor domain.Actor) (*domain.Job, error) {
	if !domain.ValidStatus(status) {
		return nil, apperrors.ValidationError("invalid status").WithField("status", string(status))
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		assigned, err := s.isAssigned(ctx, jobID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !assigned {
			return nil, domain.ErrForbidden
		}
	}

	if job.Status == status {
		return job, nil
	}

	if err := s.jobs.SetStatus(ctx, jobID, status, s.clock.Now()); err != nil {
		return nil, err
	}

	updated, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	metrics.JobStatusChangesTotal.WithLabelValues(string(status)).Inc()
	slog.Info("Job status changed", "job_id", jobID.String(), "from", string(job.Status), "to", string(status))
	s.emit(ctx, domain.EventJobUpdated, jobID, updated)
	return updated, nil
}

// DeleteJob removes a live job and everything hanging off it. Admin only.
func (s *Service) DeleteJob(ctx context.Context, jobID uuid.UUID, actor domain.Actor) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	unlock := s.jobLocks.Lock(jobID.String())
	defer unlock()

	if err := s.jobs.Delete(ctx, jobID); err != nil {
		return err
	}

	metrics.JobsDeletedTotal.Inc()
	slog.Info("Job deleted", "job_id", jobID.String())
	s.emit(ctx, domain.EventJobDeleted, jobID, nil)
	return nil
}

func (s *Service) isAssigned(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	assignments, err := s.jobs.ListAssignments(ctx, jobID)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
