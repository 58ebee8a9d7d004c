package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// In-memory fakes implementing the domain ports. They enforce the same
// invariants as the real gateways (unique usernames, one active timer per
// pair, archive preconditions) so service tests exercise real error paths.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, username, displayName, passwordHash string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return nil, domain.ErrUsernameTaken
		}
	}
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         role,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copy := *user
	return &copy, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	return users, nil
}

type fakeStore struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*domain.Job
	assignments map[uuid.UUID]map[uuid.UUID]domain.JobAssignment
	logs        []*domain.TimeLog
	archived    map[uuid.UUID]*domain.ArchivedJob
	entries     map[uuid.UUID][]domain.EmployeeTime

	// failUpdate makes UpdateWithAssignments fail without touching any
	// state, like a rolled-back transaction.
	failUpdate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:        make(map[uuid.UUID]*domain.Job),
		assignments: make(map[uuid.UUID]map[uuid.UUID]domain.JobAssignment),
		archived:    make(map[uuid.UUID]*domain.ArchivedJob),
		entries:     make(map[uuid.UUID][]domain.EmployeeTime),
	}
}

// --- domain.JobRepository ---

func (s *fakeStore) Create(_ context.Context, job *domain.Job, assigneeIDs []uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *job
	stored.ID = uuid.New()
	s.jobs[stored.ID] = &stored
	s.assignments[stored.ID] = make(map[uuid.UUID]domain.JobAssignment)
	for _, userID := range assigneeIDs {
		s.assignments[stored.ID][userID] = domain.JobAssignment{
			JobID:      stored.ID,
			UserID:     userID,
			AssignedBy: job.CreatedBy,
			AssignedAt: job.CreatedAt,
		}
	}
	copy := stored
	return &copy, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	copy := *job
	return &copy, nil
}

func (s *fakeStore) List(_ context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []domain.Job
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Assignee != uuid.Nil {
			if _, ok := s.assignments[job.ID][filter.Assignee]; !ok {
				continue
			}
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func (s *fakeStore) UpdateWithAssignments(_ context.Context, job *domain.Job, assigneeIDs []uuid.UUID, assignedBy uuid.UUID, now time.Time) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.ID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if s.failUpdate != nil {
		return nil, s.failUpdate
	}
	stored.Title = job.Title
	stored.Description = job.Description
	stored.CustomerName = job.CustomerName
	stored.VehicleInfo = job.VehicleInfo
	stored.EstimatedHours = job.EstimatedHours
	stored.PhotoURL = job.PhotoURL
	stored.UpdatedAt = now

	current := s.assignments[job.ID]
	if current == nil {
		current = make(map[uuid.UUID]domain.JobAssignment)
	}
	next := make(map[uuid.UUID]domain.JobAssignment, len(assigneeIDs))
	for _, userID := range assigneeIDs {
		if existing, ok := current[userID]; ok {
			next[userID] = existing
			continue
		}
		next[userID] = domain.JobAssignment{JobID: job.ID, UserID: userID, AssignedBy: assignedBy, AssignedAt: now}
	}
	s.assignments[job.ID] = next

	copy := *stored
	return &copy, nil
}

func (s *fakeStore) SetStatus(_ context.Context, id uuid.UUID, status domain.JobStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Status = status
	if status == domain.StatusCompleted {
		job.CompletedAt = &now
	} else {
		job.CompletedAt = nil
	}
	job.UpdatedAt = now
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(s.jobs, id)
	delete(s.assignments, id)
	kept := s.logs[:0]
	for _, l := range s.logs {
		if l.JobID != id {
			kept = append(kept, l)
		}
	}
	s.logs = kept
	return nil
}

func (s *fakeStore) ListAssignments(_ context.Context, jobID uuid.UUID) ([]domain.JobAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JobAssignment
	for _, a := range s.assignments[jobID] {
		out = append(out, a)
	}
	return out, nil
}

// --- domain.TimeLogRepository ---

func (s *fakeStore) Start(_ context.Context, jobID, userID uuid.UUID, now time.Time) (*domain.TimerStart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	for _, l := range s.logs {
		if l.JobID == jobID && l.UserID == userID && l.EndTime == nil {
			return nil, domain.ErrTimerAlreadyActive
		}
	}
	log := &domain.TimeLog{
		ID:        uuid.New(),
		JobID:     jobID,
		UserID:    userID,
		StartTime: now,
	}
	s.logs = append(s.logs, log)

	result := &domain.TimerStart{Log: *log}
	if job.Status == domain.StatusTodo {
		job.Status = domain.StatusInProgress
		job.UpdatedAt = now
		result.Promoted = true
	}
	return result, nil
}

func (s *fakeStore) Stop(_ context.Context, jobID, userID uuid.UUID, now time.Time) (*domain.TimerStop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active *domain.TimeLog
	for _, l := range s.logs {
		if l.JobID == jobID && l.UserID == userID && l.EndTime == nil {
			active = l
			break
		}
	}
	if active == nil {
		return nil, domain.ErrNoActiveTimer
	}

	minutes := int(now.Sub(active.StartTime) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	end := now
	active.EndTime = &end
	active.DurationMinutes = minutes

	total := 0
	for _, l := range s.logs {
		if l.JobID == jobID {
			total += l.DurationMinutes
		}
	}
	actualHours := float64(total) / 60.0
	if job, ok := s.jobs[jobID]; ok {
		job.ActualHours = actualHours
		job.UpdatedAt = now
	}
	return &domain.TimerStop{Log: *active, ActualHours: actualHours}, nil
}

func (s *fakeStore) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]domain.TimeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TimeLog
	for _, l := range s.logs {
		if l.UserID == userID && l.EndTime == nil {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByJob(_ context.Context, jobID uuid.UUID) ([]domain.TimeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TimeLog
	for _, l := range s.logs {
		if l.JobID == jobID {
			out = append(out, *l)
		}
	}
	return out, nil
}

// --- domain.ArchiveRepository ---

func (s *fakeStore) Archive(_ context.Context, jobID, archivedBy uuid.UUID, now time.Time) (*domain.ArchivedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.StatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}

	total := 0
	perUser := make(map[uuid.UUID]int)
	for _, l := range s.logs {
		if l.JobID != jobID {
			continue
		}
		if l.EndTime == nil {
			return nil, domain.ErrJobHasActiveTimer
		}
		total += l.DurationMinutes
		perUser[l.UserID] += l.DurationMinutes
	}

	completedAt := job.UpdatedAt
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}

	archived := &domain.ArchivedJob{
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
		TotalTimeMinutes: total,
	}
	s.archived[archived.ID] = archived
	for userID, minutes := range perUser {
		s.entries[archived.ID] = append(s.entries[archived.ID], domain.EmployeeTime{UserID: userID, Minutes: minutes})
	}

	delete(s.jobs, jobID)
	delete(s.assignments, jobID)
	kept := s.logs[:0]
	for _, l := range s.logs {
		if l.JobID != jobID {
			kept = append(kept, l)
		}
	}
	s.logs = kept

	copy := *archived
	return &copy, nil
}

func (s *fakeStore) ListArchived(_ context.Context) ([]domain.ArchivedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ArchivedJob
	for _, a := range s.archived {
		out = append(out, *a)
	}
	return out, nil
}

func (s *fakeStore) Stats(_ context.Context) (*domain.ArchiveStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &domain.ArchiveStats{}
	perUser := make(map[uuid.UUID]int)
	for id, a := range s.archived {
		stats.JobCount++
		stats.TotalMinutes += a.TotalTimeMinutes
		for _, e := range s.entries[id] {
			perUser[e.UserID] += e.Minutes
		}
	}
	if stats.JobCount > 0 {
		stats.AverageMinutes = float64(stats.TotalMinutes) / float64(stats.JobCount)
	}
	for userID, minutes := range perUser {
		stats.MinutesByEmployee = append(stats.MinutesByEmployee, domain.EmployeeTime{UserID: userID, Minutes: minutes})
	}
	return stats, nil
}

// archiveAdapter exposes the fakeStore's archive methods under the
// ArchiveRepository method names.
type archiveAdapter struct {
	store *fakeStore
}

func (a archiveAdapter) Archive(ctx context.Context, jobID, archivedBy uuid.UUID, now time.Time) (*domain.ArchivedJob, error) {
	return a.store.Archive(ctx, jobID, archivedBy, now)
}

func (a archiveAdapter) List(ctx context.Context) ([]domain.ArchivedJob, error) {
	return a.store.ListArchived(ctx)
}

func (a archiveAdapter) Stats(ctx context.Context) (*domain.ArchiveStats, error) {
	return a.store.Stats(ctx)
}

// --- Event capture ---

type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) last() domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func (p *capturingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}
