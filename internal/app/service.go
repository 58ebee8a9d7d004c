package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/errors"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// Service is the application layer — the only component that references
// multiple domain components. It orchestrates all use cases.
type Service struct {
	users     domain.UserRepository
	jobs      domain.JobRepository
	timeLogs  domain.TimeLogRepository
	archive   domain.ArchiveRepository
	publisher domain.EventPublisher
	clock     clockwork.Clock

	// timerLocks serializes start/stop per (job, user) pair; jobLocks
	// serializes archive and delete per job.
	timerLocks *keyedMutex
	jobLocks   *keyedMutex

	statsGroup singleflight.Group
}

var _ domain.AppService = (*Service)(nil)

// NewService creates the application layer service.
// publisher may be nil when no clients are wired (tests, one-off tools).
func NewService(users domain.UserRepository, jobs domain.JobRepository, timeLogs domain.TimeLogRepository, archive domain.ArchiveRepository, publisher domain.EventPublisher, clock clockwork.Clock) *Service {
	return &Service{
		users:      users,
		jobs:       jobs,
		timeLogs:   timeLogs,
		archive:    archive,
		publisher:  publisher,
		clock:      clock,
		timerLocks: newKeyedMutex(),
		jobLocks:   newKeyedMutex(),
	}
}

// emit publishes a domain event after a successful commit. Fire-and-forget.
func (s *Service) emit(ctx context.Context, name string, jobID uuid.UUID, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, domain.Event{
		Name:       name,
		JobID:      jobID,
		Payload:    payload,
		OccurredAt: s.clock.Now(),
	})
}

// --- Users ---

const minPasswordLength = 8

// CreateUser registers an employee account. Admin only.
func (s *Service) CreateUser(ctx context.Context, username, displayName, password string, role domain.Role, actor domain.Actor) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if username == "" {
		return nil, apperrors.ValidationError("username is required")
	}
	if displayName == "" {
		displayName = username
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.ValidationError("password must be at least 8 characters")
	}
	if role != domain.RoleAdmin && role != domain.RoleEmployee {
		return nil, apperrors.ValidationError("invalid role").WithField("role", string(role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password", err)
	}

	user, err := s.users.Create(ctx, username, displayName, string(hash), role)
	if err != nil {
		return nil, err
	}

	slog.Info("User created", "user_id", user.ID.String(), "role", string(role))
	return user, nil
}

// GetUser retrieves a user by internal ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetUserByUsername retrieves a user by login name.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// EnsureAdminUser creates the bootstrap admin account if it does not exist
// yet. Called once at startup when admin credentials are configured.
func (s *Service) EnsureAdminUser(ctx context.Context, username, password string) error {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := s.users.Create(ctx, username, username, string(hash), domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			// Another instance seeded it first.
			return nil
		}
		return err
	}

	slog.Info("Bootstrap admin created", "user_id", user.ID.String())
	return nil
}

// Authenticate checks a username/password pair and returns the user on
// success. Wrong username and wrong password are indistinguishable to the
// caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.ValidationError("invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ValidationError("invalid credentials")
	}
	return user, nil
}
