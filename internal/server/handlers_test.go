package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	apperrors "github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/errors"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/config"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// --- Mock implementations ---

type mockAppService struct {
	createJobFn          func(ctx context.Context, params domain.CreateJobParams, actor domain.Actor) (*domain.Job, error)
	getJobFn             func(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)
	listJobsFn           func(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	updateJobFn          func(ctx context.Context, jobID uuid.UUID, params domain.UpdateJobParams, actor domain.Actor) (*domain.Job, error)
	setJobStatusFn       func(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, actor domain.Actor) (*domain.Job, error)
	deleteJobFn          func(ctx context.Context, jobID uuid.UUID, actor domain.Actor) error
	listAssignmentsFn    func(ctx context.Context, jobID uuid.UUID) ([]domain.JobAssignment, error)
	startTimerFn         func(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.TimerStart, error)
	stopTimerFn          func(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.TimerStop, error)
	listActiveTimersFn   func(ctx context.Context, userID uuid.UUID) ([]domain.TimeLog, error)
	archiveJobFn         func(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.ArchivedJob, error)
	listArchivedJobsFn   func(ctx context.Context) ([]domain.ArchivedJob, error)
	archiveStatsFn       func(ctx context.Context) (*domain.ArchiveStats, error)
	authenticateFn       func(ctx context.Context, username, password string) (*domain.User, error)
	createUserFn         func(ctx context.Context, username, displayName, password string, role domain.Role, actor domain.Actor) (*domain.User, error)
	getUserFn            func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	getUserByUsernameFn  func(ctx context.Context, username string) (*domain.User, error)
	listUsersFn          func(ctx context.Context) ([]domain.User, error)
}

func (m *mockAppService) CreateJob(ctx context.Context, params domain.CreateJobParams, actor domain.Actor) (*domain.Job, error) {
	if m.createJobFn != nil {
		return m.createJobFn(ctx, params, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) GetJob(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	if m.getJobFn != nil {
		return m.getJobFn(ctx, jobID)
	}
	return nil, domain.ErrJobNotFound
}

func (m *mockAppService) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	if m.listJobsFn != nil {
		return m.listJobsFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockAppService) UpdateJob(ctx context.Context, jobID uuid.UUID, params domain.UpdateJobParams, actor domain.Actor) (*domain.Job, error) {
	if m.updateJobFn != nil {
		return m.updateJobFn(ctx, jobID, params, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) SetJobStatus(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, actor domain.Actor) (*domain.Job, error) {
	if m.setJobStatusFn != nil {
		return m.setJobStatusFn(ctx, jobID, status, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) DeleteJob(ctx context.Context, jobID uuid.UUID, actor domain.Actor) error {
	if m.deleteJobFn != nil {
		return m.deleteJobFn(ctx, jobID, actor)
	}
	return nil
}

func (m *mockAppService) ListJobAssignments(ctx context.Context, jobID uuid.UUID) ([]domain.JobAssignment, error) {
	if m.listAssignmentsFn != nil {
		return m.listAssignmentsFn(ctx, jobID)
	}
	return nil, nil
}

func (m *mockAppService) StartTimer(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.TimerStart, error) {
	if m.startTimerFn != nil {
		return m.startTimerFn(ctx, jobID, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) StopTimer(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.TimerStop, error) {
	if m.stopTimerFn != nil {
		return m.stopTimerFn(ctx, jobID, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListActiveTimers(ctx context.Context, userID uuid.UUID) ([]domain.TimeLog, error) {
	if m.listActiveTimersFn != nil {
		return m.listActiveTimersFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAppService) ArchiveJob(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.ArchivedJob, error) {
	if m.archiveJobFn != nil {
		return m.archiveJobFn(ctx, jobID, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListArchivedJobs(ctx context.Context) ([]domain.ArchivedJob, error) {
	if m.listArchivedJobsFn != nil {
		return m.listArchivedJobsFn(ctx)
	}
	return nil, nil
}

func (m *mockAppService) ArchiveStats(ctx context.Context) (*domain.ArchiveStats, error) {
	if m.archiveStatsFn != nil {
		return m.archiveStatsFn(ctx)
	}
	return &domain.ArchiveStats{}, nil
}

func (m *mockAppService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return nil, apperrors.ValidationError("invalid credentials")
}

func (m *mockAppService) CreateUser(ctx context.Context, username, displayName, password string, role domain.Role, actor domain.Actor) (*domain.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, username, displayName, password, role, actor)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return &domain.User{ID: userID, Username: "tester", Role: domain.RoleAdmin}, nil
}

func (m *mockAppService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getUserByUsernameFn != nil {
		return m.getUserByUsernameFn(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockAppService) ListUsers(ctx context.Context) ([]domain.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return nil, nil
}

// --- Test helpers ---

func newTestServer(t *testing.T, app domain.AppService) *Server {
	t.Helper()

	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	e := echo.New()
	// Install error middleware for tests to match production behavior
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:         e,
		config:       &config.Config{Port: "0", SessionSecret: "test"},
		app:          app,
		sessionStore: store,
		startTime:    time.Now(),
	}

	srv.registerRoutes()
	return srv
}

// authenticate attaches a valid session cookie for userID to req.
func authenticate(t *testing.T, srv *Server, req *http.Request, userID uuid.UUID) {
	t.Helper()

	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	session, err := srv.sessionStore.Get(seed, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyUserID] = userID.String()
	require.NoError(t, session.Save(seed, rec))

	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
}

func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
