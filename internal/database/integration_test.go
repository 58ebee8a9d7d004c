package database

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

var (
	testPool        *pgxpool.Pool
	testDatabaseURL string
)

func TestMain(m *testing.M) {
	// Parse flags to check for -short
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}
	testDatabaseURL = connStr

	testPool, err = Connect(ctx, testDatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test database: %v\n", err)
		os.Exit(1)
	}
	defer testPool.Close()

	if err := RunMigrationsWithLock(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupTestDB returns the shared pool and registers cleanup to truncate tables.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_, err := testPool.Exec(ctx, "TRUNCATE users, jobs, job_assignments, time_logs, archived_jobs, archived_time_entries CASCADE")
		if err != nil {
			t.Logf("Failed to truncate tables: %v", err)
		}
	})

	return testPool
}

type integrationFixture struct {
	users    *UserRepo
	jobs     *JobRepo
	timeLogs *TimeLogRepo
	archive  *ArchiveRepo
	admin    *domain.User
	worker   *domain.User
}

func newIntegrationFixture(t *testing.T) *integrationFixture {
	t.Helper()
	pool := setupTestDB(t)

	f := &integrationFixture{
		users:    NewUserRepo(pool),
		jobs:     NewJobRepo(pool),
		timeLogs: NewTimeLogRepo(pool),
		archive:  NewArchiveRepo(pool),
	}

	var err error
	f.admin, err = f.users.Create(context.Background(), "boss", "Boss", "hash", domain.RoleAdmin)
	require.NoError(t, err)
	f.worker, err = f.users.Create(context.Background(), "mechanic", "Mechanic", "hash", domain.RoleEmployee)
	require.NoError(t, err)
	return f
}

func (f *integrationFixture) createJob(t *testing.T, assignees ...uuid.UUID) *domain.Job {
	t.Helper()
	now := time.Now().UTC()
	job, err := f.jobs.Create(context.Background(), &domain.Job{
		Title:        "Replace bumper",
		CustomerName: "Rossi",
		Status:       domain.StatusTodo,
		CreatedBy:    f.admin.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, assignees)
	require.NoError(t, err)
	return job
}

func TestUserRepo_UniqueUsernameEnforced(t *testing.T) {
	f := newIntegrationFixture(t)

	_, err := f.users.Create(context.Background(), "boss", "Boss Again", "hash", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestTimeLogRepo_ConcurrentStartsSingleWinner(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t, f.worker.ID)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.timeLogs.Start(context.Background(), job.ID, f.worker.ID, time.Now().UTC())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrTimerAlreadyActive)
		}
	}
	assert.Equal(t, 1, succeeded)

	active, err := f.timeLogs.ListActiveByUser(context.Background(), f.worker.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTimeLogRepo_StartPromotesTodoJob(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t, f.worker.ID)

	start, err := f.timeLogs.Start(context.Background(), job.ID, f.worker.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, start.Promoted)

	got, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
}

func TestTimeLogRepo_StopRecomputesActualHours(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t, f.worker.ID)
	start := time.Now().UTC().Add(-2 * time.Hour)

	_, err := f.timeLogs.Start(context.Background(), job.ID, f.worker.ID, start)
	require.NoError(t, err)

	stop, err := f.timeLogs.Stop(context.Background(), job.ID, f.worker.ID, start.Add(45*time.Minute+20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 45, stop.Log.DurationMinutes)
	assert.InDelta(t, 0.75, stop.ActualHours, 1e-9)

	got, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got.ActualHours, 1e-9)
}

func TestJobRepo_UpdateReplacesAssignmentsAtomically(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t, f.worker.ID)

	before, err := f.jobs.ListAssignments(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)

	job.Title = "Replace bumper and paint"
	updated, err := f.jobs.UpdateWithAssignments(context.Background(), job,
		[]uuid.UUID{f.admin.ID}, f.admin.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "Replace bumper and paint", updated.Title)

	after, err := f.jobs.ListAssignments(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, f.admin.ID, after[0].UserID)

	// An unknown assignee violates the foreign key and rolls the whole
	// update back, fields included.
	job.Title = "Should not stick"
	_, err = f.jobs.UpdateWithAssignments(context.Background(), job,
		[]uuid.UUID{uuid.New()}, f.admin.ID, time.Now().UTC())
	require.Error(t, err)

	got, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Replace bumper and paint", got.Title)
}

func TestJobRepo_SetStatusStampsCompletion(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t)
	now := time.Now().UTC()

	require.NoError(t, f.jobs.SetStatus(context.Background(), job.ID, domain.StatusCompleted, now))
	got, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	require.NoError(t, f.jobs.SetStatus(context.Background(), job.ID, domain.StatusInProgress, now.Add(time.Minute)))
	got, err = f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
}

func TestArchiveRepo_ArchiveMovesJobAtomically(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t, f.worker.ID)
	start := time.Now().UTC().Add(-3 * time.Hour)

	_, err := f.timeLogs.Start(context.Background(), job.ID, f.worker.ID, start)
	require.NoError(t, err)
	_, err = f.timeLogs.Stop(context.Background(), job.ID, f.worker.ID, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.jobs.SetStatus(context.Background(), job.ID, domain.StatusCompleted, start.Add(2*time.Hour)))

	archived, err := f.archive.Archive(context.Background(), job.ID, f.admin.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 120, archived.TotalTimeMinutes)
	assert.Equal(t, job.ID, archived.OriginalJobID)

	_, err = f.jobs.GetByID(context.Background(), job.ID)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	logs, err := f.timeLogs.ListByJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	stats, err := f.archive.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.JobCount)
	require.Len(t, stats.MinutesByEmployee, 1)
	assert.Equal(t, 120, stats.MinutesByEmployee[0].Minutes)
}

func TestArchiveRepo_PreconditionsEnforced(t *testing.T) {
	f := newIntegrationFixture(t)
	job := f.createJob(t, f.worker.ID)
	now := time.Now().UTC()

	_, err := f.archive.Archive(context.Background(), job.ID, f.admin.ID, now)
	assert.ErrorIs(t, err, domain.ErrJobNotCompleted)

	_, err = f.timeLogs.Start(context.Background(), job.ID, f.worker.ID, now)
	require.NoError(t, err)
	require.NoError(t, f.jobs.SetStatus(context.Background(), job.ID, domain.StatusCompleted, now))

	_, err = f.archive.Archive(context.Background(), job.ID, f.admin.ID, now)
	assert.ErrorIs(t, err, domain.ErrJobHasActiveTimer)
}
