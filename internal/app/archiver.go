package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/metrics"
)

// ArchiveJob snapshots a completed job into the archive and removes it from
// the live set. Irreversible. Admin only. The repository re-validates the
// preconditions inside its transaction; the per-job lock keeps a concurrent
// delete or second archive from interleaving.
func (s *Service) ArchiveJob(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.ArchivedJob, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	unlock := s.jobLocks.Lock(jobID.String())
	defer unlock()

	archived, err := s.archive.Archive(ctx, jobID, actor.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	metrics.JobsArchivedTotal.Inc()
	slog.Info("Job archived",
		"job_id", jobID.String(),
		"archive_id", archived.ID.String(),
		"total_minutes", archived.TotalTimeMinutes,
	)

	s.emit(ctx, domain.EventJobArchived, jobID, archived)
	return archived, nil
}

// ListArchivedJobs returns all archive snapshots, newest first.
func (s *Service) ListArchivedJobs(ctx context.Context) ([]domain.ArchivedJob, error) {
	return s.archive.List(ctx)
}

// ArchiveStats aggregates over the archive. Concurrent calls collapse into a
// single query via singleflight.
func (s *Service) ArchiveStats(ctx context.Context) (*domain.ArchiveStats, error) {
	result, err, _ := s.statsGroup.Do("archive-stats", func() (any, error) {
		return s.archive.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.ArchiveStats), nil
}
