package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/metrics"
)

func timerKey(jobID, userID uuid.UUID) string {
	return jobID.String() + "/" + userID.String()
}

// StartTimer opens a work session for the acting user on the given job. At
// most one session per (job, user) pair may be open; a second start is a
// conflict. Starting on a todo job promotes it to in_progress.
func (s *Service) StartTimer(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.TimerStart, error) {
	unlock := s.timerLocks.Lock(timerKey(jobID, actor.ID))
	defer unlock()

	start, err := s.timeLogs.Start(ctx, jobID, actor.ID, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrTimerAlreadyActive) {
			metrics.TimerConflictsTotal.Inc()
		}
		return nil, err
	}

	metrics.TimersStartedTotal.Inc()
	slog.Info("Timer started",
		"job_id", jobID.String(),
		"user_id", actor.ID.String(),
		"promoted", start.Promoted,
	)

	s.emit(ctx, domain.EventTimerStarted, jobID, start.Log)
	if start.Promoted {
		if job, err := s.jobs.GetByID(ctx, jobID); err == nil {
			metrics.JobStatusChangesTotal.WithLabelValues(string(domain.StatusInProgress)).Inc()
			s.emit(ctx, domain.EventJobUpdated, jobID, job)
		}
	}
	return start, nil
}

// StopTimer closes the acting user's open session on the given job. The
// session's duration is floored to whole minutes and the job's actual hours
// are recomputed from all its sessions.
func (s *Service) StopTimer(ctx context.Context, jobID uuid.UUID, actor domain.Actor) (*domain.TimerStop, error) {
	unlock := s.timerLocks.Lock(timerKey(jobID, actor.ID))
	defer unlock()

	stop, err := s.timeLogs.Stop(ctx, jobID, actor.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	metrics.TimersStoppedTotal.Inc()
	metrics.TimerMinutesRecordedTotal.Add(float64(stop.Log.DurationMinutes))
	slog.Info("Timer stopped",
		"job_id", jobID.String(),
		"user_id", actor.ID.String(),
		"minutes", stop.Log.DurationMinutes,
	)

	s.emit(ctx, domain.EventTimerStopped, jobID, stop)
	return stop, nil
}

// ListActiveTimers returns the open sessions of one user across all jobs.
func (s *Service) ListActiveTimers(ctx context.Context, userID uuid.UUID) ([]domain.TimeLog, error) {
	return s.timeLogs.ListActiveByUser(ctx, userID)
}
