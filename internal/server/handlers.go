package server

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/errors"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

// mapDomainError translates domain sentinel errors into structured errors
// with the right HTTP status. Errors that are already structured pass
// through; anything unknown becomes an internal error.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}

	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return structured
	}

	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return apperrors.NotFoundError("job not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFoundError("user not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		return apperrors.ConflictError("username already taken")
	case errors.Is(err, domain.ErrTimerAlreadyActive):
		return apperrors.ConflictError("timer already active for this job")
	case errors.Is(err, domain.ErrNoActiveTimer):
		return apperrors.NotFoundError("no active timer for this job")
	case errors.Is(err, domain.ErrJobNotCompleted):
		return apperrors.InvalidStateError("only completed jobs can be archived")
	case errors.Is(err, domain.ErrJobHasActiveTimer):
		return apperrors.ConflictError("active timer exists")
	case errors.Is(err, domain.ErrForbidden):
		return apperrors.ForbiddenError("not allowed")
	default:
		return apperrors.InternalError("internal server error", err)
	}
}

// parseIDParam parses the :id path parameter as a UUID.
func parseIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid id").WithField("id", c.Param("id"))
	}
	return id, nil
}

// actorFromContext returns the authenticated actor set by requireAuth.
func actorFromContext(c echo.Context) domain.Actor {
	actor, _ := c.Get(contextKeyActor).(domain.Actor)
	return actor
}
