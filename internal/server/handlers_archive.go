package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleArchiveJob(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	archived, err := s.app.ArchiveJob(c.Request().Context(), jobID, actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, archived)
}

func (s *Server) handleListArchive(c echo.Context) error {
	jobs, err := s.app.ListArchivedJobs(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleArchiveStats(c echo.Context) error {
	stats, err := s.app.ArchiveStats(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
