package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/errors"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

type jobRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	CustomerName   string   `json:"customer_name"`
	VehicleInfo    string   `json:"vehicle_info"`
	EstimatedHours float64  `json:"estimated_hours"`
	PhotoURL       string   `json:"photo_url"`
	AssigneeIDs    []string `json:"assignee_ids"`
}

func (r *jobRequest) assignees() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.AssigneeIDs))
	for _, raw := range r.AssigneeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.ValidationError("invalid assignee id").WithField("assignee_id", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) handleCreateJob(c echo.Context) error {
	var req jobRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	assigneeIDs, err := req.assignees()
	if err != nil {
		return err
	}

	job, err := s.app.CreateJob(c.Request().Context(), domain.CreateJobParams{
		Title:          req.Title,
		Description:    req.Description,
		CustomerName:   req.CustomerName,
		VehicleInfo:    req.VehicleInfo,
		EstimatedHours: req.EstimatedHours,
		PhotoURL:       req.PhotoURL,
		AssigneeIDs:    assigneeIDs,
	}, actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, job)
}

func (s *Server) handleListJobs(c echo.Context) error {
	var filter domain.JobFilter
	filter.Status = domain.JobStatus(c.QueryParam("status"))

	if raw := c.QueryParam("assignee"); raw != "" {
		if raw == "me" {
			filter.Assignee = actorFromContext(c).ID
		} else {
			id, err := uuid.Parse(raw)
			if err != nil {
				return apperrors.ValidationError("invalid assignee filter").WithField("assignee", raw)
			}
			filter.Assignee = id
		}
	}

	jobs, err := s.app.ListJobs(c.Request().Context(), filter)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleGetJob(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	job, err := s.app.GetJob(c.Request().Context(), jobID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleUpdateJob(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var req jobRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	assigneeIDs, err := req.assignees()
	if err != nil {
		return err
	}

	job, err := s.app.UpdateJob(c.Request().Context(), jobID, domain.UpdateJobParams{
		Title:          req.Title,
		Description:    req.Description,
		CustomerName:   req.CustomerName,
		VehicleInfo:    req.VehicleInfo,
		EstimatedHours: req.EstimatedHours,
		PhotoURL:       req.PhotoURL,
		AssigneeIDs:    assigneeIDs,
	}, actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, job)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetJobStatus(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var req setStatusRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	job, err := s.app.SetJobStatus(c.Request().Context(), jobID, domain.JobStatus(req.Status), actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleDeleteJob(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	if err := s.app.DeleteJob(c.Request().Context(), jobID, actorFromContext(c)); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListAssignments(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	assignments, err := s.app.ListJobAssignments(c.Request().Context(), jobID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, assignments)
}
