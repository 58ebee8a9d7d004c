package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type timerStartResponse struct {
	Log      any  `json:"log"`
	Promoted bool `json:"promoted"`
}

type timerStopResponse struct {
	Log         any     `json:"log"`
	ActualHours float64 `json:"actual_hours"`
}

func (s *Server) handleStartTimer(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	start, err := s.app.StartTimer(c.Request().Context(), jobID, actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, timerStartResponse{Log: start.Log, Promoted: start.Promoted})
}

func (s *Server) handleStopTimer(c echo.Context) error {
	jobID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	stop, err := s.app.StopTimer(c.Request().Context(), jobID, actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, timerStopResponse{Log: stop.Log, ActualHours: stop.ActualHours})
}

func (s *Server) handleActiveTimers(c echo.Context) error {
	logs, err := s.app.ListActiveTimers(c.Request().Context(), actorFromContext(c).ID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, logs)
}
