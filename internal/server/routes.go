package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth
	s.echo.POST("/auth/login", s.handleLogin)
	s.echo.POST("/auth/logout", s.handleLogout, s.requireAuth)
	s.echo.GET("/auth/me", s.handleMe, s.requireAuth)

	api := s.echo.Group("/api", s.requireAuth)

	// Jobs
	api.GET("/jobs", s.handleListJobs)
	api.POST("/jobs", s.handleCreateJob)
	api.GET("/jobs/:id", s.handleGetJob)
	api.PUT("/jobs/:id", s.handleUpdateJob)
	api.PATCH("/jobs/:id/status", s.handleSetJobStatus)
	api.DELETE("/jobs/:id", s.handleDeleteJob)
	api.GET("/jobs/:id/assignments", s.handleListAssignments)

	// Timers
	api.POST("/jobs/:id/timer/start", s.handleStartTimer)
	api.POST("/jobs/:id/timer/stop", s.handleStopTimer)
	api.GET("/timers/active", s.handleActiveTimers)

	// Archive
	api.POST("/jobs/:id/archive", s.handleArchiveJob)
	api.GET("/archive", s.handleListArchive)
	api.GET("/archive/stats", s.handleArchiveStats)

	// Users
	api.GET("/users", s.handleListUsers)
	api.POST("/users", s.handleCreateUser)

	// Live event stream
	s.echo.GET("/ws", s.handleWebSocket, s.requireAuth)
}
