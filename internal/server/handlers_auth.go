package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/errors"

	"github.com/assurdotrattinocorto-ux/motta-carrozzeria-sub000/internal/domain"
)

const (
	sessionName       = "motta_session"
	sessionKeyUserID  = "user_id"
	contextKeyActor   = "actor"
	contextKeyUserRaw = "userID"
)

// requireAuth resolves the session cookie to a user and stores the actor in
// the request context. API clients get a JSON 401 instead of a redirect.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		raw, ok := session.Values[sessionKeyUserID].(string)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		user, err := s.app.GetUser(c.Request().Context(), userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}

		c.Set(contextKeyActor, domain.Actor{ID: user.ID, Role: user.Role})
		c.Set(contextKeyUserRaw, user.ID)
		return next(c)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.ValidationError("username and password are required")
	}

	user, err := s.app.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return mapDomainError(err)
	}

	session, _ := s.sessionStore.Get(c.Request(), sessionName)
	session.Values[sessionKeyUserID] = user.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleLogout(c echo.Context) error {
	session, _ := s.sessionStore.Get(c.Request(), sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMe(c echo.Context) error {
	actor := actorFromContext(c)
	user, err := s.app.GetUser(c.Request().Context(), actor.ID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleEmployee
	}

	user, err := s.app.CreateUser(c.Request().Context(), req.Username, req.DisplayName, req.Password, role, actorFromContext(c))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.app.ListUsers(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, users)
}
