package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acil/er-desk/internal/platform/upstream"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login and logout. loginMW guards the login route
// only, e.g. with a rate limiter.
func (h *Handler) RegisterRoutes(api *echo.Group, loginMW ...echo.MiddlewareFunc) {
	api.POST("/login", h.Login, loginMW...)
	api.POST("/logout", h.Logout)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tok, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case err != nil:
		return upstream.Respond(c, err)
	}
	return c.JSON(http.StatusOK, tok)
}

func (h *Handler) Logout(c echo.Context) error {
	token, ok := bearerToken(c.Request())
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.svc.Logout(token); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
