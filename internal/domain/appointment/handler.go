package appointment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/acil/er-desk/internal/domain/session"
	"github.com/acil/er-desk/internal/platform/upstream"
	"github.com/acil/er-desk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments/today", h.ListToday)
	api.GET("/appointments/next", h.NextWaiting)
	api.GET("/appointments/:id", h.GetView)
	api.PATCH("/appointments/:id/status", h.UpdateStatus)
}

// ParseID reads the numeric :id path parameter.
func ParseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// RespondError maps service errors to HTTP responses.
func RespondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return upstream.Respond(c, err)
}

func (h *Handler) GetView(c echo.Context) error {
	id, err := ParseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetView(c.Request().Context(), id, session.CredentialsFrom(c))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListToday(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, err := h.svc.ListToday(c.Request().Context(), c.QueryParam("status"), session.CredentialsFrom(c))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pg))
}

func (h *Handler) NextWaiting(c echo.Context) error {
	n, err := h.svc.NextWaiting(c.Request().Context(), session.CredentialsFrom(c))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := ParseID(c)
	if err != nil {
		return err
	}
	status := c.QueryParam("status")
	if status == "" {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		status = body.Status
	}
	sc, err := h.svc.UpdateStatus(c.Request().Context(), id, status, session.CredentialsFrom(c))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(http.StatusOK, sc)
}
