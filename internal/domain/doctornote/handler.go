package doctornote

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/acil/er-desk/internal/domain/appointment"
	"github.com/acil/er-desk/internal/domain/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments/:id/note", h.GetForm)
	api.POST("/appointments/:id/note", h.Submit)
}

func isValidationErr(err error) bool {
	for _, target := range []error{ErrDiagnosisRequired, ErrPlanRequired, ErrInvalidRestDays, ErrInvalidFollowUpDate} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) GetForm(c echo.Context) error {
	id, err := appointment.ParseID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Prefill(c.Request().Context(), id, session.CredentialsFrom(c))
	if err != nil {
		return appointment.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Submit saves the note. markDone defaults to true, matching the form's
// initial state.
func (h *Handler) Submit(c echo.Context) error {
	id, err := appointment.ParseID(c)
	if err != nil {
		return err
	}
	markDone := true
	if v := c.QueryParam("markDone"); v != "" {
		if markDone, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "markDone must be true or false")
		}
	}

	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	saved, err := h.svc.Submit(c.Request().Context(), id, &f, markDone, session.CredentialsFrom(c))
	if err != nil {
		if isValidationErr(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return appointment.RespondError(c, err)
	}
	return c.JSONBlob(http.StatusCreated, saved)
}
