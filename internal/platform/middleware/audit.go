package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// UsernameKey is the echo context key under which the session middleware
// stores the authenticated username.
const UsernameKey = "username"

// AuditEntry records who touched which appointment, when and how.
type AuditEntry struct {
	Username      string
	AppointmentID string
	Action        string // read, create, update, delete
	IPAddress     string
	Path          string
	Method        string
	Timestamp     time.Time
	RequestID     string
	StatusCode    int
}

// AuditRecorder persists audit entries in addition to the structured log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every access to patient data served under /api/appointments.
// Entries are emitted after the handler ran so the status code is known.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:     time.Now().UTC(),
				Path:          path,
				Method:        req.Method,
				IPAddress:     c.RealIP(),
				StatusCode:    c.Response().Status,
				Action:        httpMethodToAction(req.Method),
				AppointmentID: extractAppointmentID(path),
			}
			if httpErr, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = httpErr.Code
			}
			entry.Username, _ = c.Get(UsernameKey).(string)
			entry.RequestID, _ = c.Get("request_id").(string)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "phi_audit").
				Str("request_id", entry.RequestID).
				Str("username", entry.Username).
				Str("appointment_id", entry.AppointmentID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/appointments")
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractAppointmentID returns the numeric id in /api/appointments/<id>/...,
// or "" for collection paths such as /api/appointments/today.
func extractAppointmentID(path string) string {
	rest := strings.TrimPrefix(path, "/api/appointments/")
	if rest == path || rest == "" {
		return ""
	}
	seg := strings.SplitN(rest, "/", 2)[0]
	for _, r := range seg {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return seg
}
