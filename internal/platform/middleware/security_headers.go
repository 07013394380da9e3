package middleware

import (
	"github.com/labstack/echo/v4"
)

var baseSecurityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":         "no-referrer",
	// Appointment details and notes carry patient data.
	"Cache-Control": "no-store",
}

// SecurityHeaders sets hardening headers on every response. HSTS is only
// sent when hsts is true, i.e. when the desk is served over TLS in
// production.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for k, v := range baseSecurityHeaders {
				h.Set(k, v)
			}
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			return next(c)
		}
	}
}
