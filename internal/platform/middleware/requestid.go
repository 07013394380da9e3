package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/acil/er-desk/pkg/erclient"
)

const RequestIDHeader = erclient.RequestIDHeader

// RequestID assigns every request an id, reusing an inbound X-Request-ID when
// present. The id is stored on the echo context as "request_id", echoed in
// the response, and placed on the request context so backend calls made
// while serving the request carry the same id.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.New().String()
			}

			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			c.SetRequest(req.WithContext(erclient.WithRequestID(req.Context(), rid)))

			return next(c)
		}
	}
}
