// Package upstream relays ER backend failures to BFF clients.
package upstream

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/acil/er-desk/pkg/erclient"
)

// Respond writes err to the client when it came from the backend: the
// backend's status code with its payload, or 502 when the backend could not
// be reached. Any other error becomes a 500.
func Respond(c echo.Context, err error) error {
	e, ok := erclient.AsError(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := e.Status
	if status == 0 || status < 400 {
		// Unreachable backend, or a 2xx body we could not decode.
		status = http.StatusBadGateway
	}
	return c.JSONBlob(status, e.Body())
}
