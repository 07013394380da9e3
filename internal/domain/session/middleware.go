package session

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/acil/er-desk/internal/platform/middleware"
	"github.com/acil/er-desk/pkg/erclient"
)

// CredentialsKey is the echo context key holding *erclient.Credentials.
const CredentialsKey = "credentials"

// publicPaths bypass session resolution.
var publicPaths = map[string]bool{
	"/health":     true,
	"/api/login":  true,
	"/api/logout": true,
}

// Skipper returns true for requests that need no session: public paths, and
// requests that matched no route so they end in a plain 404 or 405.
func Skipper(c echo.Context) bool {
	return publicPaths[c.Path()] || !routed(c)
}

func routed(c echo.Context) bool {
	path, method := c.Path(), c.Request().Method
	if path == "" {
		return false
	}
	for _, r := range c.Echo().Routes() {
		if r.Path == path && r.Method == method {
			return true
		}
	}
	return false
}

// Middleware resolves "Authorization: Bearer <token>" to the session's
// credentials and stores them on the context for the handlers.
func Middleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Skipper(c) {
				return next(c)
			}
			token, ok := bearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
			}
			sess, err := svc.Resolve(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			creds := sess.Credentials
			c.Set(CredentialsKey, &creds)
			c.Set(middleware.UsernameKey, creds.Username)
			return next(c)
		}
	}
}

// CredentialsFrom returns the credentials placed on the context by
// Middleware. It returns nil when there are none, in which case backend calls
// go out unauthenticated.
func CredentialsFrom(c echo.Context) *erclient.Credentials {
	creds, _ := c.Get(CredentialsKey).(*erclient.Credentials)
	return creds
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}
