package erclient

import (
	"encoding/base64"
	"net/http"
)

// Credentials are the Basic-auth username/password pair of a session.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both fields are set.
func (c *Credentials) Complete() bool {
	return c != nil && c.Username != "" && c.Password != ""
}

// BuildAuthHeader returns the Authorization header for creds. Incomplete or
// nil credentials yield an empty header set; the request then goes out
// unauthenticated.
func BuildAuthHeader(creds *Credentials) http.Header {
	h := http.Header{}
	if !creds.Complete() {
		return h
	}
	token := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	h.Set("Authorization", "Basic "+token)
	return h
}
