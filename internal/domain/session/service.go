package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/acil/er-desk/pkg/erclient"
)

const tokenIssuer = "er-desk"

// verifyPath is fetched with the submitted credentials to check them.
const verifyPath = "/appointments/today"

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrSessionExpired     = errors.New("session expired or signed out")
)

// Verifier issues an authenticated GET against the backend.
type Verifier interface {
	Get(ctx context.Context, path string, creds *erclient.Credentials, out any) error
}

// Token is handed to the client after a successful login.
type Token struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	store   *Store
	backend Verifier
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewService(store *Store, backend Verifier, secret string, ttl time.Duration) *Service {
	return &Service{
		store:   store,
		backend: backend,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Login checks the credentials against the backend and opens a session.
// The username is trimmed; the password is used as typed.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingCredentials
	}
	creds := erclient.Credentials{Username: username, Password: password}

	if err := s.backend.Get(ctx, verifyPath, &creds, nil); err != nil {
		if erclient.IsStatus(err, http.StatusUnauthorized) || erclient.IsStatus(err, http.StatusForbidden) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	now := s.now()
	sess := &Session{
		ID:          uuid.New().String(),
		Credentials: creds,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.store.Put(sess)
	return &Token{Token: signed, Username: username, ExpiresAt: sess.ExpiresAt}, nil
}

// Resolve validates a session token and returns the live session behind it.
func (s *Service) Resolve(token string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sess, ok := s.store.Get(claims.ID)
	if !ok {
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// Logout closes the session behind token. Unknown sessions are not an error.
func (s *Service) Logout(token string) error {
	sess, err := s.Resolve(token)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil
		}
		return err
	}
	s.store.Delete(sess.ID)
	return nil
}

// RunSweeper drops expired sessions every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.store.Sweep()
		}
	}
}
