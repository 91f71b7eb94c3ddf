// Package session holds the participant's API credentials. A Session is passed
// explicitly to whatever talks to the remote API; nothing reads tokens from ambient state.
package session

import (
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

var (
	ErrNoSession = errors.New("not logged in")
)

type (
	// Tokens is the canonical token pair issued by the API.
	Tokens struct {
		Access  string `json:"access" yaml:"access"`
		Refresh string `json:"refresh" yaml:"refresh"`
	}

	// Claims are the access token claims the portal cares about.
	Claims struct {
		jwt.StandardClaims
		TokenType string `json:"token_type,omitempty"`
		UserID    int    `json:"user_id,omitempty"`
		FullName  string `json:"nama_lengkap,omitempty"`
		Role      string `json:"role,omitempty"`
	}

	Session struct {
		mu     sync.RWMutex
		tokens Tokens
	}

	// Store persists a Session between runs.
	Store interface {
		Load() (*Session, error) // ErrNoSession if nothing is stored
		Save(sess *Session) error
		Clear() error
	}
)

func New(tokens Tokens) *Session {
	return &Session{tokens: tokens}
}

func (s *Session) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

func (s *Session) AccessToken() string  { return s.Tokens().Access }
func (s *Session) RefreshToken() string { return s.Tokens().Refresh }

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccessToken() != ""
}

// SetAccessToken replaces the access token after a refresh.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	s.tokens.Access = token
	s.mu.Unlock()
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
}

// Claims decodes the access token without verifying its signature; only the API can do that.
func (s *Session) Claims() (*Claims, error) {
	token := s.AccessToken()
	if token == "" {
		return nil, ErrNoSession
	}
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parsing access token")
	}
	return claims, nil
}

// Expired reports whether the access token is known to be expired at `now`.
// Tokens that cannot be decoded are left for the API to judge.
func (s *Session) Expired(now time.Time) bool {
	claims, err := s.Claims()
	if err != nil {
		return errors.Cause(err) == ErrNoSession
	}
	return claims.ExpiresAt != 0 && now.Unix() >= claims.ExpiresAt
}
