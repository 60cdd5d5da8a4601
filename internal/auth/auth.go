// Package auth resolves which user owns the current planning session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated is returned when an operation needs a user and none is signed in.
	ErrUnauthenticated = errors.New("auth: no authenticated user")
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// User is the authenticated identity that plans are stored under.
type User struct {
	ID   string
	Name string
}

// Authenticator exposes the current user. WaitForReady blocks until the
// sign-in state is known and returns nil when nobody is signed in.
type Authenticator interface {
	CurrentUser() *User
	WaitForReady(ctx context.Context) (*User, error)
}

// RequireUser waits for a and fails with ErrUnauthenticated when nobody is signed in.
func RequireUser(ctx context.Context, a Authenticator) (*User, error) {
	u, err := a.WaitForReady(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// Static is always ready with a fixed user. Used by the CLI.
type Static struct {
	User *User
}

// NewStatic signs in userID. An empty ID yields an anonymous session.
func NewStatic(userID string) *Static {
	if userID == "" {
		return &Static{}
	}
	return &Static{User: &User{ID: userID, Name: userID}}
}

func (s *Static) CurrentUser() *User { return s.User }

func (s *Static) WaitForReady(ctx context.Context) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.User, nil
}

// Claims carried by session tokens.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID valid for ttl.
func IssueToken(secret []byte, userID, name string, ttl time.Duration, now time.Time) (string, error) {
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// TokenVerifier checks HS256 session tokens.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret, now: time.Now}
}

// Verify parses token and returns its user.
func (v *TokenVerifier) Verify(token string) (*User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return &User{ID: claims.Subject, Name: name}, nil
}

// TokenSession becomes ready once a token has been presented or the
// session has been explicitly signed out.
type TokenSession struct {
	verifier *TokenVerifier

	mu    sync.RWMutex
	user  *User
	ready chan struct{}
	once  sync.Once
}

// NewTokenSession creates a session that is not ready yet.
func NewTokenSession(v *TokenVerifier) *TokenSession {
	return &TokenSession{verifier: v, ready: make(chan struct{})}
}

// SignIn verifies token and marks the session ready. A rejected token
// leaves the session signed out but still ready.
func (s *TokenSession) SignIn(token string) (*User, error) {
	u, err := s.verifier.Verify(token)
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })
	return u, err
}

// SignOut clears the user and marks the session ready.
func (s *TokenSession) SignOut() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })
}

func (s *TokenSession) CurrentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *TokenSession) WaitForReady(ctx context.Context) (*User, error) {
	select {
	case <-s.ready:
		return s.CurrentUser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
