// Package auth holds the session credentials injected into the API client.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DevToken is the token used when authentication is bypassed in development.
const DevToken = "dev-token"

// Invalidation reasons.
const (
	ReasonMissing      = "missing"
	ReasonExpired      = "expired"
	ReasonUnauthorized = "unauthorized"
	ReasonLogout       = "logout"
)

// User is the authenticated account as reported by the API.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// Credentials is the current session's bearer token and user. Invalidate is
// the only way a token is dropped; every drop notifies OnInvalidate hooks.
// Safe for concurrent use.
type Credentials struct {
	mu    sync.RWMutex
	token string
	user  *User
	hooks []func(reason string)
	now   func() time.Time
}

// New returns credentials holding token, which may be empty.
func New(token string) *Credentials {
	return &Credentials{token: token, now: time.Now}
}

// Set stores a fresh token and user after login.
func (c *Credentials) Set(token string, user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.user = user
}

// SetUser records the authenticated user.
func (c *Credentials) SetUser(user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// User returns the authenticated user, if known.
func (c *Credentials) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Token returns the bearer token. A JWT whose exp claim has passed counts as
// absent and invalidates the session. Opaque tokens never expire here; the
// server is the authority on validity.
func (c *Credentials) Token() (string, bool) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return "", false
	}
	if exp, ok := expiry(token); ok && !c.now().Before(exp) {
		c.Invalidate(ReasonExpired)
		return "", false
	}
	return token, true
}

// Valid reports whether a usable token is present.
func (c *Credentials) Valid() bool {
	_, ok := c.Token()
	return ok
}

// OnInvalidate registers fn to run whenever the session is invalidated.
func (c *Credentials) OnInvalidate(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Invalidate drops the token and user and notifies hooks.
func (c *Credentials) Invalidate(reason string) {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	hooks := append([]func(string){}, c.hooks...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(reason)
	}
}

// expiry reads the exp claim without verifying the signature; the server
// holds the key.
func expiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
