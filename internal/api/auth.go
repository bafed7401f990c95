package api

import (
	"context"
	"net/http"

	"github.com/rendis/flowedit/internal/auth"
)

// LoginRequest is the body of POST /auth/login. Servers accept either the
// email or the username as the identity.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username  string `json:"username,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type authResponse struct {
	Message string     `json:"message,omitempty"`
	Token   string     `json:"token,omitempty"`
	User    *auth.User `json:"user,omitempty"`
}

// Login authenticates and stores the returned token and user in the
// client's credentials.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*auth.User, error) {
	var resp authResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: req, public: true}, &resp); err != nil {
		return nil, err
	}
	c.creds.Set(resp.Token, resp.User)
	return resp.User, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*auth.User, error) {
	var resp authResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: req, public: true}, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Me fetches the authenticated user and records it in the credentials.
func (c *Client) Me(ctx context.Context) (*auth.User, error) {
	var resp authResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &resp); err != nil {
		return nil, err
	}
	c.creds.SetUser(resp.User)
	return resp.User, nil
}

// Logout drops the local credentials. There is no server call.
func (c *Client) Logout() {
	c.creds.Invalidate(auth.ReasonLogout)
}
