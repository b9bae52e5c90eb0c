package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/conorfennell/knolboard/internal/domain"
)

const loginRoute = "/auth/login"

// Login exchanges a username and password for a bearer token using the
// OAuth2 password grant, stores it, and confirms the account is active.
func (c *Client) Login(ctx context.Context, username, password string) (domain.User, error) {
	const op = "login"
	if username == "" || password == "" {
		return domain.User{}, &Error{Op: op, Kind: ErrValidation, Message: "username and password are required"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.User{}, &Error{Op: op, Kind: ErrNetworkFailure, Err: err}
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL.JoinPath(loginRoute).String(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	start := time.Now()
	tok, err := conf.PasswordCredentialsToken(context.WithValue(ctx, oauth2.HTTPClient, c.http), username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			status := re.Response.StatusCode
			kind := kindForStatus(status)
			c.metrics.ObserveRequest(http.MethodPost, loginRoute, status, start)
			c.metrics.ObserveError(http.MethodPost, loginRoute, kindLabel(kind))
			return domain.User{}, &Error{Op: op, Kind: kind, Status: status, Message: errorMessage(re.Body)}
		}
		c.metrics.ObserveRequest(http.MethodPost, loginRoute, 0, start)
		c.metrics.ObserveError(http.MethodPost, loginRoute, kindLabel(ErrNetworkFailure))
		return domain.User{}, &Error{Op: op, Kind: ErrNetworkFailure, Err: err}
	}
	c.metrics.ObserveRequest(http.MethodPost, loginRoute, http.StatusOK, start)

	if err := c.tokens.SaveToken(ctx, username, tok.AccessToken); err != nil {
		return domain.User{}, fmt.Errorf("failed to store session: %w", err)
	}

	user, err := c.Me(ctx)
	if err != nil {
		c.discardToken(ctx)
		return domain.User{}, err
	}
	if !user.IsActive {
		c.discardToken(ctx)
		return user, ErrAccountInactive
	}
	c.logger.Info("logged in", "username", user.Username)
	return user, nil
}

// Logout forgets the stored token. The backend keeps no server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.ClearToken(ctx)
}

func (c *Client) discardToken(ctx context.Context) {
	if err := c.tokens.ClearToken(ctx); err != nil {
		c.logger.Warn("failed to clear session", "error", err)
	}
}

// Registration is the payload for creating an account. New accounts wait for
// admin approval before they can log in.
type Registration struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name,omitempty"`
}

// Register creates a new, inactive account.
func (c *Client) Register(ctx context.Context, reg Registration) (domain.User, error) {
	var w wireUser
	if err := c.do(ctx, "register", request{method: http.MethodPost, route: "/users/", body: reg}, &w); err != nil {
		return domain.User{}, err
	}
	return decodeOne("register", w.toDomain)
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var w wireUser
	if err := c.do(ctx, "get current user", request{method: http.MethodGet, route: "/users/me"}, &w); err != nil {
		return domain.User{}, err
	}
	return decodeOne("get current user", w.toDomain)
}

// ProfileUpdate changes the current user's profile. Empty fields are left alone.
type ProfileUpdate struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Bio      string `json:"bio,omitempty"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// UpdateMe updates the current user's profile.
func (c *Client) UpdateMe(ctx context.Context, upd ProfileUpdate) (domain.User, error) {
	var w wireUser
	if err := c.do(ctx, "update current user", request{method: http.MethodPut, route: "/users/me", body: upd}, &w); err != nil {
		return domain.User{}, err
	}
	return decodeOne("update current user", w.toDomain)
}

// decodeOne converts a decoded payload and reports conversion problems as server failures.
func decodeOne[D any](op string, fn func() (D, error)) (D, error) {
	d, err := fn()
	if err != nil {
		var zero D
		return zero, &Error{Op: op, Kind: ErrServer, Message: "malformed response", Err: err}
	}
	return d, nil
}

func malformed(op string, err error) error {
	return &Error{Op: op, Kind: ErrServer, Message: "malformed response", Err: err}
}
