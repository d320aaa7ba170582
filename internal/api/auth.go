package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// User is the authenticated account as the backend reports it.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	Token string
	User  User
}

type authResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

func (r authResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// Login exchanges credentials for a bearer token. A 2xx response without a
// token is an invalid response, not a silent anonymous session.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, payload, &resp); err != nil {
		return AuthResult{}, err
	}
	token := resp.token()
	if token == "" {
		return AuthResult{}, fmt.Errorf("%w: login response has no token", ErrInvalidResponse)
	}
	return AuthResult{Token: token, User: resp.User}, nil
}

// RegisterParams are the fields required to create an account.
type RegisterParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, params RegisterParams) (AuthResult, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", nil, params, &resp); err != nil {
		return AuthResult{}, err
	}
	token := resp.token()
	if token == "" {
		return AuthResult{}, fmt.Errorf("%w: register response has no token", ErrInvalidResponse)
	}
	return AuthResult{Token: token, User: resp.User}, nil
}

// Logout invalidates the session server-side. The caller drops the local
// session regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil)
}

// ResetPassword requests a password-reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": strings.TrimSpace(email)}
	return c.do(ctx, http.MethodPost, "/api/reset-password", nil, payload, nil)
}

// Profile loads a user profile.
func (c *Client) Profile(ctx context.Context, userID int64) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", userID), nil, nil, &user)
	return user, err
}

// UpdateProfile saves profile fields and returns the updated record.
func (c *Client) UpdateProfile(ctx context.Context, userID int64, fields map[string]string) (User, error) {
	var user User
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%d", userID), nil, fields, &user)
	return user, err
}
