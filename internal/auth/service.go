// Package auth holds the sign-in flow and the per-request auth context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/inventra/inventra/internal/apiclient"
)

// ErrInvalidCredentials reports a login rejected by the remote API.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service calls the remote login endpoint.
type Service struct {
	client *apiclient.Client
}

// NewService constructs a Service.
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token *string `json:"token" validate:"required,min=1"`
}

// Login exchanges credentials for a bearer token. The request is sent
// without an Authorization header.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := apiclient.Send[loginResponse](ctx, s.client.WithCredentials(nil), http.MethodPost, "/api/auth/login",
		loginRequest{Username: username, Password: password}, "auth.login")
	if err != nil {
		switch apiclient.StatusCode(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return "", fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return "", err
	}
	return *resp.Token, nil
}
