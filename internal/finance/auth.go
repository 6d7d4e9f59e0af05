package finance

import (
	"context"
	"fmt"

	"github.com/dgellow/finfront/internal/apiclient"
	"github.com/dgellow/finfront/internal/config"
	"github.com/dgellow/finfront/internal/emailutil"
)

// AuthService signs the user in and out. Token persistence happens in the
// API client as a side effect of the sign-in and sign-out calls.
type AuthService struct {
	api       apiclient.Doer
	endpoints config.Endpoints
}

// SignInRequest is the sign-in payload
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResult is what the backend returns on sign-in
type SignInResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

func (s *AuthService) endpoint(path, def string) string {
	if path == "" {
		return def
	}
	return path
}

// SignIn authenticates with email and password
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = emailutil.Normalize(email)
	if err := emailutil.Validate(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	resp, err := apiclient.Post[Envelope[SignInResult]](ctx, s.api,
		s.endpoint(s.endpoints.SignIn, config.DefaultSignInEndpoint),
		SignInRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}

// SignOut ends the session on the backend; local credentials are cleared
// by the API client once the call succeeds
func (s *AuthService) SignOut(ctx context.Context) error {
	_, err := apiclient.Post[Envelope[any]](ctx, s.api,
		s.endpoint(s.endpoints.SignOut, config.DefaultSignOutEndpoint), nil)
	return err
}

// VerifyToken checks the stored token against the backend
func (s *AuthService) VerifyToken(ctx context.Context) error {
	_, err := apiclient.Get[Envelope[any]](ctx, s.api,
		s.endpoint(s.endpoints.VerifyToken, config.DefaultVerifyTokenEndpoint))
	return err
}

// Me returns the signed-in user
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	resp, err := apiclient.Get[Envelope[User]](ctx, s.api, PathMe)
	if err != nil {
		return nil, err
	}
	return &resp.Payload.Data, nil
}
