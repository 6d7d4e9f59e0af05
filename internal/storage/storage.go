package storage

import (
	"context"
	"errors"
	"time"
)

// ErrCredentialsNotFound is returned when no token pair is stored
var ErrCredentialsNotFound = errors.New("credentials not found")

// Credentials is the persisted token pair. Both tokens are created and
// deleted together.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CredentialStore persists the access/refresh token pair
type CredentialStore interface {
	GetCredentials(ctx context.Context) (*Credentials, error)
	SetCredentials(ctx context.Context, creds *Credentials) error
	DeleteCredentials(ctx context.Context) error
}

// FlagStore persists session flags. Values are the cookie values mirrored
// into the HTTP cookie jar.
type FlagStore interface {
	GetFlags(ctx context.Context) (map[string]string, error)
	SetFlag(ctx context.Context, name, value string) error
	DeleteFlags(ctx context.Context, names ...string) error
}

// Storage combines everything the session layer needs
type Storage interface {
	CredentialStore
	FlagStore
	Close() error
}

// ProfileLister is implemented by stores that hold more than one profile
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]string, error)
}

func copyCredentials(c *Credentials) *Credentials {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
