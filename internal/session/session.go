package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/dgellow/finfront/internal/cookie"
	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrNoSession is returned by Token when nothing is stored
var ErrNoSession = errors.New("not signed in")

// TokenPair is what the sign-in and verify endpoints hand out
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Manager keeps the stored token pair and the auth cookies in step.
// Cookies live in the jar used for backend requests and are mirrored into
// the store so they survive restarts.
type Manager struct {
	store   storage.Storage
	jar     http.CookieJar
	baseURL *url.URL
}

// NewManager creates a manager and restores persisted cookies into jar
func NewManager(ctx context.Context, store storage.Storage, jar http.CookieJar, baseURL *url.URL) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if jar == nil {
		var err error
		if jar, err = cookie.NewJar(); err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
	}

	m := &Manager{store: store, jar: jar, baseURL: baseURL}

	flags, err := store.GetFlags(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading session flags: %w", err)
	}
	for name, value := range flags {
		cookie.Set(jar, baseURL, name, value)
	}
	if len(flags) > 0 {
		log.LogDebugWithFields("session", "Restored session cookies", map[string]any{
			"count": len(flags),
		})
	}
	return m, nil
}

// Jar returns the cookie jar to attach to the HTTP client
func (m *Manager) Jar() http.CookieJar {
	return m.jar
}

// Token returns the stored credentials as an oauth2 token
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	creds, err := m.store.GetCredentials(ctx)
	if errors.Is(err, storage.ErrCredentialsNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	tokenType := creds.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  creds.AccessToken,
		TokenType:    tokenType,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.ExpiresAt,
	}, nil
}

// SaveSignIn replaces any previous session with pair and marks it verified
func (m *Manager) SaveSignIn(ctx context.Context, pair TokenPair) error {
	if pair.AccessToken == "" {
		return fmt.Errorf("sign-in response carried no access token")
	}
	if err := m.Clear(ctx); err != nil {
		return err
	}

	if err := m.store.SetCredentials(ctx, &storage.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    TokenExpiry(pair.AccessToken),
	}); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}

	return m.MarkVerified(ctx)
}

// SaveAccessToken stores a refreshed access token. An empty refresh token
// keeps the one already stored.
func (m *Manager) SaveAccessToken(ctx context.Context, pair TokenPair) error {
	if pair.AccessToken == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	refresh := pair.RefreshToken
	if refresh == "" {
		creds, err := m.store.GetCredentials(ctx)
		if err != nil && !errors.Is(err, storage.ErrCredentialsNotFound) {
			return fmt.Errorf("reading credentials: %w", err)
		}
		if creds != nil {
			refresh = creds.RefreshToken
		}
	}

	if err := m.store.SetCredentials(ctx, &storage.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    TokenExpiry(pair.AccessToken),
	}); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}

// MarkVerified sets the isVerified flag
func (m *Manager) MarkVerified(ctx context.Context) error {
	return m.SetCookie(ctx, cookie.Verified, "true")
}

// IsVerified reports whether the isVerified flag is set
func (m *Manager) IsVerified() bool {
	v, ok := cookie.Get(m.jar, m.baseURL, cookie.Verified)
	return ok && v == "true"
}

// SetCookie sets an auth cookie in the jar and persists it
func (m *Manager) SetCookie(ctx context.Context, name, value string) error {
	cookie.Set(m.jar, m.baseURL, name, value)
	if err := m.store.SetFlag(ctx, name, value); err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	return nil
}

// AcceptCookies applies cookies from a backend response to the jar and
// mirrors auth cookies into the store
func (m *Manager) AcceptCookies(ctx context.Context, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	m.jar.SetCookies(m.baseURL, cookies)

	var removed []string
	for _, c := range cookies {
		if !slices.Contains(cookie.AuthNames, c.Name) {
			continue
		}
		if c.MaxAge < 0 || c.Value == "" {
			removed = append(removed, c.Name)
			continue
		}
		if err := m.store.SetFlag(ctx, c.Name, c.Value); err != nil {
			return fmt.Errorf("storing %s: %w", c.Name, err)
		}
	}
	if len(removed) > 0 {
		if err := m.store.DeleteFlags(ctx, removed...); err != nil {
			return fmt.Errorf("deleting session flags: %w", err)
		}
	}
	return nil
}

// Clear removes stored tokens and every auth cookie
func (m *Manager) Clear(ctx context.Context) error {
	cookie.ClearAuth(m.jar, m.baseURL)

	var errs []error
	if err := m.store.DeleteCredentials(ctx); err != nil {
		errs = append(errs, fmt.Errorf("deleting credentials: %w", err))
	}
	if err := m.store.DeleteFlags(ctx, cookie.AuthNames...); err != nil {
		errs = append(errs, fmt.Errorf("deleting session flags: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.LogTraceWithFields("session", "Session cleared", nil)
	return nil
}

// TokenExpiry reads the exp claim of a JWT access token without verifying
// it. Opaque tokens and tokens without exp yield the zero time.
func TokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
