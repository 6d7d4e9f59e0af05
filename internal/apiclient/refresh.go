package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/metrics"
	"github.com/dgellow/finfront/internal/session"
	"github.com/dgellow/finfront/internal/urlutil"
	"golang.org/x/oauth2"
)

var (
	errNoRefreshCredential = errors.New("no stored token to refresh with")
	errRefreshBlocked      = errors.New("token refresh already attempted in this episode")
	errNoAccessToken       = errors.New("refresh response carried no access token")
)

// refresh returns a usable token for a request that was sent with sent and
// rejected. Concurrent callers share one network refresh. An early refresh
// runs before any rejection and does not use up the episode's attempt.
func (c *Client) refresh(ctx context.Context, sent *oauth2.Token, early bool) (*oauth2.Token, error) {
	v, err, shared := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), sent, early)
	})
	if err != nil {
		return nil, err
	}
	log.LogTraceWithFields("apiclient", "Token refresh result received", map[string]any{
		"shared": shared,
	})
	return v.(*oauth2.Token), nil
}

func (c *Client) doRefresh(ctx context.Context, sent *oauth2.Token, early bool) (*oauth2.Token, error) {
	// Another request refreshed (or signed in) after this one was sent
	current, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil && (sent == nil || current.AccessToken != sent.AccessToken) {
		return current, nil
	}

	if !c.state.TryBeginRefresh() {
		c.metrics.ObserveRefresh(metrics.RefreshSkipped)
		return nil, errRefreshBlocked
	}

	tok, err := c.fetchToken(ctx)
	if early {
		c.state.CancelRefresh()
	} else {
		c.state.EndRefresh(err == nil)
	}
	if err != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return nil, err
	}

	c.metrics.ObserveRefresh(metrics.RefreshOK)
	log.LogDebugWithFields("apiclient", "Access token refreshed", map[string]any{
		"expiry": tok.Expiry,
	})
	return tok, nil
}

// fetchToken calls the verify endpoint with the refresh token (or the
// access token when no refresh token is stored) and stores the result
func (c *Client) fetchToken(ctx context.Context) (*oauth2.Token, error) {
	stored, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errNoRefreshCredential
	}

	credential := stored.RefreshToken
	if credential == "" {
		credential = stored.AccessToken
	}

	req := &Request{Method: http.MethodGet, Path: c.endpoints.VerifyToken}
	u, err := urlutil.Resolve(c.baseURL, req.Path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req.Method, u, nil, nil, &oauth2.Token{AccessToken: credential, TokenType: "Bearer"})
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0)
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	c.metrics.ObserveRequest(req.Method, resp.Status)

	if resp.Status < 200 || resp.Status >= 300 {
		return nil, fmt.Errorf("refresh rejected: %w", newHTTPError(req, resp.Status, resp.Body))
	}

	pair := decodeTokenPair(resp.Body)
	if pair.AccessToken == "" {
		return nil, errNoAccessToken
	}
	if err := c.session.SaveAccessToken(ctx, pair); err != nil {
		return nil, fmt.Errorf("storing refreshed token: %w", err)
	}
	if err := c.session.AcceptCookies(ctx, resp.cookies); err != nil {
		log.LogWarnWithFields("apiclient", "Failed to store refresh cookies", map[string]any{
			"error": err.Error(),
		})
	}

	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, errNoAccessToken
	}
	return tok, nil
}

// refreshIfExpiring refreshes ahead of time when the stored token's known
// expiry falls within the configured window. Failures are left for the
// regular 401 path.
func (c *Client) refreshIfExpiring(ctx context.Context) {
	tok, err := c.token(ctx)
	if err != nil || tok == nil || tok.Expiry.IsZero() {
		return
	}
	if time.Until(tok.Expiry) > c.refreshBeforeExpiry {
		return
	}

	log.LogDebugWithFields("apiclient", "Access token close to expiry, refreshing", map[string]any{
		"expiry": tok.Expiry,
	})
	if _, err := c.refresh(ctx, tok, true); err != nil {
		log.LogWarnWithFields("apiclient", "Early token refresh failed", map[string]any{
			"error": err.Error(),
		})
	}
}

type tokenSource struct {
	ctx context.Context
	c   *Client
}

// Token returns the stored token, refreshing it when it has expired
func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.c.token(s.ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, session.ErrNoSession
	}
	if tok.Valid() {
		return tok, nil
	}
	return s.c.refresh(s.ctx, tok, true)
}

// TokenSource exposes the stored credentials as an oauth2.TokenSource
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: ctx, c: c})
}
