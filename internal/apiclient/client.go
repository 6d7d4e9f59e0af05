// Package apiclient is the authenticated HTTP client for the finance
// backend. It attaches the stored access token and locale to every
// request, recovers from an expired token with one coalesced refresh and
// a replay, and ends the session when recovery is impossible.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dgellow/finfront/internal/apierror"
	"github.com/dgellow/finfront/internal/config"
	"github.com/dgellow/finfront/internal/ioutil"
	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/metrics"
	"github.com/dgellow/finfront/internal/notify"
	"github.com/dgellow/finfront/internal/session"
	"github.com/dgellow/finfront/internal/urlutil"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 << 20

// SessionStore is what the client needs from the session layer
type SessionStore interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	SaveSignIn(ctx context.Context, pair session.TokenPair) error
	SaveAccessToken(ctx context.Context, pair session.TokenPair) error
	AcceptCookies(ctx context.Context, cookies []*http.Cookie) error
	Clear(ctx context.Context) error
	Jar() http.CookieJar
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Session    SessionStore
	HTTPClient *http.Client

	Localizer *apierror.Localizer
	Notifier  notify.Notifier
	Navigator notify.Navigator

	Endpoints           config.Endpoints
	SignInPath          string
	RedirectDelay       time.Duration
	RefreshBeforeExpiry time.Duration

	Metrics *metrics.Metrics
}

// Client issues requests against the backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionStore

	localizer *apierror.Localizer
	notifier  notify.Notifier
	navigator notify.Navigator

	endpoints           config.Endpoints
	signInPath          string
	redirectDelay       time.Duration
	refreshBeforeExpiry time.Duration

	metrics *metrics.Metrics

	state        State
	refreshGroup singleflight.Group

	redirectMu    sync.Mutex
	redirectTimer *time.Timer
}

// Request is one call to the backend. Path is relative to the base URL.
// Body is JSON-encoded unless it is already []byte or json.RawMessage.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any

	replayed bool
}

// RawResponse is a successful response with its body read
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte

	cookies []*http.Cookie
}

// Doer is implemented by Client
type Doer interface {
	Do(ctx context.Context, req *Request) (*RawResponse, error)
}

var _ Doer = (*Client)(nil)

// New creates a client
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute, got %q", opts.BaseURL)
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("session store is required")
	}

	c := &Client{
		baseURL:             opts.BaseURL,
		httpClient:          opts.HTTPClient,
		session:             opts.Session,
		localizer:           opts.Localizer,
		notifier:            opts.Notifier,
		navigator:           opts.Navigator,
		endpoints:           opts.Endpoints,
		signInPath:          opts.SignInPath,
		redirectDelay:       opts.RedirectDelay,
		refreshBeforeExpiry: opts.RefreshBeforeExpiry,
		metrics:             opts.Metrics,
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: config.DefaultTimeout}
	}
	if c.localizer == nil {
		c.localizer = apierror.NewLocalizer(config.DefaultLocale)
	}
	if c.notifier == nil {
		c.notifier = notify.Discard{}
	}
	if c.navigator == nil {
		c.navigator = notify.NewRouteNavigator("/", io.Discard)
	}
	if c.endpoints.SignIn == "" {
		c.endpoints.SignIn = config.DefaultSignInEndpoint
	}
	if c.endpoints.VerifyToken == "" {
		c.endpoints.VerifyToken = config.DefaultVerifyTokenEndpoint
	}
	if c.endpoints.SignOut == "" {
		c.endpoints.SignOut = config.DefaultSignOutEndpoint
	}
	if c.signInPath == "" {
		c.signInPath = config.DefaultSignInPath
	}
	return c, nil
}

// NewFromConfig creates a client from a loaded config
func NewFromConfig(cfg config.Config, sess SessionStore, n notify.Notifier, nav notify.Navigator, m *metrics.Metrics) (*Client, error) {
	return New(Options{
		BaseURL:             cfg.API.BaseURL,
		Session:             sess,
		HTTPClient:          &http.Client{Timeout: cfg.API.Timeout},
		Localizer:           apierror.NewLocalizer(cfg.UI.Locale),
		Notifier:            n,
		Navigator:           nav,
		Endpoints:           cfg.API.Endpoints,
		SignInPath:          cfg.Session.SignInPath,
		RedirectDelay:       cfg.Session.RedirectDelay,
		RefreshBeforeExpiry: cfg.Session.RefreshBeforeExpiry,
		Metrics:             m,
	})
}

// Localizer returns the localizer used for headers and notices
func (c *Client) Localizer() *apierror.Localizer {
	return c.localizer
}

// State returns the current auth state
func (c *Client) State() AuthState {
	return c.state.Current()
}

// ResetSessionState clears the refresh and redirect guards
func (c *Client) ResetSessionState() {
	c.state.Reset()
}

// Close fires a pending redirect immediately
func (c *Client) Close() {
	c.redirectMu.Lock()
	t := c.redirectTimer
	c.redirectTimer = nil
	c.redirectMu.Unlock()

	if t != nil && t.Stop() {
		c.navigator.Navigate(c.signInPath)
	}
}

// Do sends req. Non-2xx responses come back as *HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*RawResponse, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s %s body: %w", req.Method, req.Path, err)
	}
	u, err := urlutil.Resolve(c.baseURL, req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	if c.refreshBeforeExpiry > 0 && !req.replayed && !c.isAuthEndpoint(u) {
		c.refreshIfExpiring(ctx)
	}

	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req.Method, u, body, req.Header, tok)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	c.metrics.ObserveRequest(req.Method, resp.Status)

	if resp.Status >= 200 && resp.Status < 300 {
		c.state.Reset()
		if err := c.afterSuccess(ctx, u, resp); err != nil {
			return nil, err
		}
		return resp, nil
	}

	httpErr := newHTTPError(req, resp.Status, resp.Body)
	if !httpErr.AuthFailure() {
		return nil, httpErr
	}
	return c.recover(ctx, req, u, tok, httpErr)
}

// afterSuccess applies the side effects of sign-in and sign-out
func (c *Client) afterSuccess(ctx context.Context, u *url.URL, resp *RawResponse) error {
	switch {
	case urlutil.HasEndpoint(u, c.baseURL, c.endpoints.SignIn):
		pair := decodeTokenPair(resp.Body)
		if pair.AccessToken == "" {
			log.LogWarnWithFields("apiclient", "Sign-in response carried no access token", map[string]any{
				"status": resp.Status,
			})
			if err := c.session.Clear(ctx); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
		} else if err := c.session.SaveSignIn(ctx, pair); err != nil {
			return fmt.Errorf("saving sign-in: %w", err)
		}
		if err := c.session.AcceptCookies(ctx, resp.cookies); err != nil {
			return fmt.Errorf("saving cookies: %w", err)
		}
		log.LogInfoWithFields("apiclient", "Signed in", map[string]any{
			"refreshToken": pair.RefreshToken != "",
		})

	case urlutil.HasEndpoint(u, c.baseURL, c.endpoints.SignOut):
		if err := c.session.Clear(ctx); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		log.LogInfoWithFields("apiclient", "Signed out", nil)

	default:
		if err := c.session.AcceptCookies(ctx, resp.cookies); err != nil {
			log.LogWarnWithFields("apiclient", "Failed to store response cookies", map[string]any{
				"error": err.Error(),
			})
		}
	}
	return nil
}

// recover handles an authentication failure: refresh and replay once,
// otherwise end the session
func (c *Client) recover(ctx context.Context, req *Request, u *url.URL, sent *oauth2.Token, httpErr *HTTPError) (*RawResponse, error) {
	// Rejected credentials, not an expired session
	if urlutil.HasEndpoint(u, c.baseURL, c.endpoints.SignIn) {
		return nil, httpErr
	}
	if !req.replayed && !c.isAuthEndpoint(u) {
		_, err := c.refresh(ctx, sent, false)
		if err == nil {
			c.metrics.ObserveReplay()
			log.LogDebugWithFields("apiclient", "Replaying request with refreshed token", map[string]any{
				"method": req.Method,
				"path":   req.Path,
			})
			replay := *req
			replay.Header = req.Header.Clone()
			replay.replayed = true
			return c.Do(ctx, &replay)
		}
		log.LogWarnWithFields("apiclient", "Token refresh failed", map[string]any{
			"method": req.Method,
			"path":   req.Path,
			"error":  err.Error(),
		})
	}

	httpErr.sessionExpired = c.endSession(ctx)
	return nil, httpErr
}

// endSession clears credentials, tells the user and schedules the
// redirect to sign-in, once per episode. It reports whether the session
// has been ended, by this call or an earlier one.
func (c *Client) endSession(ctx context.Context) bool {
	if c.onSignInRoute() {
		return false
	}
	if !c.state.TryBeginRedirect() {
		return true
	}

	c.metrics.ObserveSessionExpired()
	log.LogInfoWithFields("apiclient", "Session expired, redirecting to sign-in", map[string]any{
		"from":  c.navigator.CurrentPath(),
		"to":    c.signInPath,
		"delay": c.redirectDelay.String(),
	})

	if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
		log.LogErrorWithFields("apiclient", "Failed to clear session", map[string]any{
			"error": err.Error(),
		})
	}
	c.notifier.Notify(ctx, notify.Notification{
		Level:   notify.LevelWarning,
		Message: c.localizer.Message(apierror.MsgSessionExpired),
	})
	c.scheduleRedirect()
	return true
}

func (c *Client) scheduleRedirect() {
	if c.redirectDelay <= 0 {
		c.navigator.Navigate(c.signInPath)
		return
	}

	c.redirectMu.Lock()
	defer c.redirectMu.Unlock()
	if c.redirectTimer != nil {
		c.redirectTimer.Stop()
	}
	c.redirectTimer = time.AfterFunc(c.redirectDelay, func() {
		c.navigator.Navigate(c.signInPath)
	})
}

func (c *Client) onSignInRoute() bool {
	current, err := url.Parse(c.navigator.CurrentPath())
	if err != nil {
		return false
	}
	return current.Path == c.signInPath
}

func (c *Client) isAuthEndpoint(u *url.URL) bool {
	return urlutil.HasEndpoint(u, c.baseURL, c.endpoints.VerifyToken) ||
		urlutil.HasEndpoint(u, c.baseURL, c.endpoints.SignIn)
}

// token returns the stored token, or nil when signed out
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := c.session.Token(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	return tok, nil
}

func (c *Client) send(ctx context.Context, method string, u *url.URL, body []byte, header http.Header, tok *oauth2.Token) (*RawResponse, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept-Language", c.localizer.Locale())
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(httpReq)
	}
	for _, ck := range c.session.Jar().Cookies(u) {
		httpReq.AddCookie(ck)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAllLimited(resp.Body, maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	log.LogTraceWithFields("apiclient", "Request completed", map[string]any{
		"method":   method,
		"path":     u.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
		"auth":     tok != nil,
	})

	return &RawResponse{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    data,
		cookies: resp.Cookies(),
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// tokenEnvelope accepts {data: {accessToken, refreshToken}} and the same
// fields at the top level
type tokenEnvelope struct {
	Data *session.TokenPair `json:"data"`
	session.TokenPair
}

func decodeTokenPair(body []byte) session.TokenPair {
	var env tokenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return session.TokenPair{}
	}
	if env.Data != nil && env.Data.AccessToken != "" {
		return *env.Data
	}
	return env.TokenPair
}
