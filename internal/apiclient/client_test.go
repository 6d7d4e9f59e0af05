package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgellow/finfront/internal/apierror"
	"github.com/dgellow/finfront/internal/cookie"
	"github.com/dgellow/finfront/internal/metrics"
	"github.com/dgellow/finfront/internal/notify"
	"github.com/dgellow/finfront/internal/session"
	"github.com/dgellow/finfront/internal/storage"
	"github.com/dgellow/finfront/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	backend  *testutil.Backend
	store    *storage.MemoryStorage
	sess     *session.Manager
	notifier *testutil.MockNotifier
	nav      *testutil.MockNavigator
	client   *Client
}

func newHarness(t *testing.T, currentPath string, configure ...func(*Options)) *harness {
	t.Helper()
	ctx := context.Background()

	backend := testutil.NewBackend(t)
	store := storage.NewMemoryStorage()
	base, err := url.Parse(backend.URL)
	require.NoError(t, err)
	sess, err := session.NewManager(ctx, store, nil, base)
	require.NoError(t, err)

	notifier := &testutil.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return()
	nav := &testutil.MockNavigator{}
	nav.On("CurrentPath").Return(currentPath)
	nav.On("Navigate", mock.Anything).Return()

	opts := Options{
		BaseURL:   backend.URL,
		Session:   sess,
		Localizer: apierror.NewLocalizer("vi"),
		Notifier:  notifier,
		Navigator: nav,
		Metrics:   metrics.New(),
	}
	for _, fn := range configure {
		fn(&opts)
	}
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return &harness{backend: backend, store: store, sess: sess, notifier: notifier, nav: nav, client: client}
}

func (h *harness) signIn(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, h.sess.SaveSignIn(context.Background(), session.TokenPair{AccessToken: access, RefreshToken: refresh}))
}

func (h *harness) storedToken(t *testing.T) string {
	t.Helper()
	tok, err := h.sess.Token(context.Background())
	if errors.Is(err, session.ErrNoSession) {
		return ""
	}
	require.NoError(t, err)
	return tok.AccessToken
}

// acceptOnly answers 200 for the accepted bearer token and 401 with the
// token-expired code otherwise
func acceptOnly(accepted *atomic.Value) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+accepted.Load().(string) {
			testutil.WriteJSON(w, http.StatusOK, testutil.Data([]map[string]any{{"id": "u1"}}))
			return
		}
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"errorCode": 112, "message": "jwt expired"})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url"})
	assert.ErrorContains(t, err, "base URL must be absolute")

	_, err = New(Options{BaseURL: "https://api.example.com"})
	assert.ErrorContains(t, err, "session store is required")
}

func TestDo_RequestHeaders(t *testing.T) {
	h := newHarness(t, "/transactions")
	h.backend.Handle("/", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(nil))
	})
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		_, err := h.client.Do(ctx, &Request{Path: "/users"})
		require.NoError(t, err)

		reqs := h.backend.RequestsTo("/users")
		require.Len(t, reqs, 1)
		_, present := reqs[0].Header["Authorization"]
		assert.False(t, present)
		assert.Equal(t, "vi", reqs[0].Header.Get("Accept-Language"))
		assert.Empty(t, reqs[0].Header.Get("Content-Type"))
	})

	t.Run("with token", func(t *testing.T) {
		h.signIn(t, "tok1", "ref1")
		_, err := h.client.Do(ctx, &Request{Method: http.MethodPost, Path: "/transactions", Body: map[string]any{"amount": "12.50"}})
		require.NoError(t, err)

		reqs := h.backend.RequestsTo("/transactions")
		require.Len(t, reqs, 1)
		assert.Equal(t, "Bearer tok1", reqs[0].Header.Get("Authorization"))
		assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
		assert.JSONEq(t, `{"amount": "12.50"}`, string(reqs[0].Body))
	})
}

func TestDo_RefreshAndReplay(t *testing.T) {
	h := newHarness(t, "/users")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")

	var accepted atomic.Value
	accepted.Store("tok2")
	h.backend.Handle("GET /users", acceptOnly(&accepted))
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": "tok2"}))
	})

	resp, err := Get[struct {
		Data []map[string]any `json:"data"`
	}](ctx, h.client, "/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "u1", resp.Payload.Data[0]["id"])

	users := h.backend.RequestsTo("/users")
	require.Len(t, users, 2)
	assert.Equal(t, "Bearer tok1", users[0].Header.Get("Authorization"))
	assert.Equal(t, "Bearer tok2", users[1].Header.Get("Authorization"))

	verify := h.backend.RequestsTo("/auth/verify-token")
	require.Len(t, verify, 1)
	assert.Equal(t, "Bearer ref1", verify[0].Header.Get("Authorization"), "refresh sends the refresh token")

	tok, err := h.sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", tok.AccessToken)
	assert.Equal(t, "ref1", tok.RefreshToken)

	assert.Equal(t, StateIdle, h.client.State())
	h.nav.AssertNotCalled(t, "Navigate", mock.Anything)
	h.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestDo_RefreshFallsBackToAccessToken(t *testing.T) {
	h := newHarness(t, "/users")
	h.signIn(t, "tok1", "")

	var accepted atomic.Value
	accepted.Store("tok2")
	h.backend.Handle("GET /users", acceptOnly(&accepted))
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": "tok2"}))
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	require.NoError(t, err)

	verify := h.backend.RequestsTo("/auth/verify-token")
	require.Len(t, verify, 1)
	assert.Equal(t, "tok1", verify[0].Bearer())
}

func TestDo_TokenExpiredCodeOnNon401(t *testing.T) {
	h := newHarness(t, "/users")
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok2" {
			testutil.WriteJSON(w, http.StatusOK, testutil.Data(nil))
			return
		}
		testutil.WriteJSON(w, http.StatusBadRequest, map[string]any{"errorCode": "112"})
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": "tok2"}))
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	require.NoError(t, err)
	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1)
}

func TestDo_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t, "/users")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")

	var accepted atomic.Value
	accepted.Store("tok2")
	h.backend.Handle("GET /users", acceptOnly(&accepted))
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": "tok2"}))
	})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.client.Do(ctx, &Request{Path: "/users"})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1)
	h.nav.AssertNotCalled(t, "Navigate", mock.Anything)
}

func TestDo_VerifyEndpointUnauthorizedEndsSession(t *testing.T) {
	h := newHarness(t, "/dashboard")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid token"})
	})

	_, err := h.client.Do(ctx, &Request{Path: "/auth/verify-token"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "invalid token", httpErr.Message)
	assert.ErrorIs(t, err, apierror.ErrSessionExpired)

	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1, "no refresh for the verify endpoint")
	assert.Empty(t, h.storedToken(t))
	assert.False(t, h.sess.IsVerified())

	h.nav.AssertCalled(t, "Navigate", "/sign-in")
	h.nav.AssertNumberOfCalls(t, "Navigate", 1)
	assert.Equal(t, []string{apierror.NewLocalizer("vi").Message(apierror.MsgSessionExpired)}, h.notifier.Messages())
	assert.Equal(t, StateRedirecting, h.client.State())
}

func TestDo_RefreshFailureEndsSession(t *testing.T) {
	h := newHarness(t, "/users")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "token expired"})
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "refresh expired"})
	})

	_, err := h.client.Do(ctx, &Request{Path: "/users"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "/users", httpErr.Path, "the original error is returned")
	assert.Equal(t, "token expired", httpErr.Message)
	assert.ErrorIs(t, err, apierror.ErrSessionExpired)

	assert.Len(t, h.backend.RequestsTo("/users"), 1)
	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1)
	assert.Empty(t, h.storedToken(t))
	h.nav.AssertNumberOfCalls(t, "Navigate", 1)
	h.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestDo_RefreshWithoutTokenInBodyEndsSession(t *testing.T) {
	h := newHarness(t, "/users")
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{}))
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	assert.ErrorIs(t, err, apierror.ErrSessionExpired)
	h.nav.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestDo_ReplayUnauthorizedEndsSession(t *testing.T) {
	h := newHarness(t, "/users")
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"errorCode": 112})
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": "tok2"}))
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	assert.ErrorIs(t, err, apierror.ErrSessionExpired)

	assert.Len(t, h.backend.RequestsTo("/users"), 2, "replayed exactly once")
	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1)
	h.nav.AssertNumberOfCalls(t, "Navigate", 1)
}

func TestDo_ConcurrentFailuresRedirectOnce(t *testing.T) {
	h := newHarness(t, "/users")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusUnauthorized)
	})

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.client.Do(ctx, &Request{Path: "/users"})
			assert.ErrorIs(t, err, apierror.ErrSessionExpired)
		}()
	}
	wg.Wait()

	h.nav.AssertNumberOfCalls(t, "Navigate", 1)
	h.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestDo_NoRedirectOnSignInRoute(t *testing.T) {
	h := newHarness(t, "/sign-in")
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/auth/verify-token"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.NotErrorIs(t, err, apierror.ErrSessionExpired)
	assert.Equal(t, "tok1", h.storedToken(t))
	h.nav.AssertNotCalled(t, "Navigate", mock.Anything)
	h.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestDo_RefreshFailureOnSignInRouteLeavesRefreshFailed(t *testing.T) {
	h := newHarness(t, "/sign-in")
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("GET /users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	require.Error(t, err)
	assert.Equal(t, StateRefreshFailed, h.client.State())
	assert.Equal(t, "refresh_failed", h.client.State().String())

	_, err = h.client.Do(context.Background(), &Request{Path: "/users"})
	require.Error(t, err)
	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1, "no second refresh in the same episode")
}

func TestDo_SuccessResetsGuard(t *testing.T) {
	h := newHarness(t, "/users")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")

	var accepted atomic.Value
	accepted.Store("tok2")
	var issued atomic.Int32
	h.backend.Handle("GET /users", acceptOnly(&accepted))
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		next := "tok2"
		if issued.Add(1) > 1 {
			next = "tok3"
		}
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": next}))
	})

	_, err := h.client.Do(ctx, &Request{Path: "/users"})
	require.NoError(t, err)

	// tok2 expires later in an unrelated episode
	accepted.Store("tok3")
	_, err = h.client.Do(ctx, &Request{Path: "/users"})
	require.NoError(t, err)

	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 2)
	assert.Equal(t, "tok3", h.storedToken(t))
}

func TestDo_ResetSessionState(t *testing.T) {
	h := newHarness(t, "/users")
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, _ = h.client.Do(context.Background(), &Request{Path: "/auth/verify-token"})
	assert.Equal(t, StateRedirecting, h.client.State())

	h.client.ResetSessionState()
	assert.Equal(t, StateIdle, h.client.State())
}

func TestDo_SignInReplacesSession(t *testing.T) {
	h := newHarness(t, "/sign-in")
	ctx := context.Background()

	h.signIn(t, "old", "old-refresh")
	require.NoError(t, h.sess.SetCookie(ctx, cookie.CallbackURL, "/budgets"))

	h.backend.Handle("POST /auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: cookie.SessionToken, Value: "nextauth", Path: "/"})
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{
			"accessToken":  "new",
			"refreshToken": "new-refresh",
		}))
	})

	_, err := h.client.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/sign-in",
		Body:   map[string]string{"email": "a@example.com", "password": "pw"},
	})
	require.NoError(t, err)

	tok, err := h.sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
	assert.Equal(t, "new-refresh", tok.RefreshToken)
	assert.True(t, h.sess.IsVerified())

	flags, err := h.store.GetFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		cookie.Verified:     "true",
		cookie.SessionToken: "nextauth",
	}, flags)
}

func TestDo_SignInWithBadPasswordDoesNotRefresh(t *testing.T) {
	h := newHarness(t, "/sign-in")
	h.backend.Handle("POST /auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
	})

	_, err := h.client.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/auth/sign-in", Body: map[string]string{}})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Invalid credentials", httpErr.Message)
	assert.Empty(t, h.backend.RequestsTo("/auth/verify-token"))
}

func TestDo_SignInFailureOffSignInRouteKeepsSession(t *testing.T) {
	h := newHarness(t, "/users")
	h.signIn(t, "tok1", "ref1")
	h.backend.Handle("POST /auth/sign-in", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
	})

	_, err := h.client.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/auth/sign-in", Body: map[string]string{}})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Invalid credentials", httpErr.Message)
	assert.NotErrorIs(t, err, apierror.ErrSessionExpired)
	assert.Equal(t, "tok1", h.storedToken(t))
	assert.Equal(t, StateIdle, h.client.State())
	h.nav.AssertNotCalled(t, "Navigate", mock.Anything)
	h.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestDo_SignOutClearsSession(t *testing.T) {
	h := newHarness(t, "/settings")
	ctx := context.Background()
	h.signIn(t, "tok1", "ref1")
	require.NoError(t, h.sess.SetCookie(ctx, cookie.SessionToken, "nextauth"))

	h.backend.Handle("POST /auth/sign-out", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	})

	_, err := h.client.Do(ctx, &Request{Method: http.MethodPost, Path: "/auth/sign-out"})
	require.NoError(t, err)

	assert.Empty(t, h.storedToken(t))
	flags, err := h.store.GetFlags(ctx)
	require.NoError(t, err)
	assert.Empty(t, flags)
	assert.False(t, h.sess.IsVerified())
}

func TestDo_OtherErrorsAreNormalized(t *testing.T) {
	h := newHarness(t, "/transactions")
	h.signIn(t, "tok1", "ref1")

	h.backend.Handle("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"messages": []string{"a", "b"}})
	})

	_, err := Post[json.RawMessage](context.Background(), h.client, "/transactions", map[string]any{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Status)
	assert.Equal(t, "a", httpErr.Message)
	assert.Equal(t, []string{"a", "b"}, httpErr.Payload.Messages())
	assert.Equal(t, apierror.KindValidation, apierror.Classify(err))
	assert.Empty(t, h.backend.RequestsTo("/auth/verify-token"))
}

func TestDo_NetworkError(t *testing.T) {
	h := newHarness(t, "/transactions")
	h.backend.Close()

	_, err := h.client.Do(context.Background(), &Request{Path: "/transactions"})
	require.Error(t, err)
	assert.Equal(t, apierror.KindNetwork, apierror.Classify(err))
}

func TestDo_RedirectAfterDelay(t *testing.T) {
	navigated := make(chan string, 1)
	nav := notify.NewRouteNavigator("/users", io.Discard)
	nav.OnNavigate(func(path string) { navigated <- path })

	h := newHarness(t, "/users", func(o *Options) {
		o.Navigator = nav
		o.RedirectDelay = 20 * time.Millisecond
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	start := time.Now()
	_, _ = h.client.Do(context.Background(), &Request{Path: "/auth/verify-token"})
	assert.Equal(t, "/users", nav.CurrentPath(), "navigation waits for the delay")

	select {
	case path := <-navigated:
		assert.Equal(t, "/sign-in", path)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("redirect did not happen")
	}
}

func TestClose_FlushesPendingRedirect(t *testing.T) {
	h := newHarness(t, "/users", func(o *Options) {
		o.RedirectDelay = time.Hour
	})
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, _ = h.client.Do(context.Background(), &Request{Path: "/auth/verify-token"})
	h.nav.AssertNotCalled(t, "Navigate", mock.Anything)

	h.client.Close()
	h.nav.AssertCalled(t, "Navigate", "/sign-in")

	h.client.Close()
	h.nav.AssertNumberOfCalls(t, "Navigate", 1)
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return s
}

func TestDo_ProactiveRefresh(t *testing.T) {
	h := newHarness(t, "/users", func(o *Options) {
		o.RefreshBeforeExpiry = time.Minute
	})
	expiring := signedJWT(t, time.Now().Add(30*time.Second))
	fresh := signedJWT(t, time.Now().Add(time.Hour))
	h.signIn(t, expiring, "ref1")

	var accepted atomic.Value
	accepted.Store(fresh)
	h.backend.Handle("GET /users", acceptOnly(&accepted))
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": fresh}))
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	require.NoError(t, err)

	users := h.backend.RequestsTo("/users")
	require.Len(t, users, 1, "refreshed before dispatch, no 401 round trip")
	assert.Equal(t, fresh, users[0].Bearer())
}

func TestDo_FailedEarlyRefreshStillRefreshesOnUnauthorized(t *testing.T) {
	h := newHarness(t, "/users", func(o *Options) {
		o.RefreshBeforeExpiry = time.Minute
	})
	expiring := signedJWT(t, time.Now().Add(30*time.Second))
	fresh := signedJWT(t, time.Now().Add(time.Hour))
	h.signIn(t, expiring, "ref1")

	var accepted atomic.Value
	accepted.Store(fresh)
	h.backend.Handle("GET /users", acceptOnly(&accepted))
	var verifyCalls atomic.Int32
	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		if verifyCalls.Add(1) == 1 {
			testutil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "try again"})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": fresh}))
	})

	_, err := h.client.Do(context.Background(), &Request{Path: "/users"})
	require.NoError(t, err)

	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 2, "early attempt then the 401 refresh")
	users := h.backend.RequestsTo("/users")
	require.Len(t, users, 2)
	assert.Equal(t, expiring, users[0].Bearer())
	assert.Equal(t, fresh, users[1].Bearer())
	assert.Equal(t, fresh, h.storedToken(t))
	assert.Equal(t, StateIdle, h.client.State())
	h.nav.AssertNotCalled(t, "Navigate", mock.Anything)
	h.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestTokenSource(t *testing.T) {
	h := newHarness(t, "/users")
	ctx := context.Background()

	_, err := h.client.TokenSource(ctx).Token()
	assert.ErrorIs(t, err, session.ErrNoSession)

	expired := signedJWT(t, time.Now().Add(-time.Minute))
	fresh := signedJWT(t, time.Now().Add(time.Hour))
	h.signIn(t, expired, "ref1")

	h.backend.Handle("GET /auth/verify-token", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, testutil.Data(map[string]any{"accessToken": fresh}))
	})

	tok, err := h.client.TokenSource(ctx).Token()
	require.NoError(t, err)
	assert.Equal(t, fresh, tok.AccessToken)
	assert.True(t, tok.Valid())
	assert.Len(t, h.backend.RequestsTo("/auth/verify-token"), 1)
}

func TestTypedHelpers(t *testing.T) {
	h := newHarness(t, "/budgets")
	h.backend.Handle("PATCH /budgets/b1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "yes", r.Header.Get("X-Dry-Run"))
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": "b1", "name": "Food"}})
	})
	h.backend.Handle("DELETE /budgets/b1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	type budget struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	resp, err := Patch[struct {
		Data budget `json:"data"`
	}](context.Background(), h.client, "/budgets/b1", map[string]string{"name": "Food"},
		WithQuery(url.Values{"startDate": {"2024-01-01"}}),
		WithHeader("X-Dry-Run", "yes"),
	)
	require.NoError(t, err)
	assert.Equal(t, budget{ID: "b1", Name: "Food"}, resp.Payload.Data)

	del, err := Delete[json.RawMessage](context.Background(), h.client, "/budgets/b1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, del.Status)
	assert.Nil(t, del.Payload)
}
