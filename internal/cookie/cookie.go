package cookie

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/dgellow/finfront/internal/log"
	"golang.org/x/net/publicsuffix"
)

// Auth cookie names shared with the backend
const (
	Verified           = "isVerified"
	SessionToken       = "next-auth.session-token"
	SecureSessionToken = "__Secure-next-auth.session-token"
	CSRFToken          = "next-auth.csrf-token"
	CallbackURL        = "next-auth.callback-url"
)

// AuthNames lists every cookie cleared on sign-in, sign-out and session expiry
var AuthNames = []string{
	Verified,
	SessionToken,
	SecureSessionToken,
	CSRFToken,
	CallbackURL,
}

// NewJar creates a cookie jar that scopes cookies with the public suffix list
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// Set stores a cookie for u in the jar
func Set(jar http.CookieJar, u *url.URL, name, value string) {
	secure := u.Scheme == "https"
	jar.SetCookies(u, []*http.Cookie{{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}})

	log.LogTraceWithFields("cookie", "Cookie set", map[string]any{
		"name":   name,
		"host":   u.Host,
		"secure": secure,
	})
}

// Get returns the value the jar would send to u for name
func Get(jar http.CookieJar, u *url.URL, name string) (string, bool) {
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(jar http.CookieJar, u *url.URL, name string) {
	jar.SetCookies(u, []*http.Cookie{{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
}

// ClearAuth removes every auth cookie for u
func ClearAuth(jar http.CookieJar, u *url.URL) {
	for _, name := range AuthNames {
		Clear(jar, u, name)
	}
	log.LogTraceWithFields("cookie", "Auth cookies cleared", map[string]any{
		"host": u.Host,
	})
}
