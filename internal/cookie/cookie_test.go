package cookie

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJar_SetGetClear(t *testing.T) {
	jar, err := NewJar()
	require.NoError(t, err)

	u, _ := url.Parse("http://localhost:3001/api")

	_, ok := Get(jar, u, Verified)
	assert.False(t, ok)

	Set(jar, u, Verified, "true")
	Set(jar, u, SessionToken, "abc")

	v, ok := Get(jar, u, Verified)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	Clear(jar, u, Verified)
	_, ok = Get(jar, u, Verified)
	assert.False(t, ok)

	v, ok = Get(jar, u, SessionToken)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestClearAuth(t *testing.T) {
	jar, err := NewJar()
	require.NoError(t, err)
	u, _ := url.Parse("https://api.example.com")

	for _, name := range AuthNames {
		Set(jar, u, name, "x")
	}
	assert.Len(t, jar.Cookies(u), len(AuthNames))

	ClearAuth(jar, u)
	assert.Empty(t, jar.Cookies(u))
}

func TestSecureCookieNotSentOverHTTP(t *testing.T) {
	jar, err := NewJar()
	require.NoError(t, err)

	secure, _ := url.Parse("https://api.example.com")
	plain, _ := url.Parse("http://api.example.com")

	Set(jar, secure, SessionToken, "s")
	_, ok := Get(jar, plain, SessionToken)
	assert.False(t, ok)
	_, ok = Get(jar, secure, SessionToken)
	assert.True(t, ok)
}
