package ioutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLimited(t *testing.T) {
	t.Run("reads content up to limit", func(t *testing.T) {
		r := strings.NewReader(`{"message":"bad"}`)
		assert.Equal(t, `{"message":"bad"}`, ReadLimited(r, 1024))
	})

	t.Run("truncates at limit", func(t *testing.T) {
		r := strings.NewReader("hello world")
		assert.Equal(t, "hello", ReadLimited(r, 5))
	})

	t.Run("read error returns description", func(t *testing.T) {
		r := &failingReader{err: fmt.Errorf("connection reset")}
		assert.Equal(t, "<unreadable: connection reset>", ReadLimited(r, 1024))
	})
}

func TestReadAllLimited(t *testing.T) {
	body, err := ReadAllLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(body))

	_, err = ReadAllLimited(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = ReadAllLimited(&failingReader{err: fmt.Errorf("eof mid-body")}, 5)
	assert.ErrorContains(t, err, "eof mid-body")
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(_ []byte) (int, error) {
	return 0, r.err
}
