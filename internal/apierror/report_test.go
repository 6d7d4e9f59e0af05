package apierror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dgellow/finfront/internal/notify"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	got []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) {
	r.got = append(r.got, n)
}

func (r *recorder) messages() []string {
	var out []string
	for _, n := range r.got {
		out = append(out, n.Message)
	}
	return out
}

func TestReport_OneNotificationPerMessage(t *testing.T) {
	r := &recorder{}
	Report(context.Background(), r, NewLocalizer("en"), fakeStatusError{status: 400, body: `{"messages": ["a", "b"]}`})

	assert.Equal(t, []string{"a", "b"}, r.messages())
	for _, n := range r.got {
		assert.Equal(t, notify.LevelError, n.Level)
	}
}

func TestReport_Fallback(t *testing.T) {
	l := NewLocalizer("en")

	r := &recorder{}
	Report(context.Background(), r, l, fakeStatusError{status: 400, body: `{"weird": true}`})
	assert.Equal(t, []string{l.ForKind(KindValidation)}, r.messages())

	r = &recorder{}
	Report(context.Background(), r, l, errors.New("boom"))
	assert.Equal(t, []string{l.Message(MsgFallback)}, r.messages())
}

func TestReport_SkipsSessionExpired(t *testing.T) {
	r := &recorder{}
	Report(context.Background(), r, NewLocalizer("en"), fmt.Errorf("listing: %w", ErrSessionExpired))
	Report(context.Background(), r, NewLocalizer("en"), nil)
	assert.Empty(t, r.got)
}
