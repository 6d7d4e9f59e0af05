package apierror

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalizer(t *testing.T) {
	en := NewLocalizer("en-US")
	assert.Equal(t, "en", en.Locale())
	assert.Equal(t, "Your session has expired. Please sign in again.", en.Message(MsgSessionExpired))
	assert.Equal(t, "You do not have permission to do that.", en.ForKind(KindAuthorization))

	vi := NewLocalizer("vi-VN")
	assert.Equal(t, "vi", vi.Locale())
	assert.Equal(t, "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại.", vi.Message(MsgSessionExpired))

	fallback := NewLocalizer("fr")
	assert.Equal(t, "en", fallback.Locale())

	garbage := NewLocalizer("!!")
	assert.Equal(t, "en", garbage.Locale())

	vi.SetLocale("en")
	assert.Equal(t, "en", vi.Locale())
	assert.Equal(t, en.ForKind(Kind("weird")), en.Message(MsgFallback))
}
