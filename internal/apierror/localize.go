package apierror

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys
const (
	MsgFallback       = "error.fallback"
	MsgSessionExpired = "session.expired"
)

var supported = []language.Tag{language.English, language.Vietnamese}

var translations = map[string][2]string{
	string(KindNetwork):        {"Cannot reach the server. Check your connection.", "Không thể kết nối tới máy chủ. Vui lòng kiểm tra kết nối mạng."},
	string(KindServer):         {"The server ran into a problem. Please try again later.", "Máy chủ gặp sự cố. Vui lòng thử lại sau."},
	string(KindValidation):     {"The request was rejected. Please check your input.", "Yêu cầu không hợp lệ. Vui lòng kiểm tra lại thông tin."},
	string(KindAuthentication): {"Please sign in to continue.", "Vui lòng đăng nhập để tiếp tục."},
	string(KindAuthorization):  {"You do not have permission to do that.", "Bạn không có quyền thực hiện thao tác này."},
	string(KindNotFound):       {"The requested item was not found.", "Không tìm thấy dữ liệu yêu cầu."},
	string(KindTimeout):        {"The request timed out. Please try again.", "Yêu cầu đã hết thời gian chờ. Vui lòng thử lại."},
	string(KindUnknown):        {"Something went wrong. Please try again.", "Đã xảy ra lỗi. Vui lòng thử lại."},
	MsgFallback:                {"Something went wrong. Please try again.", "Đã xảy ra lỗi. Vui lòng thử lại."},
	MsgSessionExpired:          {"Your session has expired. Please sign in again.", "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại."},
}

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, tr := range translations {
		for i, tag := range supported {
			if err := b.SetString(tag, key, tr[i]); err != nil {
				panic(fmt.Sprintf("apierror: catalog entry %s/%s: %v", tag, key, err))
			}
		}
	}
	return b
}

// Localizer renders user-facing messages in the active locale
type Localizer struct {
	mu      sync.RWMutex
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer creates a localizer for locale, falling back to English
func NewLocalizer(locale string) *Localizer {
	l := &Localizer{}
	l.SetLocale(locale)
	return l
}

// SetLocale switches the active locale
func (l *Localizer) SetLocale(locale string) {
	tag := match(locale)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tag = tag
	l.printer = message.NewPrinter(tag, message.Catalog(messages))
}

// Locale returns the active locale as a BCP 47 tag, e.g. "vi"
func (l *Localizer) Locale() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tag.String()
}

// Message returns the localized text for key
func (l *Localizer) Message(key string) string {
	l.mu.RLock()
	p := l.printer
	l.mu.RUnlock()
	return p.Sprintf(key)
}

// ForKind returns the localized text for a failure category
func (l *Localizer) ForKind(k Kind) string {
	if _, ok := translations[string(k)]; !ok {
		return l.Message(MsgFallback)
	}
	return l.Message(string(k))
}

var matcher = language.NewMatcher(supported)

func match(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}
