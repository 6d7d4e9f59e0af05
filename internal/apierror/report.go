package apierror

import (
	"context"
	"errors"

	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/notify"
)

// Messages returns what Report would show for err
func Messages(l *Localizer, err error) []string {
	if err == nil {
		return nil
	}
	var se StatusError
	if errors.As(err, &se) {
		if msgs := se.ErrorPayload().Messages(); len(msgs) > 0 {
			return msgs
		}
	}
	return []string{l.ForKind(Classify(err))}
}

// Report shows each backend message as its own error notification, or one
// localized fallback when the body had none. Session expiry has already
// been announced and is skipped.
func Report(ctx context.Context, n notify.Notifier, l *Localizer, err error) {
	if err == nil || errors.Is(err, ErrSessionExpired) {
		return
	}

	log.LogDebugWithFields("apierror", "Reporting error", map[string]any{
		"kind":  string(Classify(err)),
		"error": err.Error(),
	})

	for _, msg := range Messages(l, err) {
		n.Notify(ctx, notify.Notification{Level: notify.LevelError, Message: msg})
	}
}
