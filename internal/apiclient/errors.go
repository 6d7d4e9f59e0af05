package apiclient

import (
	"fmt"
	"net/http"

	"github.com/dgellow/finfront/internal/apierror"
)

// HTTPError is returned for every non-2xx response that was not recovered
// by a refresh and replay
type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Payload apierror.Payload
	Message string

	sessionExpired bool
}

var _ apierror.StatusError = (*HTTPError)(nil)

func newHTTPError(req *Request, status int, body []byte) *HTTPError {
	payload := apierror.Decode(body)
	msg := http.StatusText(status)
	if msgs := payload.Messages(); len(msgs) > 0 {
		msg = msgs[0]
	}
	return &HTTPError{
		Method:  req.Method,
		Path:    req.Path,
		Status:  status,
		Payload: payload,
		Message: msg,
	}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// StatusCode returns the HTTP status
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// ErrorPayload returns the decoded body
func (e *HTTPError) ErrorPayload() apierror.Payload {
	return e.Payload
}

// AuthFailure reports whether the response means the access token was
// rejected: HTTP 401 or the token-expired error code
func (e *HTTPError) AuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Payload.TokenExpired()
}

// Is matches apierror.ErrSessionExpired when this failure ended the session
func (e *HTTPError) Is(target error) bool {
	return target == apierror.ErrSessionExpired && e.sessionExpired
}
