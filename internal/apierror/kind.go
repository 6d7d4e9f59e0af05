package apierror

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
)

// ErrSessionExpired matches failures after which the session was ended and
// the user already told about it
var ErrSessionExpired = errors.New("session expired")

// Kind is the category of a failure shown to the user
type Kind string

const (
	KindNetwork        Kind = "network"
	KindServer         Kind = "server"
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindTimeout        Kind = "timeout"
	KindUnknown        Kind = "unknown"
)

// StatusError is implemented by errors carrying a backend response
type StatusError interface {
	error
	StatusCode() int
	ErrorPayload() Payload
}

// Classify maps err to a Kind
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var se StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.StatusCode(), se.ErrorPayload())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return KindNetwork
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return KindNetwork
	}
	return KindUnknown
}

func classifyStatus(status int, p Payload) Kind {
	if status == http.StatusUnauthorized || p.TokenExpired() {
		return KindAuthentication
	}
	switch {
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}
