package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Response is a decoded successful response
type Response[T any] struct {
	Status  int
	Header  http.Header
	Payload T
}

// RequestOption adjusts a request
type RequestOption func(*Request)

// WithHeader adds a request header
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Add(key, value)
	}
}

// WithQuery merges query parameters into the request
func WithQuery(q url.Values) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(url.Values)
		}
		for k, vs := range q {
			r.Query[k] = append(r.Query[k], vs...)
		}
	}
}

// Get issues a GET and decodes the body into T
func Get[T any](ctx context.Context, d Doer, path string, opts ...RequestOption) (*Response[T], error) {
	return doJSON[T](ctx, d, http.MethodGet, path, nil, opts)
}

// Post issues a POST with a JSON body
func Post[T any](ctx context.Context, d Doer, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return doJSON[T](ctx, d, http.MethodPost, path, body, opts)
}

// Put issues a PUT with a JSON body
func Put[T any](ctx context.Context, d Doer, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return doJSON[T](ctx, d, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH with a JSON body
func Patch[T any](ctx context.Context, d Doer, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return doJSON[T](ctx, d, http.MethodPatch, path, body, opts)
}

// Delete issues a DELETE
func Delete[T any](ctx context.Context, d Doer, path string, opts ...RequestOption) (*Response[T], error) {
	return doJSON[T](ctx, d, http.MethodDelete, path, nil, opts)
}

func doJSON[T any](ctx context.Context, d Doer, method, path string, body any, opts []RequestOption) (*Response[T], error) {
	req := &Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(req)
	}

	raw, err := d.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Response[T]{Status: raw.Status, Header: raw.Header}
	if len(bytes.TrimSpace(raw.Body)) > 0 {
		if err := json.Unmarshal(raw.Body, &out.Payload); err != nil {
			return nil, fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return out, nil
}
