package urlutil

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// JoinPath safely joins URL paths, handling trailing and leading slashes correctly
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	allPaths := append([]string{u.Path}, paths...)
	u.Path = path.Join(allPaths...)

	// Preserve trailing slash if the last path component had one
	if len(paths) > 0 && strings.HasSuffix(paths[len(paths)-1], "/") {
		u.Path += "/"
	}

	return u.String(), nil
}

// Resolve builds the absolute request URL for an API path. The path may carry
// its own query string; query values are merged on top of it.
func Resolve(base, apiPath string, query url.Values) (*url.URL, error) {
	rel, err := url.Parse(apiPath)
	if err != nil {
		return nil, fmt.Errorf("parsing path %q: %w", apiPath, err)
	}
	if rel.IsAbs() {
		return nil, fmt.Errorf("path %q must be relative to the API base URL", apiPath)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if baseURL.Path == "" {
		baseURL.Path = "/"
	}
	// Joined on the escaped form so escaped IDs stay a single segment
	u := baseURL.JoinPath(rel.EscapedPath())

	values := rel.Query()
	for k, vs := range query {
		values.Del(k)
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	u.RawQuery = values.Encode()
	return u, nil
}

// HasEndpoint reports whether u addresses endpoint below base, ignoring query
// and trailing slashes
func HasEndpoint(u *url.URL, base, endpoint string) bool {
	if u == nil || endpoint == "" {
		return false
	}
	want, err := JoinPath(base, endpoint)
	if err != nil {
		return false
	}
	wantURL, err := url.Parse(want)
	if err != nil {
		return false
	}
	return strings.TrimSuffix(u.Path, "/") == strings.TrimSuffix(wantURL.Path, "/")
}
