// Package endpoint resolves absolute URLs for the notebook service operations.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Operation names a relative API path on the service.
type Operation string

const (
	PredefinedImages Operation = "predefined_docker_images"
	ExecuteNotebook  Operation = "executeNotebook"
	ListResults      Operation = "list_results"
	CancelNotebook   Operation = "cancel_notebook"
	Result           Operation = "result"
	Logout           Operation = "auth/logout"
)

// ErrEmptyBase is returned when no service URL is configured.
var ErrEmptyBase = errors.New("service URL is empty")

// Resolver joins operation paths onto the service page URL.
type Resolver struct {
	base *url.URL
}

// Normalize adds https:// when no scheme is given and guarantees a trailing slash.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw
}

// New creates a resolver for the given service URL.
func New(base string) (*Resolver, error) {
	normalized := Normalize(base)
	if normalized == "" {
		return nil, ErrEmptyBase
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid service URL %q: %w", base, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid service URL %q: missing host", base)
	}
	// Query and fragment belong to the page, not to the API paths.
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Resolver{base: u}, nil
}

// Base returns the normalized service URL.
func (r *Resolver) Base() string {
	return r.base.String()
}

// URL returns the absolute URL for op. Extra params are escaped and appended
// as path segments, e.g. URL(Result, id) yields ".../result/<id>".
func (r *Resolver) URL(op Operation, params ...string) string {
	raw := []string{string(op)}
	escaped := []string{string(op)}
	for _, p := range params {
		raw = append(raw, p)
		escaped = append(escaped, url.PathEscape(p))
	}
	rel := &url.URL{Path: strings.Join(raw, "/"), RawPath: strings.Join(escaped, "/")}
	return r.base.ResolveReference(rel).String()
}

// Host returns host[:port] of the service, used for cookie scoping.
func (r *Resolver) Host() string {
	return r.base.Host
}
