package ratelimit

import (
	"context"
	"net/http"
	"strings"
)

// Scope groups service endpoints that share a request budget.
type Scope string

const (
	// ScopeDefault covers listing, polling, cancel and download requests.
	ScopeDefault Scope = "default"

	// ScopeSubmit covers job submissions, which start containers on the
	// service and are kept to a slower rate.
	ScopeSubmit Scope = "submit"
)

// submitRateDivisor slows submissions relative to the default scope.
const submitRateDivisor = 5

// Registry maps requests to scopes and holds one limiter per scope.
type Registry struct {
	limiters map[Scope]*RateLimiter
}

// NewRegistry creates limiters for every scope from the configured default
// rate. A non-positive rate disables limiting.
func NewRegistry(requestsPerSecond float64, burst int) *Registry {
	submitBurst := burst / submitRateDivisor
	if submitBurst < 1 {
		submitBurst = 1
	}
	return &Registry{
		limiters: map[Scope]*RateLimiter{
			ScopeDefault: NewRateLimiter(requestsPerSecond, float64(burst)),
			ScopeSubmit:  NewRateLimiter(requestsPerSecond/submitRateDivisor, float64(submitBurst)),
		},
	}
}

// ResolveScope determines the scope for a request.
func (r *Registry) ResolveScope(method, path string) Scope {
	if strings.EqualFold(method, http.MethodPost) && strings.HasSuffix(strings.TrimRight(path, "/"), "executeNotebook") {
		return ScopeSubmit
	}
	return ScopeDefault
}

// Limiter returns the limiter of a scope, falling back to the default scope.
func (r *Registry) Limiter(scope Scope) *RateLimiter {
	if l, ok := r.limiters[scope]; ok {
		return l
	}
	return r.limiters[ScopeDefault]
}

// Wait blocks until the request may be sent.
func (r *Registry) Wait(ctx context.Context, method, path string) error {
	if r == nil {
		return nil
	}
	return r.Limiter(r.ResolveScope(method, path)).Wait(ctx)
}
