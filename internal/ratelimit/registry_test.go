package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestResolveScope(t *testing.T) {
	r := NewRegistry(5, 10)

	tests := []struct {
		method string
		path   string
		want   Scope
	}{
		{"POST", "/app/executeNotebook", ScopeSubmit},
		{"post", "/executeNotebook/", ScopeSubmit},
		{"GET", "/app/executeNotebook", ScopeDefault},
		{"GET", "/app/list_results", ScopeDefault},
		{"DELETE", "/app/cancel_notebook", ScopeDefault},
		{"GET", "/app/result/abc", ScopeDefault},
	}
	for _, tt := range tests {
		if got := r.ResolveScope(tt.method, tt.path); got != tt.want {
			t.Errorf("ResolveScope(%s, %s) = %s, want %s", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestRegistryLimiters(t *testing.T) {
	r := NewRegistry(10, 10)

	if got := r.Limiter(ScopeDefault).GetCurrentTokens(); got < 9.9 {
		t.Errorf("default burst = %.2f, want ~10", got)
	}
	if got := r.Limiter(ScopeSubmit).GetCurrentTokens(); got < 1.9 || got > 2.1 {
		t.Errorf("submit burst = %.2f, want ~2", got)
	}
	if r.Limiter(Scope("unknown")) != r.Limiter(ScopeDefault) {
		t.Error("unknown scope should fall back to the default limiter")
	}
}

func TestRegistryWaitUsesSubmitScope(t *testing.T) {
	r := NewRegistry(1, 5) // submit: 0.2/sec, burst 1
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx, "POST", "/executeNotebook"); err != nil {
		t.Fatalf("first submit Wait() = %v", err)
	}
	if err := r.Wait(ctx, "POST", "/executeNotebook"); err == nil {
		t.Error("second submit should block until the context expires")
	}

	// The default scope is unaffected by the exhausted submit bucket.
	if err := r.Wait(context.Background(), "GET", "/list_results"); err != nil {
		t.Errorf("list Wait() = %v", err)
	}
}

func TestNilRegistryWait(t *testing.T) {
	var r *Registry
	if err := r.Wait(context.Background(), "GET", "/list_results"); err != nil {
		t.Errorf("Wait() on nil registry = %v", err)
	}
}
