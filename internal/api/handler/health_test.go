package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-jose/go-jose/v4"
)

func TestHealthHandler_Liveness(t *testing.T) {
	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodGet, "/health", "")

	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthDependenciesHandler_Readiness(t *testing.T) {
	ok := Dependency{Name: "store", Check: func(context.Context) error { return nil }}
	down := Dependency{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name       string
		deps       []Dependency
		wantCode   int
		wantStatus string
	}{
		{name: "all healthy", deps: []Dependency{ok}, wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "one down", deps: []Dependency{ok, down}, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			c, rec := jsonContext(e, http.MethodGet, "/health/ready", "")

			if err := NewHealthDependenciesHandler(tt.deps...).Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Status != tt.wantStatus || len(resp.Dependencies) != len(tt.deps) {
				t.Fatalf("unexpected response: %+v", resp)
			}
		})
	}
}

type stubKeySet struct {
	set jose.JSONWebKeySet
	err error
}

func (s stubKeySet) JWKS() (jose.JSONWebKeySet, error) { return s.set, s.err }

func TestJWKSHandler_Serve(t *testing.T) {
	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodGet, "/.well-known/jwks.json", "")

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{}}
	if err := NewJWKSHandler(stubKeySet{set: set}).Serve(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get("Cache-Control") == "" {
		t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
	}
}

func TestJWKSHandler_ServeError(t *testing.T) {
	e := newTestEcho()
	c, _ := jsonContext(e, http.MethodGet, "/.well-known/jwks.json", "")

	boom := errors.New("no key")
	if err := NewJWKSHandler(stubKeySet{err: boom}).Serve(c); !errors.Is(err, boom) {
		t.Fatalf("expected key error, got %v", err)
	}
}
