package transport

import (
	"net/http"
	"testing"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "token")

	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	auth := &BearerAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "token")

	authHeader := req.Header.Get("Authorization")
	expected := "Bearer token"
	if authHeader != expected {
		t.Errorf("Expected Authorization header '%s', got '%s'", expected, authHeader)
	}
}

// TestBearerAuthEmptyCredential tests that an empty credential sends no header.
func TestBearerAuthEmptyCredential(t *testing.T) {
	auth := &BearerAuth{}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "")

	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	auth := &HeaderAuth{Header: "X-Api-Key"}
	req := &http.Request{
		Header: make(http.Header),
	}

	auth.Apply(req, "token")

	if got := req.Header.Get("X-Api-Key"); got != "token" {
		t.Errorf("Expected X-Api-Key header 'token', got '%s'", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}
