// ABOUTME: Tests for MCP server creation and options.
// ABOUTME: Verifies the server requires an engine and applies its options.
package mcp

import (
	"testing"
)

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(nil)
	if err == nil {
		t.Error("expected error when engine is nil")
	}
}

func TestNewServerSuccess(t *testing.T) {
	server, err := NewServer(newTestEngine(t))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if server == nil {
		t.Fatal("expected non-nil server")
	}
	if server.defaultLimit != 5 {
		t.Errorf("expected default limit 5, got %d", server.defaultLimit)
	}
}

func TestNewServerWithOptions(t *testing.T) {
	server, err := NewServer(newTestEngine(t), WithProviderName("local-hash"), WithDefaultLimit(8))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	if server.providerName != "local-hash" {
		t.Errorf("expected provider name to be set, got %q", server.providerName)
	}
	if server.defaultLimit != 8 {
		t.Errorf("expected default limit 8, got %d", server.defaultLimit)
	}

	server, _ = NewServer(newTestEngine(t), WithDefaultLimit(0))
	if server.defaultLimit != 5 {
		t.Errorf("non-positive limit should be ignored, got %d", server.defaultLimit)
	}
}
