package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kjannette/stroomslim-backend/internal/httputil"
)

func TestOpsNotifier_NoWebhook(t *testing.T) {
	s := NewOpsNotifier("", "TestApp", nil)
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Should log only, without error
	s.Send(context.Background(), "hello from test")
}

func TestOpsNotifier_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewOpsNotifier(srv.URL, "TestApp", nil)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send(context.Background(), "alert run complete: 3 sent")

	if received["username"] != "TestApp" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] != "`[TestApp] alert run complete: 3 sent`" {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestOpsNotifier_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewOpsNotifier(srv.URL+"/discord/webhook", "StroomBot", nil)
	s.Send(context.Background(), "alert run aborted: prices unavailable")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestOpsNotifier_WebhookError(t *testing.T) {
	s := NewOpsNotifier("http://localhost:1/bogus", "TestApp", nil)
	s.retry = httputil.RetryConfig{MaxAttempts: 1}
	// Should not panic, just log the error
	s.Send(context.Background(), "this will fail gracefully")
}

func TestOpsNotifier_DefaultAppName(t *testing.T) {
	s := NewOpsNotifier("", "", nil)
	if s.appName != "StroomSlim" {
		t.Fatalf("expected default app name, got %s", s.appName)
	}
}
