package httputil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

var fastRetry = RetryConfig{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond}

// scripted answers each request with the next status in codes, repeating
// the last one, and records the bodies it received.
type scripted struct {
	mu     sync.Mutex
	codes  []int
	bodies []string
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, _ := io.ReadAll(r.Body)
	s.bodies = append(s.bodies, string(b))
	code := s.codes[len(s.codes)-1]
	if n := len(s.bodies) - 1; n < len(s.codes) {
		code = s.codes[n]
	}
	w.WriteHeader(code)
	io.WriteString(w, http.StatusText(code))
}

func (s *scripted) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func postJSON(url, payload string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodPost, url, strings.NewReader(payload))
	}
}

func TestDo_StatusSequences(t *testing.T) {
	cases := []struct {
		name     string
		codes    []int
		attempts int
		final    int
		wantErr  bool
	}{
		{"first try", []int{200}, 1, 200, false},
		{"gateway then ok", []int{502, 504, 200}, 3, 200, false},
		{"rate limited then accepted", []int{429, 202}, 2, 202, false},
		{"client error returned as is", []int{422}, 1, 422, false},
		{"server keeps failing", []int{500}, 3, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &scripted{codes: tc.codes}
			srv := httptest.NewServer(h)
			defer srv.Close()

			resp, err := Do(context.Background(), srv.Client(), fastRetry, postJSON(srv.URL, `{"to":"a@b.be"}`))
			if tc.wantErr {
				if err == nil {
					resp.Body.Close()
					t.Fatal("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				resp.Body.Close()
				if resp.StatusCode != tc.final {
					t.Fatalf("final status %d, want %d", resp.StatusCode, tc.final)
				}
			}
			if h.attempts() != tc.attempts {
				t.Fatalf("attempts %d, want %d", h.attempts(), tc.attempts)
			}
		})
	}
}

func TestDo_RebuildsBodyEachAttempt(t *testing.T) {
	h := &scripted{codes: []int{503, 503, 200}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := Do(context.Background(), srv.Client(), fastRetry, postJSON(srv.URL, "payload"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	for i, b := range h.bodies {
		if b != "payload" {
			t.Fatalf("attempt %d sent body %q", i+1, b)
		}
	}
}

func TestDo_ExhaustedKeepsStatusError(t *testing.T) {
	srv := httptest.NewServer(&scripted{codes: []int{503}})
	defer srv.Close()

	_, err := Do(context.Background(), srv.Client(), RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}, postJSON(srv.URL, ""))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected wrapped *StatusError, got %v", err)
	}
	if se.Code != http.StatusServiceUnavailable || se.Body != "Service Unavailable" {
		t.Fatalf("unexpected status error %+v", se)
	}
	if !strings.Contains(err.Error(), "all 2 attempts failed") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestDo_RetriesConnectionErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var logs bytes.Buffer
	cfg := fastRetry
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	_, err := Do(context.Background(), &http.Client{Timeout: time.Second}, cfg, postJSON(url, ""))
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatalf("connection failure reported as status %d", se.Code)
	}
	if n := strings.Count(logs.String(), "http attempt failed"); n != 2 {
		t.Fatalf("expected 2 retry log lines, got %d:\n%s", n, logs.String())
	}
}

func TestDo_ContextEndsBackoff(t *testing.T) {
	h := &scripted{codes: []int{503}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, srv.Client(), RetryConfig{MaxAttempts: 5, BaseDelay: time.Minute}, postJSON(srv.URL, ""))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("backoff did not stop on context deadline")
	}
	if h.attempts() != 1 {
		t.Fatalf("expected 1 attempt, got %d", h.attempts())
	}
}

func TestDo_BuildErrorNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("bad url")
	_, err := Do(context.Background(), http.DefaultClient, fastRetry, func() (*http.Request, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("got err=%v after %d calls", err, calls)
	}
}

func TestRetryable(t *testing.T) {
	for code, want := range map[int]bool{
		200: false, 204: false, 400: false, 401: false, 404: false, 422: false,
		429: true, 500: true, 502: true, 503: true, 504: true,
	} {
		if got := Retryable(code); got != want {
			t.Errorf("Retryable(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestStatusErrorMessage(t *testing.T) {
	if got := (&StatusError{Code: 403}).Error(); got != "HTTP 403" {
		t.Fatalf("got %q", got)
	}
	if got := (&StatusError{Code: 422, Body: "domain not verified"}).Error(); got != "HTTP 422: domain not verified" {
		t.Fatalf("got %q", got)
	}
}

func TestCheckStatus_TruncatesBody(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadRequest)
	rec.WriteString(strings.Repeat("x", 2000))

	var se *StatusError
	if err := CheckStatus(rec.Result()); !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusBadRequest || len(se.Body) != 512 {
		t.Fatalf("code %d body len %d", se.Code, len(se.Body))
	}

	for _, code := range []int{200, 201, 299} {
		rec := httptest.NewRecorder()
		rec.WriteHeader(code)
		if err := CheckStatus(rec.Result()); err != nil {
			t.Fatalf("%d should pass, got %v", code, err)
		}
	}
}
