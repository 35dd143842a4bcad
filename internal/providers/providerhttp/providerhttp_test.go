package providerhttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"slopreel/internal/providers/providerhttp"
)

func TestRetryRetriesTransientStatusThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	var slept []time.Duration
	policy := providerhttp.Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second, Sleep: func(d time.Duration) { slept = append(slept, d) }}
	body, err := providerhttp.Retry(context.Background(), policy, "test", func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := providerhttp.Send(server.Client(), req, "test")
		return resp.Body, err
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if string(body) != "ok" || calls.Load() != 3 {
		t.Fatalf("unexpected body %q after %d calls", body, calls.Load())
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("expected Retry-After delays, got %v", slept)
	}
}

func TestRetryStopsOnClientError(t *testing.T) {
	calls := 0
	policy := providerhttp.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}}
	_, err := providerhttp.Retry(context.Background(), policy, "test", func(context.Context) (int, error) {
		calls++
		return 0, &providerhttp.StatusError{Provider: "test", StatusCode: http.StatusBadRequest, Body: "bad prompt"}
	})
	var statusErr *providerhttp.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	policy := providerhttp.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}}
	_, err := providerhttp.Retry(context.Background(), policy, "flaky", func(context.Context) (int, error) {
		calls++
		return 0, providerhttp.Retryable(errors.New("empty payload"))
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected failure after 3 calls, got %v after %d", err, calls)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	policy := providerhttp.Policy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	err := &providerhttp.StatusError{StatusCode: http.StatusServiceUnavailable}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		got, retry := policy.Delay(context.Background(), err, i+1)
		if !retry || got != w {
			t.Fatalf("attempt %d: got %v %v, want %v", i+1, got, retry, w)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := providerhttp.ParseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("unexpected seconds parse %v %v", d, ok)
	}
	if _, ok := providerhttp.ParseRetryAfter("soon"); ok {
		t.Fatal("expected garbage to be rejected")
	}
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if d, ok := providerhttp.ParseRetryAfter(future); !ok || d <= 0 {
		t.Fatalf("unexpected date parse %v %v", d, ok)
	}
}
