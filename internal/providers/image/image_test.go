package image_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"slopreel/internal/providers/image"
	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image body")

func TestNegotiate(t *testing.T) {
	tests := []struct {
		model         string
		width, height int
		size, aspect  string
	}{
		{"gpt-image-1", 1080, 1920, "1024x1536", ""},
		{"gpt-image-1", 1920, 1080, "1536x1024", ""},
		{"gpt-image-1", 1000, 1000, "1024x1024", ""},
		{"dall-e-3", 1080, 1920, "1024x1792", ""},
		{"imagen-4", 1080, 1920, "", "9:16"},
		{"flux", 1920, 1080, "", "16:9"},
		{"flux", 1200, 900, "", "4:3"},
	}
	for _, tt := range tests {
		d := image.Negotiate(tt.model, tt.width, tt.height)
		if d.Size != tt.size || d.AspectRatio != tt.aspect {
			t.Fatalf("Negotiate(%s, %d, %d) = %+v, want size=%q aspect=%q", tt.model, tt.width, tt.height, d, tt.size, tt.aspect)
		}
		if d.Width != tt.width || d.Height != tt.height {
			t.Fatalf("dimensions not echoed: %+v", d)
		}
	}
}

func TestOpenAIClientDecodesBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["prompt"] != "a red fox" || body["size"] != "1024x1536" || body["quality"] != "medium" {
			t.Errorf("unexpected body %v", body)
		}
		if _, ok := body["response_format"]; ok {
			t.Errorf("gpt-image models reject response_format, got %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(fakePNG)}},
		})
	}))
	defer server.Close()

	client := image.NewOpenAIClient(image.OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1/"})
	res, err := client.Generate(context.Background(), image.Request{Prompt: "a red fox", Model: "gpt-image-1", Size: "1024x1536", Quality: "medium"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if string(res.Bytes) != string(fakePNG) || res.MimeType != "image/png" {
		t.Fatalf("unexpected result mime=%s len=%d", res.MimeType, len(res.Bytes))
	}
}

func TestOpenAIClientDownloadsURL(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/images/generations":
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"url": server.URL + "/files/out.png"}}})
		case "/files/out.png":
			_, _ = w.Write(fakePNG)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := image.NewOpenAIClient(image.OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	res, err := client.Generate(context.Background(), image.Request{Prompt: "p", Model: "dall-e-3"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.MimeType != "image/png" {
		t.Fatalf("unexpected mime %s", res.MimeType)
	}
}

func TestOpenAIClientReportsContentRefusal(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Your request was rejected as a result of our safety system.","code":"content_policy_violation"}}`))
	}))
	defer server.Close()

	client := image.NewOpenAIClient(image.OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), image.Request{Prompt: "something", Model: "gpt-image-1"})
	if !errors.Is(err, image.ErrContentRefused) {
		t.Fatalf("expected ErrContentRefused, got %v", err)
	}
	if !strings.Contains(err.Error(), "safety system") {
		t.Fatalf("expected provider explanation in %q", err.Error())
	}
	if calls != 1 {
		t.Fatalf("refusals must not be retried, got %d calls", calls)
	}
}

func TestOpenAIClientWrapsServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := image.NewOpenAIClient(image.OpenAIConfig{APIKey: "k", BaseURL: server.URL},
		image.WithRetryPolicy(providerhttp.Policy{MaxAttempts: 2, Sleep: func(time.Duration) {}}))
	_, err := client.Generate(context.Background(), image.Request{Prompt: "p", Model: "gpt-image-1"})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestPollinationsClientBuildsURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/prompt/a%20cat%20on%20a%20mat" {
			t.Errorf("unexpected path %q", r.URL.EscapedPath())
		}
		q := r.URL.Query()
		if q.Get("width") != "1080" || q.Get("height") != "1920" || q.Get("model") != "flux" || q.Get("seed") != "42" || q.Get("nologo") != "true" {
			t.Errorf("unexpected query %v", q)
		}
		_, _ = w.Write(fakePNG)
	}))
	defer server.Close()

	client := image.NewPollinationsClient(image.PollinationsConfig{BaseURL: server.URL}, image.WithSeed(func() int64 { return 42 }))
	res, err := client.Generate(context.Background(), image.Request{Prompt: "a cat on a mat", Width: 1080, Height: 1920})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if res.MimeType != "image/png" {
		t.Fatalf("unexpected mime %s", res.MimeType)
	}
}

func TestPollinationsClientRejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>busy</html>"))
	}))
	defer server.Close()

	client := image.NewPollinationsClient(image.PollinationsConfig{BaseURL: server.URL},
		image.WithRetryPolicy(providerhttp.NoRetry()))
	if _, err := client.Generate(context.Background(), image.Request{Prompt: "x"}); !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}
