package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func fastPolicy() providerhttp.Policy {
	return providerhttp.Policy{MaxAttempts: 3, Sleep: func(time.Duration) {}}
}

func TestClientHealthCheck(t *testing.T) {
	var gotAuth, gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Title: "slopreel"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if gotAuth != "Bearer test" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotTitle != "slopreel" {
		t.Fatalf("unexpected title header %q", gotTitle)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := completionServer(t, "```json\n{\"ok\":true}\n```")
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "demo"})
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(fastPolicy()))
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"finish_reason": "stop", "message": map[string]any{"content": ""}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithRetryPolicy(fastPolicy()))
	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected empty content to be retried, got %d calls", calls.Load())
	}
}

func TestClientToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"finish_reason": "tool_calls",
				"message": map[string]any{
					"content": "",
					"tool_calls": []any{map[string]any{
						"type":     "function",
						"function": map[string]any{"name": "answer", "arguments": `{"ok":true}`},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestDraftScenes(t *testing.T) {
	var body chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		content := "Here you go:\n```json\n" +
			`{"scenes":[` +
			`{"script":" Octopuses have three hearts. ","imageDescription":"An octopus in a reef"},` +
			`{"script":"Two pump blood to the gills.","image_description":"Close-up of gills"},` +
			`{"script":"","imageDescription":""},` +
			`{"script":"One feeds the body.","imageDescription":"Cutaway diagram"}]}` +
			"\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	list, err := client.DraftScenes(context.Background(), "octopus hearts", 3)
	if err != nil {
		t.Fatalf("DraftScenes returned error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(list))
	}
	if list[0].Script != "Octopuses have three hearts." {
		t.Fatalf("script not trimmed: %q", list[0].Script)
	}
	if list[1].ImageDescription != "Close-up of gills" {
		t.Fatalf("snake_case description not accepted: %q", list[1].ImageDescription)
	}
	for i, s := range list {
		if s.Index != i || s.ID == "" {
			t.Fatalf("scene %d not normalized: %+v", i, s)
		}
	}
	if len(body.Messages) != 2 || !strings.Contains(body.Messages[1].Content, "Number of scenes: 3") {
		t.Fatalf("unexpected request messages %+v", body.Messages)
	}
}

func TestDraftScenesValidatesInput(t *testing.T) {
	client := NewClient(Config{APIKey: "test", BaseURL: "http://127.0.0.1:1", Model: "demo"})
	if _, err := client.DraftScenes(context.Background(), " ", 3); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank topic, got %v", err)
	}
	if _, err := client.DraftScenes(context.Background(), "topic", 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for zero scenes, got %v", err)
	}
}

func TestDraftScenesRejectsEmptyDraft(t *testing.T) {
	server := completionServer(t, `{"scenes":[]}`)
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if _, err := client.DraftScenes(context.Background(), "topic", 2); !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	var out struct {
		Value int `json:"value"`
	}
	if err := DecodeLLMJSON("sure! {\"value\": 4} hope that helps", &out); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if out.Value != 4 {
		t.Fatalf("unexpected value %d", out.Value)
	}
	if err := DecodeLLMJSON("no json here", &out); err == nil {
		t.Fatal("expected error for payload without JSON")
	}
}
