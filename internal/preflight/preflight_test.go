package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slopreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWritableParent_WalksToExistingAncestor(t *testing.T) {
	base := t.TempDir()
	result := CheckWritableParent("ledger", filepath.Join(base, "a", "b", "ledger.db"))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, base) {
		t.Fatalf("expected detail to name %s, got %q", base, result.Detail)
	}
}

func TestCheckAssembly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithAssemblyURL(srv.URL))
	if result := CheckAssembly(context.Background(), cfg.Assembly); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	cfg = testsupport.NewConfig(t, testsupport.WithAssemblyURL(down.URL))
	if result := CheckAssembly(context.Background(), cfg.Assembly); result.Passed {
		t.Fatal("expected failure for 503 health")
	}
}

func TestCheckLLM(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.LLM.BaseURL = srv.URL
	result := CheckLLM(context.Background(), cfg.LLM)
	if result.Passed {
		t.Fatal("expected failure for 503")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer ok.Close()
	cfg.LLM.BaseURL = ok.URL
	if result := CheckLLM(context.Background(), cfg.LLM); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	cfg.LLM.APIKey = ""
	if result := CheckLLM(context.Background(), cfg.LLM); result.Passed {
		t.Fatal("expected failure without key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg, Options{})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_ReportsMissingCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.APIKey = ""

	failed := Failed(RunAll(context.Background(), cfg, Options{}))
	if len(failed) != 1 || failed[0].Name != "TTS provider" {
		t.Fatalf("expected TTS credential failure, got %+v", failed)
	}
}
