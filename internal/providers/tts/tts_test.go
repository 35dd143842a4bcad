package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/providers/tts"
	"slopreel/internal/services"
)

// mp3Frame builds a buffer starting with an MPEG-1 Layer III 128 kbit/s header.
func mp3Frame(size int) []byte {
	data := make([]byte, size)
	data[0], data[1], data[2], data[3] = 0xff, 0xfb, 0x90, 0x64
	return data
}

func TestWordsFromCharacters(t *testing.T) {
	chars := []string{"H", "i", " ", "y", "o", "u", "!", " ", " "}
	starts := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	ends := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	words := tts.WordsFromCharacters(chars, starts, ends)
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %+v", words)
	}
	if words[0] != (tts.Word{Text: "Hi", Start: 0, End: 0.2}) {
		t.Fatalf("unexpected first word %+v", words[0])
	}
	if words[1] != (tts.Word{Text: "you!", Start: 0.3, End: 0.7}) {
		t.Fatalf("unexpected second word %+v", words[1])
	}
}

func TestEstimateMP3Duration(t *testing.T) {
	// 128 kbit/s => 16000 bytes per second.
	if got := tts.EstimateMP3Duration(mp3Frame(32000)); math.Abs(got-2) > 1e-9 {
		t.Fatalf("expected 2s, got %v", got)
	}
	if got := tts.EstimateMP3Duration([]byte("not audio")); got != 0 {
		t.Fatalf("expected 0 for garbage, got %v", got)
	}
}

func TestElevenLabsSynthesizeSendsContextAndParsesAlignment(t *testing.T) {
	audio := mp3Frame(1600)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1/with-timestamps" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key header")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["text"] != "Middle scene." || body["previous_text"] != "First scene." || body["next_text"] != "Last scene." {
			t.Errorf("unexpected context fields %v", body)
		}
		settings, _ := body["voice_settings"].(map[string]any)
		if settings["speed"] != 1.1 {
			t.Errorf("unexpected voice settings %v", settings)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"audio_base64": base64.StdEncoding.EncodeToString(audio),
			"alignment": map[string]any{
				"characters":                    []string{"O", "k", " ", "g", "o"},
				"character_start_times_seconds": []float64{0, 0.1, 0.2, 0.3, 0.4},
				"character_end_times_seconds":   []float64{0.1, 0.2, 0.3, 0.4, 0.55},
			},
		})
	}))
	defer server.Close()

	client := tts.NewElevenLabsClient(tts.ElevenLabsConfig{APIKey: "el-key", BaseURL: server.URL})
	res, err := client.Synthesize(context.Background(), tts.Request{
		Text: "Middle scene.", VoiceID: "voice-1", Model: "eleven_multilingual_v2", Speed: 1.1,
		PreviousText: "First scene.", NextText: "Last scene.",
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(res.Bytes) != len(audio) || res.MimeType != "audio/mpeg" {
		t.Fatalf("unexpected audio result mime=%s len=%d", res.MimeType, len(res.Bytes))
	}
	if res.Timing == nil || len(res.Timing.Words) != 2 || res.Timing.TotalDuration != 0.55 {
		t.Fatalf("unexpected timing %+v", res.Timing)
	}
	if res.DurationSeconds != 0.55 {
		t.Fatalf("expected duration from alignment, got %v", res.DurationSeconds)
	}
}

func TestElevenLabsWithoutAlignmentLeavesTimingNil(t *testing.T) {
	audio := mp3Frame(16000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"audio_base64": base64.StdEncoding.EncodeToString(audio)})
	}))
	defer server.Close()

	client := tts.NewElevenLabsClient(tts.ElevenLabsConfig{APIKey: "k", BaseURL: server.URL})
	res, err := client.Synthesize(context.Background(), tts.Request{Text: "hello", VoiceID: "v"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if res.Timing != nil {
		t.Fatalf("expected nil timing, got %+v", res.Timing)
	}
	if math.Abs(res.DurationSeconds-1) > 1e-9 {
		t.Fatalf("expected estimated 1s duration, got %v", res.DurationSeconds)
	}
}

func TestDeepgramSynthesize(t *testing.T) {
	audio := mp3Frame(8000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speak" || r.URL.Query().Get("model") != "aura-luna-en" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if r.Header.Get("Authorization") != "Token dg-key" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	defer server.Close()

	client := tts.NewDeepgramClient(tts.DeepgramConfig{APIKey: "dg-key", BaseURL: server.URL})
	res, err := client.Synthesize(context.Background(), tts.Request{Text: "hello", Model: "aura-luna-en"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if res.Timing != nil || res.MimeType != "audio/mpeg" || math.Abs(res.DurationSeconds-0.5) > 1e-9 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDeepgramUnauthorizedIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"err_msg":"bad key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := tts.NewDeepgramClient(tts.DeepgramConfig{APIKey: "nope", BaseURL: server.URL}, tts.WithRetryPolicy(providerhttp.DefaultPolicy()))
	_, err := client.Synthesize(context.Background(), tts.Request{Text: "hello"})
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	var statusErr *providerhttp.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}
