package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

const (
	elevenLabsProvider       = "elevenlabs"
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultElevenLabsFormat  = "mp3_44100_128"
	defaultTTSTimeout        = 60 * time.Second
)

// ElevenLabsConfig configures the ElevenLabs client.
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ElevenLabsClient calls the with-timestamps endpoint so every clip comes
// back with character alignment.
type ElevenLabsClient struct {
	cfg    ElevenLabsConfig
	http   *http.Client
	policy providerhttp.Policy
}

// Option customizes TTS clients.
type Option func(*clientOptions)

type clientOptions struct {
	http   *http.Client
	policy *providerhttp.Policy
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) { o.http = client }
}

// WithRetryPolicy overrides retry behaviour.
func WithRetryPolicy(p providerhttp.Policy) Option {
	return func(o *clientOptions) { o.policy = &p }
}

func collect(opts []Option, timeout time.Duration) (*http.Client, providerhttp.Policy) {
	var o clientOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	client := o.http
	if client == nil {
		client = providerhttp.NewHTTPClient(timeout, defaultTTSTimeout)
	}
	policy := providerhttp.DefaultPolicy()
	if o.policy != nil {
		policy = *o.policy
	}
	return client, policy
}

// NewElevenLabsClient builds a client.
func NewElevenLabsClient(cfg ElevenLabsConfig, opts ...Option) *ElevenLabsClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsBaseURL
	}
	client, policy := collect(opts, cfg.Timeout)
	return &ElevenLabsClient{cfg: cfg, http: client, policy: policy}
}

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id,omitempty"`
	PreviousText  string             `json:"previous_text,omitempty"`
	NextText      string             `json:"next_text,omitempty"`
	VoiceSettings *elevenLabsVoiceSet `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSet struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type elevenLabsAlignment struct {
	Characters []string  `json:"characters"`
	Starts     []float64 `json:"character_start_times_seconds"`
	Ends       []float64 `json:"character_end_times_seconds"`
}

type elevenLabsResponse struct {
	AudioBase64         string               `json:"audio_base64"`
	Alignment           *elevenLabsAlignment `json:"alignment"`
	NormalizedAlignment *elevenLabsAlignment `json:"normalized_alignment"`
}

// Synthesize renders text with the configured voice.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "text required", nil)
	}
	voice := strings.TrimSpace(req.VoiceID)
	if voice == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "voice id required", nil)
	}
	payload := elevenLabsRequest{
		Text:         text,
		ModelID:      req.Model,
		PreviousText: strings.TrimSpace(req.PreviousText),
		NextText:     strings.TrimSpace(req.NextText),
		VoiceSettings: &elevenLabsVoiceSet{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           req.Speed,
		},
	}
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps?output_format=%s",
		c.cfg.BaseURL, url.PathEscape(voice), defaultElevenLabsFormat)

	result, err := providerhttp.Retry(ctx, c.policy, "elevenlabs", func(ctx context.Context) (Result, error) {
		httpReq, err := providerhttp.NewJSONRequest(ctx, http.MethodPost, endpoint, payload)
		if err != nil {
			return Result{}, err
		}
		httpReq.Header.Set("xi-api-key", c.cfg.APIKey)
		httpReq.Header.Set("Accept", "application/json")
		resp, err := providerhttp.Send(c.http, httpReq, elevenLabsProvider)
		if err != nil {
			return Result{}, err
		}
		return decodeElevenLabs(resp.Body)
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrProvider, "tts", "synthesize", "", err)
	}
	return result, nil
}

func decodeElevenLabs(body []byte) (Result, error) {
	var decoded elevenLabsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode elevenlabs response: %w", err)
	}
	if decoded.AudioBase64 == "" {
		return Result{}, providerhttp.Retryable(errors.New("elevenlabs response had no audio"))
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return Result{}, fmt.Errorf("decode audio_base64: %w", err)
	}
	res := Result{Bytes: audio, MimeType: "audio/mpeg"}

	alignment := decoded.Alignment
	if alignment == nil || len(alignment.Characters) == 0 {
		alignment = decoded.NormalizedAlignment
	}
	if alignment != nil {
		if words := WordsFromCharacters(alignment.Characters, alignment.Starts, alignment.Ends); len(words) > 0 {
			total := 0.0
			if n := len(alignment.Ends); n > 0 {
				total = alignment.Ends[n-1]
			}
			res.Timing = &Timing{Words: words, TotalDuration: total}
			res.DurationSeconds = total
		}
	}
	if res.DurationSeconds == 0 {
		res.DurationSeconds = EstimateMP3Duration(audio)
	}
	return res, nil
}
