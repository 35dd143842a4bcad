package tts

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

const (
	deepgramProvider       = "deepgram"
	defaultDeepgramBaseURL = "https://api.deepgram.com"
	defaultDeepgramModel   = "aura-asteria-en"
)

// DeepgramConfig configures the Deepgram Aura client.
type DeepgramConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DeepgramClient calls POST /v1/speak. It returns raw MP3 without alignment;
// speed and neighbouring text are not supported by the endpoint.
type DeepgramClient struct {
	cfg    DeepgramConfig
	http   *http.Client
	policy providerhttp.Policy
}

// NewDeepgramClient builds a client.
func NewDeepgramClient(cfg DeepgramConfig, opts ...Option) *DeepgramClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDeepgramBaseURL
	}
	client, policy := collect(opts, cfg.Timeout)
	return &DeepgramClient{cfg: cfg, http: client, policy: policy}
}

// Synthesize renders text with the model named in req.Model (or VoiceID).
func (c *DeepgramClient) Synthesize(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, services.Wrap(services.ErrValidation, "tts", "synthesize", "text required", nil)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(req.VoiceID)
	}
	if model == "" {
		model = defaultDeepgramModel
	}
	endpoint := c.cfg.BaseURL + "/v1/speak?" + url.Values{"model": {model}, "encoding": {"mp3"}}.Encode()

	result, err := providerhttp.Retry(ctx, c.policy, "deepgram", func(ctx context.Context) (Result, error) {
		httpReq, err := providerhttp.NewJSONRequest(ctx, http.MethodPost, endpoint, map[string]string{"text": text})
		if err != nil {
			return Result{}, err
		}
		httpReq.Header.Set("Authorization", "Token "+c.cfg.APIKey)
		resp, err := providerhttp.Send(c.http, httpReq, deepgramProvider)
		if err != nil {
			return Result{}, err
		}
		if len(resp.Body) == 0 {
			return Result{}, providerhttp.Retryable(errors.New("deepgram returned empty audio"))
		}
		mime := resp.Header.Get("Content-Type")
		if mime == "" || !strings.HasPrefix(mime, "audio/") {
			mime = "audio/mpeg"
		}
		return Result{Bytes: resp.Body, MimeType: mime, DurationSeconds: EstimateMP3Duration(resp.Body)}, nil
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrProvider, "tts", "synthesize", "", err)
	}
	return result, nil
}
