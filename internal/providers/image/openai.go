package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

const (
	openAIProvider       = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultImageTimeout  = 120 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible images endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIClient calls POST {base}/images/generations.
type OpenAIClient struct {
	cfg    OpenAIConfig
	http   *http.Client
	policy providerhttp.Policy
}

// Option customizes image clients.
type Option func(*clientOptions)

type clientOptions struct {
	http   *http.Client
	policy *providerhttp.Policy
	seed   func() int64
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) { o.http = client }
}

// WithRetryPolicy overrides retry behaviour.
func WithRetryPolicy(p providerhttp.Policy) Option {
	return func(o *clientOptions) { o.policy = &p }
}

// WithSeed fixes the seed source for providers that take one.
func WithSeed(fn func() int64) Option {
	return func(o *clientOptions) { o.seed = fn }
}

func collect(opts []Option) clientOptions {
	var o clientOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewOpenAIClient builds a client; missing base URL falls back to api.openai.com.
func NewOpenAIClient(cfg OpenAIConfig, opts ...Option) *OpenAIClient {
	o := collect(opts)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	c := &OpenAIClient{cfg: cfg, http: o.http, policy: providerhttp.DefaultPolicy()}
	if c.http == nil {
		c.http = providerhttp.NewHTTPClient(cfg.Timeout, defaultImageTimeout)
	}
	if o.policy != nil {
		c.policy = *o.policy
	}
	return c
}

type openAIRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate requests one image and returns its bytes.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Result{}, services.Wrap(services.ErrValidation, "image", "generate", "prompt required", nil)
	}
	payload := openAIRequest{
		Model:   req.Model,
		Prompt:  prompt,
		N:       1,
		Size:    req.Size,
		Quality: openAIQuality(req.Model, req.Quality),
	}
	if strings.HasPrefix(strings.ToLower(req.Model), "dall-e") {
		payload.ResponseFormat = "b64_json"
	}

	result, err := providerhttp.Retry(ctx, c.policy, "openai images", func(ctx context.Context) (Result, error) {
		return c.generateOnce(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, ErrContentRefused) {
			return Result{}, err
		}
		return Result{}, services.Wrap(services.ErrProvider, "image", "generate", "", err)
	}
	return result, nil
}

func (c *OpenAIClient) generateOnce(ctx context.Context, payload openAIRequest) (Result, error) {
	httpReq, err := providerhttp.NewJSONRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/images/generations", payload)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := providerhttp.Send(c.http, httpReq, openAIProvider)
	if err != nil {
		return Result{}, classifyOpenAIError(err)
	}

	var decoded openAIResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode images response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return Result{}, errors.New("images response contained no data")
	}
	item := decoded.Data[0]
	var data []byte
	switch {
	case item.B64JSON != "":
		data, err = base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return Result{}, fmt.Errorf("decode b64_json: %w", err)
		}
	case item.URL != "":
		data, err = c.download(ctx, item.URL)
		if err != nil {
			return Result{}, err
		}
	default:
		return Result{}, errors.New("images response had neither b64_json nor url")
	}
	mime, ok := sniffImage(data)
	if !ok {
		return Result{}, fmt.Errorf("provider returned %s instead of an image", mime)
	}
	return Result{Bytes: data, MimeType: mime}, nil
}

func (c *OpenAIClient) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image download: %w", err)
	}
	resp, err := providerhttp.Send(c.http, req, openAIProvider)
	if err != nil {
		return nil, fmt.Errorf("download generated image: %w", err)
	}
	return resp.Body, nil
}

// classifyOpenAIError turns safety-system rejections into ErrContentRefused
// with the provider's explanation.
func classifyOpenAIError(err error) error {
	var statusErr *providerhttp.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		return err
	}
	var body openAIErrorBody
	if json.Unmarshal([]byte(statusErr.Body), &body) != nil {
		return err
	}
	msg := strings.TrimSpace(body.Error.Message)
	lower := strings.ToLower(msg + " " + body.Error.Code)
	if body.Error.Code == "content_policy_violation" || body.Error.Code == "moderation_blocked" ||
		strings.Contains(lower, "safety system") || strings.Contains(lower, "content policy") {
		if msg == "" {
			msg = "prompt rejected by the provider's safety system"
		}
		return services.Wrap(ErrContentRefused, "image", "generate", msg, nil)
	}
	return err
}

// openAIQuality maps the configured quality onto what the model family accepts.
func openAIQuality(model, quality string) string {
	quality = strings.ToLower(strings.TrimSpace(quality))
	if !strings.HasPrefix(strings.ToLower(model), "dall-e-3") {
		return quality
	}
	if quality == "high" {
		return "hd"
	}
	return "standard"
}
