package image

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

const (
	pollinationsProvider       = "pollinations"
	defaultPollinationsBaseURL = "https://image.pollinations.ai"
	defaultPollinationsModel   = "flux"
)

// PollinationsConfig configures the keyless Pollinations endpoint.
type PollinationsConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollinationsClient renders prompts via GET {base}/prompt/{prompt}.
type PollinationsClient struct {
	cfg    PollinationsConfig
	http   *http.Client
	policy providerhttp.Policy
	seed   func() int64
}

// NewPollinationsClient builds a client.
func NewPollinationsClient(cfg PollinationsConfig, opts ...Option) *PollinationsClient {
	o := collect(opts)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPollinationsBaseURL
	}
	c := &PollinationsClient{cfg: cfg, http: o.http, policy: providerhttp.DefaultPolicy(), seed: o.seed}
	if c.http == nil {
		c.http = providerhttp.NewHTTPClient(cfg.Timeout, defaultImageTimeout)
	}
	if o.policy != nil {
		c.policy = *o.policy
	}
	if c.seed == nil {
		c.seed = func() int64 { return rand.Int64N(1_000_000) }
	}
	return c
}

// Generate fetches one image. Pollinations takes pixel dimensions directly.
func (c *PollinationsClient) Generate(ctx context.Context, req Request) (Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Result{}, services.Wrap(services.ErrValidation, "image", "generate", "prompt required", nil)
	}
	model := req.Model
	if model == "" {
		model = defaultPollinationsModel
	}
	query := url.Values{}
	if req.Width > 0 && req.Height > 0 {
		query.Set("width", strconv.Itoa(req.Width))
		query.Set("height", strconv.Itoa(req.Height))
	}
	query.Set("model", model)
	query.Set("nologo", "true")
	query.Set("seed", strconv.FormatInt(c.seed(), 10))
	endpoint := c.cfg.BaseURL + "/prompt/" + url.PathEscape(prompt) + "?" + query.Encode()

	result, err := providerhttp.Retry(ctx, c.policy, "pollinations", func(ctx context.Context) (Result, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return Result{}, fmt.Errorf("build request: %w", err)
		}
		resp, err := providerhttp.Send(c.http, httpReq, pollinationsProvider)
		if err != nil {
			return Result{}, err
		}
		mime, ok := sniffImage(resp.Body)
		if !ok {
			// The service answers some overloads with 200 and an HTML page.
			return Result{}, providerhttp.Retryable(fmt.Errorf("pollinations returned %s instead of an image", mime))
		}
		return Result{Bytes: resp.Body, MimeType: mime}, nil
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrProvider, "image", "generate", "", err)
	}
	return result, nil
}
