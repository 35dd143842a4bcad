package testsupport

import (
	"path/filepath"
	"testing"

	"slopreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories and dummy
// credentials per test. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "runs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "ledger.db")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Image.APIKey = "test-image"
	cfgVal.Image.BaseURL = "https://api.openai.com/v1"
	cfgVal.TTS.APIKey = "test-tts"
	cfgVal.TTS.BaseURL = "https://api.elevenlabs.io"
	cfgVal.TTS.VoiceID = "voice"
	cfgVal.LLM.APIKey = "test-llm"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithImageProvider points the image section at baseURL.
func WithImageProvider(provider, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Image.Provider = provider
		b.cfg.Image.BaseURL = baseURL
	}
}

// WithTTSProvider points the tts section at baseURL.
func WithTTSProvider(provider, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.Provider = provider
		b.cfg.TTS.BaseURL = baseURL
	}
}

// WithAssemblyURL points assembly at a test server.
func WithAssemblyURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assembly.URL = url
	}
}

// WithoutPostProcess disables image post-processing.
func WithoutPostProcess() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.PostProcess.Enabled = false
	}
}

