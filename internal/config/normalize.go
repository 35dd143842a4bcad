package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImage()
	c.normalizeTTS()
	c.normalizePostProcess()
	c.normalizeLLM()
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = lookupEnv("SLOPREEL_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeImage() {
	c.Image.Provider = strings.ToLower(strings.TrimSpace(c.Image.Provider))
	if c.Image.Provider == "" {
		c.Image.Provider = ImageProviderOpenAI
	}
	c.Image.BaseURL = strings.TrimRight(strings.TrimSpace(c.Image.BaseURL), "/")
	c.Image.Model = strings.TrimSpace(c.Image.Model)
	switch c.Image.Provider {
	case ImageProviderOpenAI:
		if c.Image.BaseURL == "" {
			c.Image.BaseURL = defaultOpenAIBaseURL
		}
		if c.Image.Model == "" {
			c.Image.Model = defaultOpenAIImageModel
		}
	case ImageProviderPollinations:
		if c.Image.BaseURL == "" {
			c.Image.BaseURL = defaultPollinationsBaseURL
		}
		if c.Image.Model == "" {
			c.Image.Model = defaultPollinationsModel
		}
	}
	c.Image.Quality = strings.ToLower(strings.TrimSpace(c.Image.Quality))
	if c.Image.Quality == "" {
		c.Image.Quality = defaultImageQuality
	}
	if c.Image.MaxConcurrent <= 0 {
		c.Image.MaxConcurrent = defaultImageMaxConcurrent
	}
	if c.Image.TimeoutSeconds <= 0 {
		c.Image.TimeoutSeconds = defaultImageTimeoutSeconds
	}
	if c.Image.RetryAttempts <= 0 {
		c.Image.RetryAttempts = defaultProviderRetryAttempts
	}
	c.Image.APIKey = strings.TrimSpace(c.Image.APIKey)
	if c.Image.APIKey == "" && c.Image.Provider == ImageProviderOpenAI {
		c.Image.APIKey = lookupEnv("OPENAI_API_KEY")
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Provider = strings.ToLower(strings.TrimSpace(c.TTS.Provider))
	if c.TTS.Provider == "" {
		c.TTS.Provider = TTSProviderElevenLabs
	}
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	c.TTS.VoiceID = strings.TrimSpace(c.TTS.VoiceID)
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	switch c.TTS.Provider {
	case TTSProviderElevenLabs:
		if c.TTS.BaseURL == "" {
			c.TTS.BaseURL = defaultElevenLabsBaseURL
		}
		if c.TTS.Model == "" {
			c.TTS.Model = defaultElevenLabsModel
		}
		if c.TTS.VoiceID == "" {
			c.TTS.VoiceID = defaultElevenLabsVoiceID
		}
		if c.TTS.APIKey == "" {
			c.TTS.APIKey = lookupEnv("ELEVENLABS_API_KEY")
		}
	case TTSProviderDeepgram:
		if c.TTS.BaseURL == "" {
			c.TTS.BaseURL = defaultDeepgramBaseURL
		}
		if c.TTS.Model == "" {
			c.TTS.Model = defaultDeepgramModel
		}
		if c.TTS.APIKey == "" {
			c.TTS.APIKey = lookupEnv("DEEPGRAM_API_KEY")
		}
	}
	if c.TTS.Speed == 0 {
		c.TTS.Speed = defaultTTSSpeed
	}
	if c.TTS.MaxConcurrent == 0 {
		c.TTS.MaxConcurrent = defaultTTSMaxConcurrent
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.RetryAttempts <= 0 {
		c.TTS.RetryAttempts = defaultProviderRetryAttempts
	}
}

func (c *Config) normalizePostProcess() {
	c.PostProcess.Background = strings.ToLower(strings.TrimSpace(c.PostProcess.Background))
	if c.PostProcess.Background == "" {
		c.PostProcess.Background = defaultPostBackground
	}
	c.PostProcess.Format = strings.ToLower(strings.TrimSpace(c.PostProcess.Format))
	switch c.PostProcess.Format {
	case "", "jpg":
		c.PostProcess.Format = defaultPostFormat
	}
	if c.PostProcess.MaxGain == 0 {
		c.PostProcess.MaxGain = defaultPostMaxGain
	}
	if c.PostProcess.Contrast == 0 {
		c.PostProcess.Contrast = 1.0
	}
	if c.PostProcess.JPEGQuality == 0 {
		c.PostProcess.JPEGQuality = defaultPostJPEGQuality
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupEnv("OPENROUTER_API_KEY")
	}
}

func (c *Config) normalizeAssembly() {
	c.Assembly.URL = strings.TrimRight(strings.TrimSpace(c.Assembly.URL), "/")
	if c.Assembly.URL == "" {
		c.Assembly.URL = defaultAssemblyURL
	}
	if c.Assembly.TimeoutSeconds <= 0 {
		c.Assembly.TimeoutSeconds = defaultAssemblyTimeoutSeconds
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
