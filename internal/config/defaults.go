package config

const (
	defaultConfigPath     = "~/.config/slopreel/config.toml"
	defaultOutputDir      = "~/.local/share/slopreel/runs"
	defaultLogDir         = "~/.local/share/slopreel/logs"
	defaultLedgerPath     = "~/.local/share/slopreel/ledger.db"
	defaultAPIBind        = "127.0.0.1:7488"
	defaultVideoWidth     = 1080
	defaultVideoHeight    = 1920
	defaultVideoFrameRate = 30

	ImageProviderOpenAI       = "openai"
	ImageProviderPollinations = "pollinations"
	TTSProviderElevenLabs     = "elevenlabs"
	TTSProviderDeepgram       = "deepgram"

	defaultOpenAIBaseURL          = "https://api.openai.com/v1"
	defaultOpenAIImageModel       = "gpt-image-1"
	defaultPollinationsBaseURL    = "https://image.pollinations.ai"
	defaultPollinationsModel      = "flux"
	defaultImageQuality           = "medium"
	defaultImageMaxConcurrent     = 8
	defaultImageTimeoutSeconds    = 120
	defaultProviderRetryAttempts  = 3
	defaultElevenLabsBaseURL      = "https://api.elevenlabs.io"
	defaultElevenLabsModel        = "eleven_multilingual_v2"
	defaultElevenLabsVoiceID      = "21m00Tcm4TlvDq8ikWT"
	defaultDeepgramBaseURL        = "https://api.deepgram.com"
	defaultDeepgramModel          = "aura-asteria-en"
	defaultTTSSpeed               = 1.0
	defaultTTSMaxConcurrent       = 3
	defaultTTSTimeoutSeconds      = 60
	minTTSSpeed                   = 0.7
	maxTTSSpeed                   = 1.2
	minTTSConcurrent              = 1
	maxTTSConcurrent              = 10
	defaultPostBackground         = "#ffffff"
	defaultPostTargetBrightness   = 0.5
	defaultPostMaxGain            = 1.6
	defaultPostFormat             = "jpeg"
	defaultPostJPEGQuality        = 90
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMReferer             = "https://github.com/slopreel/slopreel"
	defaultLLMTitle               = "slopreel scene drafter"
	defaultLLMTimeoutSeconds      = 60
	defaultAssemblyURL            = "http://127.0.0.1:8000"
	defaultAssemblyTimeoutSeconds = 300
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
			APIBind:    defaultAPIBind,
		},
		Video: Video{
			Width:     defaultVideoWidth,
			Height:    defaultVideoHeight,
			FrameRate: defaultVideoFrameRate,
		},
		Image: Image{
			Provider:       ImageProviderOpenAI,
			Quality:        defaultImageQuality,
			MaxConcurrent:  defaultImageMaxConcurrent,
			TimeoutSeconds: defaultImageTimeoutSeconds,
			RetryAttempts:  defaultProviderRetryAttempts,
		},
		TTS: TTS{
			Provider:       TTSProviderElevenLabs,
			Speed:          defaultTTSSpeed,
			MaxConcurrent:  defaultTTSMaxConcurrent,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			RetryAttempts:  defaultProviderRetryAttempts,
		},
		PostProcess: PostProcess{
			Enabled:          true,
			Background:       defaultPostBackground,
			TargetBrightness: defaultPostTargetBrightness,
			MaxGain:          defaultPostMaxGain,
			Contrast:         1.0,
			Format:           defaultPostFormat,
			JPEGQuality:      defaultPostJPEGQuality,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Assembly: Assembly{
			URL:            defaultAssemblyURL,
			TimeoutSeconds: defaultAssemblyTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Generation:     true,
			Assembly:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
