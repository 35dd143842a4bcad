package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var hexColour = regexp.MustCompile(`^#(?:[0-9a-f]{3}|[0-9a-f]{6})$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validatePostProcess(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.FrameRate <= 0 || c.Video.FrameRate > 120 {
		return errors.New("video.frame_rate must be between 1 and 120")
	}
	return nil
}

func (c *Config) validateImage() error {
	switch c.Image.Provider {
	case ImageProviderOpenAI, ImageProviderPollinations:
	default:
		return fmt.Errorf("image.provider %q is not supported (use %q or %q)", c.Image.Provider, ImageProviderOpenAI, ImageProviderPollinations)
	}
	switch c.Image.Quality {
	case "low", "medium", "high", "auto":
	default:
		return fmt.Errorf("image.quality %q must be one of low, medium, high, auto", c.Image.Quality)
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Provider {
	case TTSProviderElevenLabs:
		if c.TTS.VoiceID == "" {
			return errors.New("tts.voice_id must be set for the elevenlabs provider")
		}
	case TTSProviderDeepgram:
	default:
		return fmt.Errorf("tts.provider %q is not supported (use %q or %q)", c.TTS.Provider, TTSProviderElevenLabs, TTSProviderDeepgram)
	}
	if c.TTS.Speed < minTTSSpeed || c.TTS.Speed > maxTTSSpeed {
		return fmt.Errorf("tts.speed must be between %.1f and %.1f", minTTSSpeed, maxTTSSpeed)
	}
	if c.TTS.MaxConcurrent < minTTSConcurrent || c.TTS.MaxConcurrent > maxTTSConcurrent {
		return fmt.Errorf("tts.max_concurrent must be between %d and %d", minTTSConcurrent, maxTTSConcurrent)
	}
	return nil
}

func (c *Config) validatePostProcess() error {
	p := c.PostProcess
	if !hexColour.MatchString(p.Background) {
		return fmt.Errorf("postprocess.background %q must be a hex colour like #ffffff", p.Background)
	}
	if p.TargetBrightness < 0 || p.TargetBrightness > 1 {
		return errors.New("postprocess.target_brightness must be between 0 and 1")
	}
	if p.MaxGain < 1 {
		return errors.New("postprocess.max_gain must be >= 1")
	}
	if p.Contrast <= 0 {
		return errors.New("postprocess.contrast must be positive")
	}
	switch p.Format {
	case "jpeg", "png":
	default:
		return fmt.Errorf("postprocess.format %q must be jpeg or png", p.Format)
	}
	if p.JPEGQuality < 1 || p.JPEGQuality > 100 {
		return errors.New("postprocess.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && !strings.HasPrefix(c.Notifications.NtfyTopic, "http") {
		return errors.New("notifications.ntfy_topic must be a full URL such as https://ntfy.sh/my-topic")
	}
	return nil
}

// RequireImageCredentials reports a configuration error when the selected
// image provider needs an API key that is not set.
func (c *Config) RequireImageCredentials() error {
	if c.Image.Provider == ImageProviderOpenAI && c.Image.APIKey == "" {
		return fmt.Errorf("image.api_key is required for the openai provider. Set OPENAI_API_KEY or edit %s (create with 'slopreel config init')", configHint())
	}
	return nil
}

// RequireTTSCredentials reports a configuration error when the TTS key is missing.
func (c *Config) RequireTTSCredentials() error {
	if c.TTS.APIKey != "" {
		return nil
	}
	env := "ELEVENLABS_API_KEY"
	if c.TTS.Provider == TTSProviderDeepgram {
		env = "DEEPGRAM_API_KEY"
	}
	return fmt.Errorf("tts.api_key is required for the %s provider. Set %s or edit %s", c.TTS.Provider, env, configHint())
}

// RequireLLMCredentials reports a configuration error when scene drafting cannot run.
func (c *Config) RequireLLMCredentials() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required for drafting. Set OPENROUTER_API_KEY or edit %s", configHint())
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path
}
