package main

import (
	"fmt"
	"log/slog"

	"slopreel/internal/config"
	"slopreel/internal/orchestrator"
	"slopreel/internal/postprocess"
	"slopreel/internal/providers/image"
	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/providers/tts"
	"slopreel/internal/services/llm"
)

func retryPolicy(attempts int) providerhttp.Policy {
	policy := providerhttp.DefaultPolicy()
	if attempts > 0 {
		policy.MaxAttempts = attempts
	}
	return policy
}

func newImageGenerator(cfg *config.Config) (image.Generator, error) {
	policy := image.WithRetryPolicy(retryPolicy(cfg.Image.RetryAttempts))
	switch cfg.Image.Provider {
	case config.ImageProviderOpenAI:
		return image.NewOpenAIClient(image.OpenAIConfig{
			APIKey:  cfg.Image.APIKey,
			BaseURL: cfg.Image.BaseURL,
			Timeout: cfg.ImageTimeout(),
		}, policy), nil
	case config.ImageProviderPollinations:
		return image.NewPollinationsClient(image.PollinationsConfig{
			BaseURL: cfg.Image.BaseURL,
			Timeout: cfg.ImageTimeout(),
		}, policy), nil
	default:
		return nil, fmt.Errorf("image provider %q is not supported", cfg.Image.Provider)
	}
}

func newSynthesizer(cfg *config.Config) (tts.Synthesizer, error) {
	policy := tts.WithRetryPolicy(retryPolicy(cfg.TTS.RetryAttempts))
	switch cfg.TTS.Provider {
	case config.TTSProviderElevenLabs:
		return tts.NewElevenLabsClient(tts.ElevenLabsConfig{
			APIKey:  cfg.TTS.APIKey,
			BaseURL: cfg.TTS.BaseURL,
			Timeout: cfg.TTSTimeout(),
		}, policy), nil
	case config.TTSProviderDeepgram:
		return tts.NewDeepgramClient(tts.DeepgramConfig{
			APIKey:  cfg.TTS.APIKey,
			BaseURL: cfg.TTS.BaseURL,
			Timeout: cfg.TTSTimeout(),
		}, policy), nil
	default:
		return nil, fmt.Errorf("tts provider %q is not supported", cfg.TTS.Provider)
	}
}

func newPostProcessor(cfg *config.Config) (*postprocess.Processor, error) {
	opts, err := postprocess.OptionsFromConfig(cfg.PostProcess)
	if err != nil {
		return nil, err
	}
	return postprocess.New(opts), nil
}

func newLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}

func newLimiters(cfg *config.Config, logger *slog.Logger) (images, audio *orchestrator.JobLimiter) {
	return orchestrator.NewJobLimiter("image", cfg.Image.MaxConcurrent, logger),
		orchestrator.NewJobLimiter("tts", cfg.TTS.MaxConcurrent, logger)
}

func orchestratorSettings(cfg *config.Config, runID string) orchestrator.Settings {
	return orchestrator.Settings{
		RunID:         runID,
		ImageProvider: cfg.Image.Provider,
		ImageModel:    cfg.Image.Model,
		ImageQuality:  cfg.Image.Quality,
		Width:         cfg.Video.Width,
		Height:        cfg.Video.Height,
		TTSProvider:   cfg.TTS.Provider,
		VoiceID:       cfg.TTS.VoiceID,
		TTSModel:      cfg.TTS.Model,
		Speed:         cfg.TTS.Speed,
	}
}
