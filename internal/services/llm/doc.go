// Package llm provides an OpenRouter chat client used to draft scene lists.
//
// CompleteJSON sends a system and user prompt and returns the model's JSON
// payload. DraftScenes builds on it to turn a topic into scenes carrying a
// narration script and an image description. DecodeLLMJSON tolerates the
// usual model quirks such as code fences and prose around the object.
//
// Requests are retried through providerhttp's policy on 408/429/5xx,
// timeouts, and empty completions. Context cancellation stops retries.
package llm
