// Package providerhttp holds the HTTP plumbing shared by the image, TTS, LLM
// and assembly clients: JSON requests, status errors carrying Retry-After,
// and a bounded exponential retry policy.
package providerhttp
