// Package config loads, normalizes, and validates slopreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENAI_API_KEY and ELEVENLABS_API_KEY. Provider-specific
// defaults (base URLs, models, voices) are filled in once the provider is
// known.
//
// Credentials are checked lazily through the Require*Credentials helpers so
// commands that never call a provider (history, config show) still load.
package config
