// Package tts adapts text-to-speech providers behind the Synthesizer
// interface.
//
// ElevenLabsClient returns character alignment which is folded into word
// timings; DeepgramClient returns plain MP3 and leaves Timing nil.
package tts
