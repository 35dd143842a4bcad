// Package image adapts image generation providers behind the Generator
// interface.
//
// OpenAIClient talks to any OpenAI-compatible /images/generations endpoint and
// reports safety rejections as ErrContentRefused. PollinationsClient uses the
// keyless Pollinations GET API. Negotiate maps a video resolution onto the
// sizes or aspect ratios a model accepts.
package image
