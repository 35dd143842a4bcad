package image

import (
	"context"
	"math"
	"net/http"
	"strings"

	"slopreel/internal/services"
)

// ErrContentRefused marks prompts the provider declined on policy grounds.
var ErrContentRefused = services.ErrContentRefused

// Request describes one image generation.
type Request struct {
	Prompt      string
	Model       string
	Size        string
	AspectRatio string
	Quality     string
	Width       int
	Height      int
}

// Result is the generated image payload.
type Result struct {
	Bytes    []byte
	MimeType string
}

// Generator produces an image for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Result, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Dimensions is what a model accepts for output shape: either a fixed size
// string or an aspect ratio.
type Dimensions struct {
	Size        string
	AspectRatio string
	Width       int
	Height      int
}

type shape struct {
	label string
	w, h  int
}

var (
	gptImageSizes = []shape{{"1024x1024", 1024, 1024}, {"1536x1024", 1536, 1024}, {"1024x1536", 1024, 1536}}
	dalle3Sizes   = []shape{{"1024x1024", 1024, 1024}, {"1792x1024", 1792, 1024}, {"1024x1792", 1024, 1792}}
	aspectRatios  = []shape{{"16:9", 16, 9}, {"9:16", 9, 16}, {"1:1", 1, 1}, {"4:3", 4, 3}, {"3:4", 3, 4}}
)

// Negotiate maps the configured video resolution onto what model accepts.
// OpenAI models get the nearest supported size; everything else gets the
// nearest aspect ratio. Width and Height always echo the request.
func Negotiate(model string, width, height int) Dimensions {
	d := Dimensions{Width: width, Height: height}
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt-image"):
		d.Size = nearest(gptImageSizes, width, height).label
	case strings.HasPrefix(m, "dall-e"):
		d.Size = nearest(dalle3Sizes, width, height).label
	default:
		d.AspectRatio = nearest(aspectRatios, width, height).label
	}
	return d
}

func nearest(options []shape, width, height int) shape {
	target := math.Log(float64(width) / float64(height))
	best := options[0]
	bestDiff := math.Inf(1)
	for _, opt := range options {
		diff := math.Abs(math.Log(float64(opt.w)/float64(opt.h)) - target)
		if diff < bestDiff {
			best, bestDiff = opt, diff
		}
	}
	return best
}

// sniffImage returns the detected mime type when data looks like an image.
func sniffImage(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mime := http.DetectContentType(data)
	return mime, strings.HasPrefix(mime, "image/")
}
