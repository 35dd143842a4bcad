package postprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"strconv"
	"strings"

	"slopreel/internal/config"
	"slopreel/internal/services"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Options controls the clean-up pass.
type Options struct {
	Enabled          bool
	Background       color.RGBA
	TargetBrightness float64
	MaxGain          float64
	Contrast         float64
	Format           string
	JPEGQuality      int
}

// DefaultOptions flattens onto white, nudges mean luminance toward 0.5 and
// re-encodes as JPEG q90.
func DefaultOptions() Options {
	return Options{
		Enabled:          true,
		Background:       color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		TargetBrightness: 0.5,
		MaxGain:          1.6,
		Contrast:         1,
		Format:           FormatJPEG,
		JPEGQuality:      90,
	}
}

// Processor applies Options to generated images.
type Processor struct {
	opts Options
}

// New returns a Processor.
func New(opts Options) *Processor {
	if opts.MaxGain < 1 {
		opts.MaxGain = 1
	}
	if opts.Contrast <= 0 {
		opts.Contrast = 1
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = jpeg.DefaultQuality
	}
	if opts.Format != FormatPNG {
		opts.Format = FormatJPEG
	}
	return &Processor{opts: opts}
}

// Process flattens transparency, corrects brightness and contrast, and
// re-encodes. When disabled the input is returned untouched.
func (p *Processor) Process(ctx context.Context, data []byte, mimeType string) ([]byte, string, error) {
	if p == nil || !p.opts.Enabled {
		return data, mimeType, nil
	}
	src, err := decode(data, mimeType)
	if err != nil {
		return nil, "", services.Wrap(services.ErrPostProcess, "image", "decode", "", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	canvas := flatten(src, p.opts.Background)
	gain := 1.0
	if p.opts.TargetBrightness > 0 {
		if mean := MeanLuminance(canvas); mean > 0 {
			gain = clamp(p.opts.TargetBrightness/mean, 1/p.opts.MaxGain, p.opts.MaxGain)
		}
	}
	if gain != 1 || p.opts.Contrast != 1 {
		if err := adjust(ctx, canvas, gain, p.opts.Contrast); err != nil {
			return nil, "", err
		}
	}

	var buf bytes.Buffer
	switch p.opts.Format {
	case FormatPNG:
		err = png.Encode(&buf, canvas)
	default:
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: p.opts.JPEGQuality})
	}
	if err != nil {
		return nil, "", services.Wrap(services.ErrPostProcess, "image", "encode", p.opts.Format, err)
	}
	return buf.Bytes(), MimeType(p.opts.Format), nil
}

// MimeType returns the content type produced for format.
func MimeType(format string) string {
	if format == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

func decode(data []byte, mimeType string) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	sniffed := http.DetectContentType(data)
	switch {
	case sniffed == "image/png":
		return png.Decode(bytes.NewReader(data))
	case sniffed == "image/jpeg":
		return jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported image format %s (declared %s)", sniffed, mimeType)
	}
}

func flatten(src image.Image, bg color.RGBA) *image.RGBA {
	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)
	return canvas
}

// MeanLuminance returns the Rec. 709 relative luminance averaged over the
// image, in [0, 1].
func MeanLuminance(img *image.RGBA) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}
	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			px := row[x*4 : x*4+3]
			sum += 0.2126*float64(px[0]) + 0.7152*float64(px[1]) + 0.0722*float64(px[2])
		}
	}
	return sum / float64(pixels) / 255
}

func adjust(ctx context.Context, img *image.RGBA, gain, contrast float64) error {
	var lut [256]uint8
	for i := range lut {
		v := float64(i) / 255 * gain
		v = (v-0.5)*contrast + 0.5
		lut[i] = uint8(math.Round(clamp(v, 0, 1) * 255))
	}
	bounds := img.Bounds()
	for y := 0; y < bounds.Dy(); y++ {
		if y%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = lut[row[i]]
			row[i+1] = lut[row[i+1]]
			row[i+2] = lut[row[i+2]]
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ParseHexColour parses #rgb or #rrggbb into an opaque colour.
func ParseHexColour(value string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", value, err)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}

// OptionsFromConfig converts the [postprocess] config section.
func OptionsFromConfig(cfg config.PostProcess) (Options, error) {
	bg, err := ParseHexColour(cfg.Background)
	if err != nil {
		return Options{}, services.Wrap(services.ErrConfiguration, "postprocess", "background", "", err)
	}
	return Options{
		Enabled:          cfg.Enabled,
		Background:       bg,
		TargetBrightness: cfg.TargetBrightness,
		MaxGain:          cfg.MaxGain,
		Contrast:         cfg.Contrast,
		Format:           cfg.Format,
		JPEGQuality:      cfg.JPEGQuality,
	}, nil
}
