package postprocess_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"slopreel/internal/postprocess"
	"slopreel/internal/services"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestProcessFlattensTransparencyOntoBackground(t *testing.T) {
	opts := postprocess.DefaultOptions()
	opts.TargetBrightness = 0
	opts.Format = postprocess.FormatPNG
	opts.Background = color.RGBA{R: 10, G: 20, B: 30, A: 255}
	p := postprocess.New(opts)

	out, mime, err := p.Process(context.Background(), encodePNG(t, solid(4, 4, color.NRGBA{})), "image/png")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("unexpected mime %s", mime)
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, a := decoded.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Fatalf("unexpected flattened pixel %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestProcessBrightensDarkImagesWithinGainLimit(t *testing.T) {
	opts := postprocess.DefaultOptions()
	opts.Format = postprocess.FormatPNG
	opts.MaxGain = 1.5
	p := postprocess.New(opts)

	out, _, err := p.Process(context.Background(), encodePNG(t, solid(8, 8, color.NRGBA{R: 40, G: 40, B: 40, A: 255})), "image/png")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	decoded, _ := png.Decode(bytes.NewReader(out))
	r, _, _, _ := decoded.At(0, 0).RGBA()
	if got := r >> 8; got != 60 {
		t.Fatalf("expected gain clamped to 1.5 (40 -> 60), got %d", got)
	}
}

func TestProcessEncodesJPEG(t *testing.T) {
	p := postprocess.New(postprocess.DefaultOptions())
	out, mime, err := p.Process(context.Background(), encodePNG(t, solid(16, 16, color.NRGBA{R: 128, G: 128, B: 128, A: 255})), "image/png")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("unexpected mime %s", mime)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
}

func TestProcessRejectsGarbage(t *testing.T) {
	p := postprocess.New(postprocess.DefaultOptions())
	_, _, err := p.Process(context.Background(), []byte("<html>nope</html>"), "image/png")
	if !errors.Is(err, services.ErrPostProcess) {
		t.Fatalf("expected ErrPostProcess, got %v", err)
	}
}

func TestProcessDisabledPassesThrough(t *testing.T) {
	p := postprocess.New(postprocess.Options{})
	in := []byte("anything")
	out, mime, err := p.Process(context.Background(), in, "image/webp")
	if err != nil || !bytes.Equal(out, in) || mime != "image/webp" {
		t.Fatalf("expected passthrough, got %q %s %v", out, mime, err)
	}
}

func TestMeanLuminanceAndHexColour(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{A: 255})
	if got := postprocess.MeanLuminance(img); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 mean luminance, got %v", got)
	}
	c, err := postprocess.ParseHexColour("#0f8")
	if err != nil || c != (color.RGBA{R: 0x00, G: 0xff, B: 0x88, A: 0xff}) {
		t.Fatalf("unexpected colour %+v %v", c, err)
	}
	if _, err := postprocess.ParseHexColour("white"); err == nil {
		t.Fatal("expected error for named colour")
	}
}
