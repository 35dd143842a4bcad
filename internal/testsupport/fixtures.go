package testsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"slopreel/internal/scenes"
)

// PNG returns a solid grey PNG of the given size.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// MP3 returns frames of silent-looking MPEG-1 Layer III data at 128 kbps /
// 44.1 kHz, about 26ms per frame.
func MP3(frames int) []byte {
	const frameLen = 417
	out := make([]byte, 0, frames*frameLen)
	for range frames {
		frame := make([]byte, frameLen)
		frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0x64
		out = append(out, frame...)
	}
	return out
}

// Scenes builds n indexed scenes with ids scene-0..scene-n-1, each with a
// script and an image description.
func Scenes(n int) scenes.List {
	list := make(scenes.List, 0, n)
	for i := range n {
		list = append(list, scenes.Scene{
			ID:               fmt.Sprintf("scene-%d", i),
			Index:            i,
			Script:           fmt.Sprintf("Narration for scene %d.", i),
			ImageDescription: fmt.Sprintf("Illustration for scene %d", i),
		})
	}
	return list
}
