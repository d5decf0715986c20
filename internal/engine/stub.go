package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
)

// StubTransformer returns a small generated PNG without calling any
// provider (for development without API keys, and for tests).
type StubTransformer struct{}

func (s *StubTransformer) Transform(_ context.Context, _ []byte, _ string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: 0, B: uint8(y * 32), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
