package fallback

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"log"
)

// 1x1 transparent PNG, decoded once at init.
const transparentPixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMB/6X+ZQAAAABJRU5ErkJggg=="

var transparentPixelBytes []byte

func init() {
	data, err := base64.StdEncoding.DecodeString(transparentPixelBase64)
	if err != nil {
		log.Printf("⚠️ Failed to decode placeholder pixel: %v", err)
		return
	}
	transparentPixelBytes = data
}

// PlaceholderBytes returns a copy of the transparent PNG bytes.
func PlaceholderBytes() []byte {
	if len(transparentPixelBytes) == 0 {
		return []byte{}
	}
	out := make([]byte, len(transparentPixelBytes))
	copy(out, transparentPixelBytes)
	return out
}

// ArtifactBytes renders the deterministic placeholder served when the
// provider cannot fulfil a generation: a flat 384x512 (3:4) neutral grey
// PNG. The theme only varies a thin banner tint so identical failures
// always produce identical bytes for the same theme.
func ArtifactBytes(theme string) []byte {
	const width, height = 384, 512

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bg := color.RGBA{R: 0xE5, G: 0xE5, B: 0xE5, A: 0xFF}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, bg)
		}
	}

	// Banner tint derived from the theme text, so different themes remain
	// visually distinguishable while staying deterministic.
	var sum uint32
	for _, r := range theme {
		sum = sum*31 + uint32(r)
	}
	banner := color.RGBA{
		R: uint8(96 + sum%96),
		G: uint8(96 + (sum/96)%96),
		B: uint8(96 + (sum/9216)%96),
		A: 0xFF,
	}
	for y := height - 48; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, banner)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Printf("⚠️ Failed to encode placeholder artifact: %v", err)
		return PlaceholderBytes()
	}
	return buf.Bytes()
}
