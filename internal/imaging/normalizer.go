// Package imaging validates and normalizes uploaded monument photos
// before they are sent to the vision endpoint.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

const (
	// MaxDimension bounds the width and height of normalized images.
	MaxDimension = 800

	// MaxUploadBytes is the payload ceiling enforced on the normalized
	// image before it is submitted to the vision endpoint.
	MaxUploadBytes = 5 * 1024 * 1024 // 5 MB

	jpegQuality = 85
)

// AllowedFile reports whether the filename carries an accepted image
// extension (png, jpg, jpeg).
func AllowedFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Normalize re-encodes raw image bytes so that both dimensions are at
// most MaxDimension, preserving aspect ratio and never upscaling. JPEG
// input stays JPEG at quality 85; PNG is rewritten with best compression.
// Decode failures fail open: the original bytes are returned unchanged
// and the caller still enforces MaxUploadBytes on the result.
func Normalize(raw []byte) []byte {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Error().Err(err).Msg("image decode failed, passing original through")
		return raw
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := fitDimensions(width, height, MaxDimension)

	out := img
	if newWidth != width || newHeight != height {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, out)
	default:
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		log.Error().Err(err).Str("format", format).Msg("image re-encode failed, passing original through")
		return raw
	}

	return buf.Bytes()
}

// fitDimensions scales (width, height) to fit within max while keeping
// the aspect ratio. Images already inside the bound are left alone.
func fitDimensions(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}

	if width > height {
		return max, int(float64(height) * float64(max) / float64(width))
	}

	return int(float64(width) * float64(max) / float64(height)), max
}
