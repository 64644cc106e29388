// Package imaging shrinks large photos before they are sent to a model.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

const (
	jpegMIMEType       = "image/jpeg"
	DefaultJPEGQuality = 85
)

// Downscaler resizes images whose longer side exceeds MaxDimension.
// A zero MaxDimension passes every image through untouched.
type Downscaler struct {
	MaxDimension int
	Quality      int
}

// Prepare returns the bytes to upload and their MIME type.
func (d Downscaler) Prepare(data []byte) ([]byte, string, error) {
	mimeType := DetectMIMEType(data)
	if d.MaxDimension <= 0 {
		return data, mimeType, nil
	}
	config, _, configErr := image.DecodeConfig(bytes.NewReader(data))
	if configErr != nil {
		return data, mimeType, nil
	}
	if max(config.Width, config.Height) <= d.MaxDimension {
		return data, mimeType, nil
	}

	decoded, _, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return nil, "", fmt.Errorf("decode image: %w", decodeErr)
	}
	width, height := fitWithin(config.Width, config.Height, d.MaxDimension)
	resized := transform.Resize(decoded, width, height, transform.Lanczos)

	quality := d.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var encoded bytes.Buffer
	if err := imgio.JPEGEncoder(quality)(&encoded, resized); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return encoded.Bytes(), jpegMIMEType, nil
}

// DetectMIMEType sniffs the image format, defaulting to JPEG.
func DetectMIMEType(data []byte) string {
	detected := http.DetectContentType(data)
	switch detected {
	case "image/png", "image/gif", "image/webp", jpegMIMEType:
		return detected
	default:
		return jpegMIMEType
	}
}

func fitWithin(width int, height int, limit int) (int, int) {
	if width >= height {
		return limit, max(1, height*limit/width)
	}
	return max(1, width*limit/height), limit
}
