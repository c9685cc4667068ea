// Package thumbnail produces downscaled JPEG renditions of uploaded photos.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"

	// Register decoders for the formats uploads arrive in.
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// DefaultSize is the default bounding box edge for thumbnails, in pixels.
const DefaultSize = 512

// jpegQuality is the encoding quality of thumbnail renditions.
const jpegQuality = 80

// JPEG decodes an image and re-encodes it as a JPEG that fits inside a
// size x size box, preserving aspect ratio. Images already inside the box
// are re-encoded at their original dimensions, never enlarged.
func JPEG(data []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > size || height > size {
		if width >= height {
			height = height * size / width
			width = size
		} else {
			width = width * size / height
			height = size
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}

		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
