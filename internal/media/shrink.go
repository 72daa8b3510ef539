package media

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxDimension = 2048
	jpegQuality  = 90
)

// Shrink re-encodes a file as JPEG with its longest side capped at 2048
// pixels when it is larger than maxBytes. Files at or below the limit are
// left untouched.
func Shrink(path string, maxBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() <= maxBytes {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	src, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := width, height
	switch {
	case width >= height && width > maxDimension:
		newWidth = maxDimension
		newHeight = height * maxDimension / width
	case height > width && height > maxDimension:
		newHeight = maxDimension
		newWidth = width * maxDimension / height
	}

	out := src
	if newWidth != width || newHeight != height {
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
		out = dst
	}

	target, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(target, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		target.Close()
		return err
	}
	return target.Close()
}
