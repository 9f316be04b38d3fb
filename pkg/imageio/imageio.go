// Package imageio reads noisy images into intensity grids and writes
// labelings back out as grayscale images.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"lbpdenoise/internal/models"
)

// ErrUnsupportedFormat is returned by Save for an unknown file extension
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Load decodes the image at path (PNG, JPEG, GIF, BMP, TIFF or WebP) and
// converts it to a grid of intensities in [0, levels).
func Load(path string, levels int) (*models.Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return FromImage(img, levels), nil
}

// FromImage converts any image to luminance and quantizes it to levels
// values. With 256 levels an 8-bit gray image maps to itself.
func FromImage(img image.Image, levels int) *models.Grid {
	bounds := img.Bounds()
	grid := models.NewGrid(bounds.Dx(), bounds.Dy())

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			gray := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			grid.Set(x, y, quantize(gray.Y, levels))
		}
	}

	return grid
}

// ToImage renders a labeling as a grayscale image, stretching [0, levels)
// back to the full intensity range. Up to 256 levels produce an 8-bit image,
// more produce a 16-bit one.
func ToImage(l *models.Labeling, levels int) image.Image {
	rect := image.Rect(0, 0, l.Width, l.Height)

	if levels <= 256 {
		img := image.NewGray(rect)
		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(expand(l.At(x, y), levels, 255))})
			}
		}
		return img
	}

	img := image.NewGray16(rect)
	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(expand(l.At(x, y), levels, 65535))})
		}
	}
	return img
}

// GridImage renders a grid the same way ToImage renders a labeling
func GridImage(g *models.Grid, levels int) image.Image {
	return ToImage(&models.Labeling{Labels: g.Pix, Width: g.Width, Height: g.Height}, levels)
}

// Save writes the labeling to path, choosing the encoder from the file
// extension. Parent directories are created as needed.
func Save(path string, l *models.Labeling, levels int) error {
	return SaveImage(path, ToImage(l, levels))
}

// SaveImage encodes img to path based on its extension
func SaveImage(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	switch ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(file, img)
	default:
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to encode image %s: %w", path, err)
	}

	return file.Close()
}

// quantize maps a 16-bit intensity to [0, levels)
func quantize(v uint16, levels int) int {
	return int(uint64(v) * uint64(levels) / 65536)
}

// expand maps a label in [0, levels) onto [0, max)
func expand(label, levels, max int) int {
	if levels <= 1 {
		return 0
	}
	if levels == max+1 {
		return label
	}
	return label * max / (levels - 1)
}
