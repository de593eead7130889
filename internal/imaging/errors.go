package imaging

import (
	"errors"
	"fmt"
	"image"
)

// Error categories returned by the pixel pipeline. Callers should test with
// errors.Is; the returned errors carry additional context.
var (
	// ErrInvalidParameter reports a nil or zero-area image, or a size,
	// block size or tolerance outside its valid range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDimensionMismatch reports a comparison between images of
	// different width or height.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrIO reports a failure to read, decode, encode or write an image file.
	ErrIO = errors.New("image i/o failure")

	// ErrUnsupportedFormat reports a file suffix no encoder is registered for.
	// It wraps ErrIO.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported image format", ErrIO)
)

// validateImage rejects nil and zero-area images.
func validateImage(img image.Image, name string) error {
	if img == nil {
		return fmt.Errorf("%w: %s image is nil", ErrInvalidParameter, name)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: %s image has zero area (%dx%d)", ErrInvalidParameter, name, b.Dx(), b.Dy())
	}
	return nil
}
