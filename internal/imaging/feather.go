package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Feather softens a keyed cut-out by blurring its alpha channel.
//
// Only alpha is blurred; RGB values are copied unchanged so that pixels which
// become partly visible show their original color. sigma is the Gaussian
// radius in pixels: 0 returns a plain copy and negative values are rejected
// with ErrInvalidParameter.
func Feather(img image.Image, sigma float64) (*image.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if sigma < 0 {
		return nil, fmt.Errorf("%w: feather radius must not be negative, got %g", ErrInvalidParameter, sigma)
	}

	dst := imaging.Clone(img)
	if sigma == 0 {
		return dst, nil
	}

	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	alpha := image.NewGray(dst.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			alpha.SetGray(x, y, color.Gray{Y: dst.Pix[dst.PixOffset(x, y)+3]})
		}
	}

	// The blurred mask comes back as opaque RGBA with R == G == B.
	blurred := blur.Gaussian(alpha, sigma)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[dst.PixOffset(x, y)+3] = blurred.Pix[blurred.PixOffset(x, y)]
		}
	}

	return dst, nil
}
