package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// KeyBackground makes pixels close to a background color fully transparent.
//
// A pixel is keyed when every RGB channel differs from bg by strictly less than
// tolerance:
//
//	|R-bgR| < tolerance && |G-bgG| < tolerance && |B-bgB| < tolerance
//
// Keyed pixels get alpha 0 and keep their RGB values; all other pixels are
// copied unchanged, alpha included. Because the comparison is strict, a
// tolerance of 0 keys nothing and a tolerance of 1 keys exact matches only.
//
// The result always has an independent alpha channel (*image.NRGBA) and img is
// not modified. Returns ErrInvalidParameter for a nil or zero-area image, a nil
// bg, or a negative tolerance.
func KeyBackground(img image.Image, bg color.Color, tolerance int) (*image.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if bg == nil {
		return nil, fmt.Errorf("%w: background color is nil", ErrInvalidParameter)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("%w: tolerance must not be negative, got %d", ErrInvalidParameter, tolerance)
	}

	dst := imaging.Clone(img)
	if tolerance == 0 {
		return dst, nil
	}

	key := color.NRGBAModel.Convert(bg).(color.NRGBA)
	kr, kg, kb := int(key.R), int(key.G), int(key.B)

	for y := 0; y < dst.Rect.Dy(); y++ {
		i := dst.PixOffset(0, y)
		for x := 0; x < dst.Rect.Dx(); x++ {
			if absInt(int(dst.Pix[i+0])-kr) < tolerance &&
				absInt(int(dst.Pix[i+1])-kg) < tolerance &&
				absInt(int(dst.Pix[i+2])-kb) < tolerance {
				dst.Pix[i+3] = 0
			}
			i += 4
		}
	}

	return dst, nil
}

// Matches reports whether c would be keyed against bg at tolerance.
func Matches(c, bg color.Color, tolerance int) bool {
	p := color.NRGBAModel.Convert(c).(color.NRGBA)
	k := color.NRGBAModel.Convert(bg).(color.NRGBA)
	return absInt(int(p.R)-int(k.R)) < tolerance &&
		absInt(int(p.G)-int(k.G)) < tolerance &&
		absInt(int(p.B)-int(k.B)) < tolerance
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
