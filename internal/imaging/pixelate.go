package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Pixelate reduces img to blocky pixel art by averaging square blocks.
//
// The image is partitioned into blockSize x blockSize squares starting at the
// top-left corner; blocks on the right and bottom edges are clipped to the
// image. Each block's red, green and blue channels are replaced by their
// arithmetic mean over the in-bounds pixels, using integer truncation
// (sum / count). Every pixel keeps its own alpha value.
//
// Parameters:
//   - img: Source image. It is not modified.
//   - blockSize: Edge length of the averaging block in pixels. Must be > 0.
//
// Returns:
//   - *image.NRGBA: A new image with the same dimensions as img.
//   - error: ErrInvalidParameter for a nil or zero-area image or blockSize <= 0.
//
// A blockSize of 1 returns an RGB-identical copy of img.
func Pixelate(img image.Image, blockSize int) (*image.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidParameter, blockSize)
	}

	dst := imaging.Clone(img)
	if blockSize == 1 {
		return dst, nil
	}

	width := dst.Rect.Dx()
	height := dst.Rect.Dy()
	// A block larger than the image covers all of it.
	blockSize = min(blockSize, max(width, height))
	blockRows := (height-1)/blockSize + 1

	forEachBand(blockRows, func(row int) {
		y0 := row * blockSize
		y1 := min(y0+blockSize, height)
		for x0 := 0; x0 < width; x0 += blockSize {
			x1 := min(x0+blockSize, width)
			averageBlock(dst, x0, y0, x1, y1)
		}
	})

	return dst, nil
}

// averageBlock overwrites the RGB channels of the block [x0,x1)x[y0,y1) with
// their truncated mean, leaving alpha untouched.
func averageBlock(img *image.NRGBA, x0, y0, x1, y1 int) {
	var sumR, sumG, sumB, count int
	for y := y0; y < y1; y++ {
		i := img.PixOffset(x0, y)
		for x := x0; x < x1; x++ {
			sumR += int(img.Pix[i+0])
			sumG += int(img.Pix[i+1])
			sumB += int(img.Pix[i+2])
			count++
			i += 4
		}
	}

	r := uint8(sumR / count)
	g := uint8(sumG / count)
	b := uint8(sumB / count)
	for y := y0; y < y1; y++ {
		i := img.PixOffset(x0, y)
		for x := x0; x < x1; x++ {
			img.Pix[i+0] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
			i += 4
		}
	}
}
