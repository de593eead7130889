package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// maxPaletteSamples bounds the number of pixels fed to k-means.
const maxPaletteSamples = 12000

// QuantizePalette reduces img to at most colors distinct RGB values.
//
// The palette is found with k-means over the RGB values of the visible pixels
// (a uniform subsample on large images); each pixel is then replaced by its
// nearest palette entry. Alpha is preserved. Cluster seeding is random, so the
// exact palette may vary between runs.
//
// Returns ErrInvalidParameter for a nil or zero-area image or colors < 1.
func QuantizePalette(img image.Image, colors int) (*image.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if colors < 1 {
		return nil, fmt.Errorf("%w: palette size must be at least 1, got %d", ErrInvalidParameter, colors)
	}

	dst := imaging.Clone(img)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()

	step := 1
	if w*h > maxPaletteSamples {
		step = int(math.Sqrt(float64(w*h)/float64(maxPaletteSamples))) + 1
	}

	dataset := make(clusters.Observations, 0, min(w*h, maxPaletteSamples))
	for y := 0; y < h; y += step {
		for x := 0; x < w; x += step {
			i := dst.PixOffset(x, y)
			if dst.Pix[i+3] == 0 {
				continue
			}
			dataset = append(dataset, pixelCoordinates(dst.Pix[i:i+3]))
		}
	}
	if len(dataset) == 0 {
		return dst, nil
	}

	k := min(colors, len(dataset))
	km := kmeans.New()
	palette, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("palette clustering failed: %w", err)
	}

	entries := make([][3]uint8, len(palette))
	for n, c := range palette {
		for ch := 0; ch < 3 && ch < len(c.Center); ch++ {
			entries[n][ch] = uint8(math.Max(0, math.Min(255, math.Round(c.Center[ch]))))
		}
	}

	for y := 0; y < h; y++ {
		i := dst.PixOffset(0, y)
		for x := 0; x < w; x++ {
			e := entries[palette.Nearest(pixelCoordinates(dst.Pix[i:i+3]))]
			dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2] = e[0], e[1], e[2]
			i += 4
		}
	}

	return dst, nil
}

func pixelCoordinates(rgb []uint8) clusters.Coordinates {
	return clusters.Coordinates{float64(rgb[0]), float64(rgb[1]), float64(rgb[2])}
}
