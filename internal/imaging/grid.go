package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultGridColor is used by BlockGridOverlay when no color is given.
var DefaultGridColor = color.NRGBA{R: 255, G: 0, B: 255, A: 255}

// BlockGridOverlay draws the block boundaries Pixelate would use for blockSize
// on top of a copy of img.
//
// Lines are one pixel wide and sit on the first pixel of every block after the
// first, so the overlay lines up with Pixelate's blocks exactly. When
// showIndices is set every block is labelled "col,row" in a tiny built-in font
// where it fits.
func BlockGridOverlay(img image.Image, blockSize int, showIndices bool, gridColorHex string) (*image.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidParameter, blockSize)
	}

	gridColor := DefaultGridColor
	if gridColorHex != "" {
		c, err := ParseColor(gridColorHex)
		if err != nil {
			return nil, err
		}
		gridColor = c
	}

	result := imaging.Clone(img)
	width := result.Rect.Dx()
	height := result.Rect.Dy()

	// Vertical lines
	for x := blockSize; x < width; x += blockSize {
		for y := 0; y < height; y++ {
			result.SetNRGBA(x, y, gridColor)
		}
	}

	// Horizontal lines
	for y := blockSize; y < height; y += blockSize {
		for x := 0; x < width; x++ {
			result.SetNRGBA(x, y, gridColor)
		}
	}

	if showIndices {
		labelColor := color.NRGBA{255, 255, 255, 255}
		bgColor := color.NRGBA{0, 0, 0, 180}

		for row := 0; row*blockSize < height; row++ {
			for col := 0; col*blockSize < width; col++ {
				label := fmt.Sprintf("%d,%d", col, row)
				if len(label)*glyphAdvance+1 >= blockSize || labelHeight+1 >= blockSize {
					continue
				}
				drawLabel(result, col*blockSize+2, row*blockSize+2, label, labelColor, bgColor)
			}
		}
	}

	return result, nil
}

const (
	glyphAdvance = 4
	labelHeight  = 7
)

// glyphs is a 3x5 pixel font for digits and comma.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
}

// drawLabel draws text with its top-left corner at (x, y). Pixels outside the
// image are skipped.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	bounds := img.Bounds()
	labelWidth := len(text) * glyphAdvance

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := (image.Point{X: x + dx, Y: y + dy}); p.In(bounds) {
				img.SetNRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += glyphAdvance
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if p := (image.Point{X: cx + col, Y: y + row}); p.In(bounds) {
					img.SetNRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += glyphAdvance
	}
}
