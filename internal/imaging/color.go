package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultBackground is the reference color keyed when none is chosen.
var DefaultBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGB  RGBColor  `json:"rgb"`  // RGB components
	RGBA RGBAColor `json:"rgba"` // RGBA components with alpha
	HSL  HSLColor  `json:"hsl"`  // HSL representation
}

// NewColorResult describes c in every supported representation. RGB values are
// non-premultiplied, so a half transparent red still reports R=255.
func NewColorResult(c color.Color) ColorResult {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", n.R, n.G, n.B),
		RGB:  RGBColor{R: n.R, G: n.G, B: n.B},
		RGBA: RGBAColor{R: n.R, G: n.G, B: n.B, A: n.A},
		HSL:  rgbToHSL(n.R, n.G, n.B),
	}
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at the image's top-left corner. Returns
// ErrInvalidParameter if the coordinates are outside the image bounds.
//
// Sampling is how a host picks the background reference color for
// KeyBackground (the "eyedropper").
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if !(image.Point{X: px, Y: py}).In(bounds) {
		return nil, fmt.Errorf("%w: coordinates (%d,%d) outside image bounds", ErrInvalidParameter, x, y)
	}

	result := NewColorResult(img.At(px, py))
	return &result, nil
}

// ParseColor parses "#RGB" or "#RRGGBB" (the leading '#' is optional) into an
// opaque color. The empty string yields DefaultBackground.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultBackground, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil || (len(s) != 4 && len(s) != 7) {
		return color.NRGBA{}, fmt.Errorf("%w: invalid color %q, want #RGB or #RRGGBB", ErrInvalidParameter, s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// ColorFrequency represents a color and its share of an image.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Hex color "#RRGGBB"
	Percentage float64  `json:"percentage"` // Share of the image (0-100)
	RGB        RGBColor `json:"rgb"`        // RGB components
}

// DominantColorsResult contains the most prominent colors in an image, most
// prominent first.
type DominantColorsResult struct {
	Colors []ColorFrequency `json:"colors"`
}

// DominantColors extracts up to count prominent colors from an image.
//
// Colors are found by k-means clustering over a downscaled copy of the image;
// Percentage is the cluster's weight.
func DominantColors(img image.Image, count int) (*DominantColorsResult, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidParameter, count)
	}

	found := dominantcolor.FindWeight(img, count)
	colors := make([]ColorFrequency, 0, len(found))
	for _, c := range found {
		colors = append(colors, ColorFrequency{
			Hex:        fmt.Sprintf("#%02X%02X%02X", c.RGBA.R, c.RGBA.G, c.RGBA.B),
			Percentage: math.Round(c.Weight*10000) / 100,
			RGB:        RGBColor{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B},
		})
	}

	return &DominantColorsResult{Colors: colors}, nil
}

// SuggestBackground guesses the background color of img.
//
// Backgrounds of sprites and scanned artwork usually own the image border, so
// the border's most common color wins. If the border has no majority color the
// image's dominant color is used, and the top-left pixel as a last resort.
func SuggestBackground(img image.Image) (color.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return color.NRGBA{}, err
	}

	b := img.Bounds()
	counts := make(map[color.NRGBA]int)
	border := 0
	for x := b.Min.X; x < b.Max.X; x++ {
		counts[opaque(img.At(x, b.Min.Y))]++
		counts[opaque(img.At(x, b.Max.Y-1))]++
		border += 2
	}
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		counts[opaque(img.At(b.Min.X, y))]++
		counts[opaque(img.At(b.Max.X-1, y))]++
		border += 2
	}

	var best color.NRGBA
	bestCount := 0
	for c, n := range counts {
		if n > bestCount || (n == bestCount && colorLess(c, best)) {
			best, bestCount = c, n
		}
	}
	if bestCount*2 > border {
		return best, nil
	}

	if found := dominantcolor.FindWeight(img, 1); len(found) > 0 {
		c := found[0].RGBA
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
	}
	return opaque(img.At(b.Min.X, b.Min.Y)), nil
}

func opaque(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return n
}

// colorLess orders colors so ties in SuggestBackground resolve the same way on
// every run.
func colorLess(a, b color.NRGBA) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.B < b.B
}

// rgbToHSL converts 8-bit RGB values to HSL, with hue in degrees and
// saturation and lightness in percent.
func rgbToHSL(r, g, b uint8) HSLColor {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, l := c.Hsl()
	return HSLColor{
		H: int(h),
		S: int(s * 100),
		L: int(l * 100),
	}
}
