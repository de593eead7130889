package imaging

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Filter selects the resampling kernel used by Resize.
type Filter int

const (
	// FilterLinear is bilinear interpolation, the default smooth transform.
	FilterLinear Filter = iota

	// FilterCatmullRom is a sharp cubic, good for upscaling pixel art previews.
	FilterCatmullRom

	// FilterLanczos is the highest quality (and slowest) kernel.
	FilterLanczos

	// FilterBox averages source pixels; equivalent to area resampling.
	FilterBox

	// FilterNearest keeps hard block edges. Not a smooth filter.
	FilterNearest
)

var filterNames = map[Filter]string{
	FilterLinear:     "linear",
	FilterCatmullRom: "catmullrom",
	FilterLanczos:    "lanczos",
	FilterBox:        "box",
	FilterNearest:    "nearest",
}

func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// ParseFilter maps a filter name to a Filter. The empty string selects
// FilterLinear.
func ParseFilter(name string) (Filter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FilterLinear, nil
	}
	for f, n := range filterNames {
		if n == name {
			return f, nil
		}
	}
	return FilterLinear, fmt.Errorf("%w: unknown resample filter %q", ErrInvalidParameter, name)
}

func (f Filter) resampleFilter() imaging.ResampleFilter {
	switch f {
	case FilterCatmullRom:
		return imaging.CatmullRom
	case FilterLanczos:
		return imaging.Lanczos
	case FilterBox:
		return imaging.Box
	case FilterNearest:
		return imaging.NearestNeighbor
	default:
		return imaging.Linear
	}
}

// Resize resamples img to exactly width x height pixels.
//
// The aspect ratio is not preserved; callers that want an aspect-locked size
// compute it with AspectLockedWidth or AspectLockedHeight first. The result is
// deterministic for identical inputs.
//
// Returns ErrInvalidParameter for a nil or zero-area image or a non-positive
// target dimension.
func Resize(img image.Image, width, height int, filter Filter) (*image.NRGBA, error) {
	if err := validateImage(img, "source"); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %dx%d", ErrInvalidParameter, width, height)
	}
	return imaging.Resize(img, width, height, filter.resampleFilter()), nil
}

// AspectLockedHeight returns the height matching width for a source of
// srcWidth x srcHeight, truncated toward zero and never below 1.
func AspectLockedHeight(srcWidth, srcHeight, width int) int {
	if srcWidth <= 0 || srcHeight <= 0 {
		return max(width, 1)
	}
	ratio := float64(srcHeight) / float64(srcWidth)
	return max(int(float64(width)*ratio), 1)
}

// AspectLockedWidth returns the width matching height for a source of
// srcWidth x srcHeight, truncated toward zero and never below 1.
func AspectLockedWidth(srcWidth, srcHeight, height int) int {
	if srcWidth <= 0 || srcHeight <= 0 {
		return max(height, 1)
	}
	ratio := float64(srcWidth) / float64(srcHeight)
	return max(int(float64(height)*ratio), 1)
}
