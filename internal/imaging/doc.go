// Package imaging implements the pixel-processing pipeline behind pixelart.
//
// The pipeline turns an arbitrary raster image into blocky "pixel art" and
// optionally cuts out its background:
//
//   - Pixelate: replaces every blockSize x blockSize square with its mean colour
//   - Resize: resamples to an exact target size
//   - KeyBackground: makes pixels near a reference colour transparent
//   - Feather: softens the keyed alpha edge
//   - QuantizePalette: reduces the result to k colours
//   - PSNR / CompareQuality: measures how far a result drifted from a reference
//
// All operations work with standard Go image.Image inputs and return freshly
// allocated *image.NRGBA results with bounds starting at (0,0). Inputs are never
// mutated, so results can be shared between goroutines once produced.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Exact Arithmetic
//
// Block averages use integer truncation (sum / count) and the background keyer
// compares each RGB channel with a strict less-than against the tolerance, so a
// tolerance of 0 keys nothing.
//
// # Color Representation
//
// Colors are returned in multiple formats for flexibility:
//   - Hex: 6-character format "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - RGBA: 8-bit components with alpha (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// # Error Handling
//
// Functions return errors wrapping one of the package sentinels:
//   - ErrInvalidParameter: nil/zero-area images, non-positive sizes
//   - ErrDimensionMismatch: comparing differently sized images
//   - ErrIO / ErrUnsupportedFormat: decoding and encoding files
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
package imaging
