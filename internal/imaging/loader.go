package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded source images.
//
// The cache stores decoded image.Image objects keyed by their file path. Once an
// image is loaded, subsequent Load() calls for the same path return the cached
// copy without disk I/O. Cached images are treated as immutable: every pipeline
// stage allocates its own output, so a cached source is never written to.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// Workspaces re-opening a file that changed on disk should Evict() it first.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	format map[string]string
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		format: make(map[string]string),
	}
}

// Load retrieves an image from the cache or decodes it from disk if not cached.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. The image is cached
// under the exact path string provided. Errors wrap ErrIO; a failed load leaves
// the cache untouched.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image %q: %w", ErrIO, path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image %q: %w", ErrIO, path, err)
	}
	if err := validateImage(img, "decoded"); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrIO, path, err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.format[path] = format
	c.mu.Unlock()

	return img, nil
}

// Format returns the decoder name ("png", "jpeg", "bmp", ...) recorded when
// path was loaded, or "" if path is not cached.
func (c *ImageCache) Format(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.format[path]
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.format = make(map[string]string)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	delete(c.format, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that recognised the file contents: "png", "jpeg",
	// "gif", "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// Suffix is the lower-case file extension without the dot. Saving a
	// result without an explicit extension reuses it.
	Suffix string `json:"suffix"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat file: %w", ErrIO, err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        cache.Format(path),
		Suffix:        FileSuffix(path),
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// FileSuffix returns the lower-case extension of path without the leading dot.
func FileSuffix(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ToNRGBA returns a 0-based NRGBA copy of img that callers may modify freely.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
