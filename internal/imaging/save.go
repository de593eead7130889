package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ImageResult carries a processed image back to a client as base64 PNG, or
// the path it was written to when the caller asked for a file.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
}

// NewImageResult writes img to outputPath when it is non-empty, otherwise it
// encodes img as base64 PNG.
func NewImageResult(img image.Image, outputPath string) (*ImageResult, error) {
	bounds := img.Bounds()
	result := &ImageResult{Width: bounds.Dx(), Height: bounds.Dy()}

	if outputPath != "" {
		if err := SaveImage(img, outputPath); err != nil {
			return nil, err
		}
		result.OutputPath = outputPath
		return result, nil
	}

	encoded, err := EncodePNGBase64(img)
	if err != nil {
		return nil, err
	}
	result.ImageBase64 = encoded
	result.MimeType = "image/png"
	return result, nil
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("%w: failed to encode image: %w", ErrIO, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage encodes img to path in the format selected by the path's
// extension: "png", "jpg"/"jpeg", "gif", "tif"/"tiff" or "bmp".
//
// The image is written to a temporary file in the destination directory and
// renamed into place, so a failed save never leaves a truncated file behind.
// Errors wrap ErrIO; an unknown extension returns ErrUnsupportedFormat.
func SaveImage(img image.Image, path string) (err error) {
	if err := validateImage(img, "output"); err != nil {
		return err
	}

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: could not create temporary file in %q: %w", ErrIO, dir, err)
	}
	canRename := false
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: could not close temporary file %q: %w", ErrIO, tmp.Name(), closeErr)
		}
		if canRename && err == nil {
			if renameErr := os.Rename(tmp.Name(), path); renameErr != nil {
				err = fmt.Errorf("%w: could not rename to %q: %w", ErrIO, path, renameErr)
			}
		}
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if err = imaging.Encode(tmp, img, format, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("%w: could not encode %s %q: %w", ErrIO, format, path, err)
	}
	// CreateTemp makes the file owner-only; saved images get regular
	// permissions.
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: could not set permissions on %q: %w", ErrIO, path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: could not flush %q: %w", ErrIO, path, err)
	}

	canRename = true
	return nil
}
