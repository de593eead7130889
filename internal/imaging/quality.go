package imaging

import (
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
)

// PerfectPSNR is returned by PSNR when the two images are identical. The mean
// squared error is zero there, and the ratio is reported as positive infinity
// rather than left to the floating point division.
var PerfectPSNR = math.Inf(1)

const maxPixelValue = 255.0

// PSNR computes the peak signal-to-noise ratio, in decibels, between a
// reference image and a candidate of the same size.
//
// Squared differences of the red, green and blue channels are summed over all
// pixels; MSE = sum / (width * height * 3) and PSNR = 10 * log10(255² / MSE).
// Alpha is ignored.
//
// Returns:
//   - float64: The PSNR, or PerfectPSNR (+Inf) when the images are identical.
//   - error: ErrInvalidParameter for nil or zero-area images,
//     ErrDimensionMismatch when the sizes differ.
func PSNR(reference, candidate image.Image) (float64, error) {
	ref, cand, err := prepareComparison(reference, candidate)
	if err != nil {
		return 0, err
	}

	var sse uint64
	for y := 0; y < ref.Rect.Dy(); y++ {
		ri := ref.PixOffset(0, y)
		ci := cand.PixOffset(0, y)
		for x := 0; x < ref.Rect.Dx(); x++ {
			for c := 0; c < 3; c++ {
				d := int64(ref.Pix[ri+c]) - int64(cand.Pix[ci+c])
				sse += uint64(d * d)
			}
			ri += 4
			ci += 4
		}
	}

	samples := float64(ref.Rect.Dx() * ref.Rect.Dy() * 3)
	return psnrFromMSE(float64(sse) / samples), nil
}

func psnrFromMSE(mse float64) float64 {
	if mse == 0 {
		return PerfectPSNR
	}
	return 10 * math.Log10(maxPixelValue*maxPixelValue/mse)
}

// prepareComparison validates both images and returns them as 0-based NRGBA copies.
func prepareComparison(reference, candidate image.Image) (*image.NRGBA, *image.NRGBA, error) {
	if err := validateImage(reference, "reference"); err != nil {
		return nil, nil, err
	}
	if err := validateImage(candidate, "candidate"); err != nil {
		return nil, nil, err
	}
	rb, cb := reference.Bounds(), candidate.Bounds()
	if rb.Dx() != cb.Dx() || rb.Dy() != cb.Dy() {
		return nil, nil, fmt.Errorf("%w: reference is %dx%d, candidate is %dx%d",
			ErrDimensionMismatch, rb.Dx(), rb.Dy(), cb.Dx(), cb.Dy())
	}
	return imaging.Clone(reference), imaging.Clone(candidate), nil
}

// Decibels is a PSNR value. Infinite values encode as JSON null since JSON has
// no representation for them.
type Decibels float64

// MarshalJSON implements json.Marshaler.
func (d Decibels) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(d), 'f', 4, 64)), nil
}

// ChannelQuality holds the error of a single color channel.
type ChannelQuality struct {
	MSE  float64  `json:"mse"`
	PSNR Decibels `json:"psnr"`
}

// QualityReport summarises how far a candidate image is from a reference.
type QualityReport struct {
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	MSE       float64        `json:"mse"`
	PSNR      Decibels       `json:"psnr"`
	Identical bool           `json:"identical"`
	Red       ChannelQuality `json:"red"`
	Green     ChannelQuality `json:"green"`
	Blue      ChannelQuality `json:"blue"`
}

// CompareQuality computes overall and per-channel MSE and PSNR between two
// images of the same size. The overall figures match PSNR.
func CompareQuality(reference, candidate image.Image) (*QualityReport, error) {
	ref, cand, err := prepareComparison(reference, candidate)
	if err != nil {
		return nil, err
	}

	refCh := channelVectors(ref)
	candCh := channelVectors(cand)
	n := float64(len(refCh[0]))

	var mse [3]float64
	diff := make([]float64, len(refCh[0]))
	for c := 0; c < 3; c++ {
		floats.SubTo(diff, refCh[c], candCh[c])
		mse[c] = floats.Dot(diff, diff) / n
	}

	total := (mse[0] + mse[1] + mse[2]) / 3
	return &QualityReport{
		Width:     ref.Rect.Dx(),
		Height:    ref.Rect.Dy(),
		MSE:       total,
		PSNR:      Decibels(psnrFromMSE(total)),
		Identical: total == 0,
		Red:       ChannelQuality{MSE: mse[0], PSNR: Decibels(psnrFromMSE(mse[0]))},
		Green:     ChannelQuality{MSE: mse[1], PSNR: Decibels(psnrFromMSE(mse[1]))},
		Blue:      ChannelQuality{MSE: mse[2], PSNR: Decibels(psnrFromMSE(mse[2]))},
	}, nil
}

// channelVectors splits the RGB channels of img into three float vectors.
func channelVectors(img *image.NRGBA) [3][]float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var out [3][]float64
	for c := range out {
		out[c] = make([]float64, 0, w*h)
	}
	for y := 0; y < h; y++ {
		i := img.PixOffset(0, y)
		for x := 0; x < w; x++ {
			out[0] = append(out[0], float64(img.Pix[i+0]))
			out[1] = append(out[1], float64(img.Pix[i+1]))
			out[2] = append(out[2], float64(img.Pix[i+2]))
			i += 4
		}
	}
	return out
}
