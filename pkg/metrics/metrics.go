// Package metrics scores a denoised image against a reference and
// summarizes the energy trace of a solver run.
package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"lbpdenoise/internal/models"
)

// ErrSizeMismatch is returned when the two images differ in size
var ErrSizeMismatch = errors.New("images differ in size")

// Quality holds the image quality metrics of a denoised result
type Quality struct {
	// RMSE is the root mean square intensity error. Lower is better.
	RMSE float64

	// PSNR is the peak signal-to-noise ratio in dB. It is +Inf for
	// identical images.
	PSNR float64

	// MAE is the mean absolute intensity error
	MAE float64

	// SSIM is a single-window structural similarity index in [-1, 1],
	// 1 meaning identical structure.
	SSIM float64

	// ChangedRatio is the fraction of pixels whose value differs
	ChangedRatio float64
}

// Compare scores labels against the reference grid. levels sets the
// dynamic range used by PSNR and SSIM.
func Compare(reference *models.Grid, labels *models.Labeling, levels int) (Quality, error) {
	if reference.Width != labels.Width || reference.Height != labels.Height {
		return Quality{}, ErrSizeMismatch
	}
	ref := toFloat(reference.Pix)
	got := toFloat(labels.Labels)
	peak := float64(levels - 1)
	if peak <= 0 {
		peak = 1
	}

	q := Quality{
		RMSE: calculateRMSE(ref, got),
		MAE:  calculateMAE(ref, got),
		SSIM: calculateSSIM(ref, got, peak),
	}
	q.PSNR = calculatePSNR(q.RMSE, peak)

	changed := 0
	for i := range reference.Pix {
		if reference.Pix[i] != labels.Labels[i] {
			changed++
		}
	}
	q.ChangedRatio = float64(changed) / float64(len(reference.Pix))

	return q, nil
}

func toFloat(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// calculateRMSE computes the root mean square error
func calculateRMSE(original, denoised []float64) float64 {
	n := len(original)
	if n != len(denoised) || n == 0 {
		return 0
	}
	return floats.Distance(original, denoised, 2) / math.Sqrt(float64(n))
}

// calculateMAE computes the mean absolute error
func calculateMAE(original, denoised []float64) float64 {
	n := len(original)
	if n != len(denoised) || n == 0 {
		return 0
	}
	return floats.Distance(original, denoised, 1) / float64(n)
}

func calculatePSNR(rmse, peak float64) float64 {
	if rmse == 0 {
		return math.Inf(1)
	}
	return 20 * math.Log10(peak/rmse)
}

// calculateSSIM computes the Structural Similarity Index over the whole
// image as one window
func calculateSSIM(original, denoised []float64, dynamicRange float64) float64 {
	const k1 = 0.01
	const k2 = 0.03

	c1 := (k1 * dynamicRange) * (k1 * dynamicRange)
	c2 := (k2 * dynamicRange) * (k2 * dynamicRange)

	n := len(original)
	if n != len(denoised) || n == 0 {
		return 0
	}

	muX := stat.Mean(original, nil)
	muY := stat.Mean(denoised, nil)

	// Sample variance is undefined for a single pixel
	var sigmaX, sigmaY, sigmaXY float64
	if n > 1 {
		sigmaX = stat.Variance(original, nil)
		sigmaY = stat.Variance(denoised, nil)
		sigmaXY = stat.Covariance(original, denoised, nil)
	}

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)

	if den > 0 {
		return num / den
	}
	return 0
}
