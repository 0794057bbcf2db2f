package ris

import "math"

const (
	rmseThresholdDb    = 3.0
	peakErrThresholdDeg = 2.0
)

// ValidateResult is the output of §4.4 operation 5.
type ValidateResult struct {
	RmseDb        float64
	PeakDegError  float64
	PeakDbError   float64
	Pass          bool
}

// Validate implements §4.4 operation 5: the reference is peak-normalized
// and resampled onto the computed theta grid by linear interpolation with
// edge clamping, then compared against the computed pattern. Thresholds
// (rmse_db <= 3.0 and |peak_deg_error| <= 2.0) are part of the contract.
func Validate(thetaDeg, patternDb []float64, refThetaDeg, refPatternDb []float64) ValidateResult {
	refNorm := peakNormalizeDb(refPatternDb)
	resampled := resampleClamped(refThetaDeg, refNorm, thetaDeg)

	computedNorm := peakNormalizeDb(patternDb)

	sumSq := 0.0
	for i := range computedNorm {
		d := computedNorm[i] - resampled[i]
		sumSq += d * d
	}
	rmse := math.Sqrt(sumSq / float64(len(computedNorm)))

	computedPeakIdx := argmax(computedNorm)
	refPeakIdx := argmax(resampled)

	peakDegErr := thetaDeg[computedPeakIdx] - thetaDeg[refPeakIdx]
	peakDbErr := computedNorm[computedPeakIdx] - resampled[refPeakIdx]

	pass := rmse <= rmseThresholdDb && math.Abs(peakDegErr) <= peakErrThresholdDeg

	return ValidateResult{
		RmseDb:       rmse,
		PeakDegError: peakDegErr,
		PeakDbError:  peakDbErr,
		Pass:         pass,
	}
}

// peakNormalizeDb subtracts the max so the series peaks at 0 dB.
func peakNormalizeDb(db []float64) []float64 {
	peak := db[argmax(db)]
	out := make([]float64, len(db))
	for i, v := range db {
		out[i] = v - peak
	}
	return out
}

// resampleClamped linearly interpolates (xs,ys) onto targetXs, clamping
// queries outside [xs[0], xs[len-1]] to the nearest edge value.
func resampleClamped(xs, ys, targetXs []float64) []float64 {
	out := make([]float64, len(targetXs))
	for i, tx := range targetXs {
		out[i] = interp1(xs, ys, tx)
	}
	return out
}

func interp1(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if n == 1 || x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	// xs assumed monotonically increasing, as produced by sweepAngles
	for i := 1; i < n; i++ {
		if x <= xs[i] {
			x0, x1 := xs[i-1], xs[i]
			y0, y1 := ys[i-1], ys[i]
			t := (x - x0) / (x1 - x0)
			return y0 + t*(y1-y0)
		}
	}
	return ys[n-1]
}
