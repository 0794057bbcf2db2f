package ris

import (
	"math"
	"math/cmplx"

	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

const patternFloor = 1e-12

// SweepResult is the output of PatternSweep (§4.4 operation 3).
type SweepResult struct {
	ThetaDeg      []float64
	PatternLinear []float64
	PatternDb     []float64
}

// PatternSweep implements §4.4 operation 3: scans theta over the configured
// range in the principal cut defined by experiment.tx_angle_deg, computing
//
//	pattern(theta) = | sum_ij A(i,j) * exp(j*(phi(i,j) + k*(p(i,j).d_rx(theta) - p(i,j).d_tx))) |^2
//
// with a uniform real amplitude profile (extension point for a per-element
// A(i,j), §9). Normalization divides by the peak (peak_0db) or keeps
// absolute scale (none); pattern_db = 10*log10(max(pattern_linear, eps)).
func PatternSweep(g models.Geometry, phases PhaseMap, pm models.PatternMode, exp models.Experiment) (SweepResult, error) {
	if exp.FrequencyHz <= 0 {
		return SweepResult{}, &apierr.InvalidConfig{Reason: "experiment.frequency_hz must be > 0"}
	}
	if exp.TxDistanceM <= 0 || exp.RxDistanceM <= 0 {
		return SweepResult{}, &apierr.InvalidConfig{Reason: "experiment.tx_distance_m and rx_distance_m must be > 0"}
	}
	if pm.RxSweep.StepDeg == 0 {
		return SweepResult{}, &apierr.InvalidConfig{Reason: "pattern_mode.rx_sweep_deg.step must be non-zero"}
	}

	frame, err := BuildFrame(g)
	if err != nil {
		return SweepResult{}, err
	}
	centers, err := ElementCenters(g, frame)
	if err != nil {
		return SweepResult{}, err
	}
	k := Wavenumber(exp.FrequencyHz)

	// principal cut: elevation fixed at 0, azimuth of the TX direction is
	// experiment.tx_angle_deg; the sweep scans the RX angle within that cut.
	txDir := cutDirection(exp.TxAngleDeg, frame)

	thetas := sweepAngles(pm.RxSweep)
	linear := make([]float64, len(thetas))

	for idx, theta := range thetas {
		rxDir := cutDirection(theta, frame)
		var sum complex128
		for j := range centers {
			for i := range centers[j] {
				p := centers[j][i]
				pathTerm := k * (p.dot(rxDir) - p.dot(txDir))
				phase := phases[j][i] + pathTerm
				sum += cmplx.Exp(complex(0, phase))
			}
		}
		linear[idx] = cmplx.Abs(sum) * cmplx.Abs(sum)
	}

	applyNormalization(linear, pm.Normalization)

	db := make([]float64, len(linear))
	for i, v := range linear {
		db[i] = 10 * math.Log10(math.Max(v, patternFloor))
	}

	return SweepResult{ThetaDeg: thetas, PatternLinear: linear, PatternDb: db}, nil
}

// cutDirection returns the unit direction for angle thetaDeg within the
// principal cut (elevation held at zero in the local frame). The azimuth
// steer gradient in SynthesizePhase runs along frame.Y
// (cos(el)*sin(az)*p_y, phase.go), so the cut swept here must vary along
// frame.Y too, or a steered beam's peak would appear at 0 deg regardless
// of the requested azimuth.
func cutDirection(thetaDeg float64, frame Frame) Vec {
	theta := deg2rad(thetaDeg)
	return frame.Y.scale(math.Sin(theta)).add(frame.Z.scale(math.Cos(theta)))
}

func sweepAngles(s models.RxSweep) []float64 {
	var out []float64
	step := math.Abs(s.StepDeg)
	if s.StopDeg >= s.StartDeg {
		for t := s.StartDeg; t <= s.StopDeg+1e-9; t += step {
			out = append(out, t)
		}
	} else {
		for t := s.StartDeg; t >= s.StopDeg-1e-9; t -= step {
			out = append(out, t)
		}
	}
	return out
}

func applyNormalization(linear []float64, norm models.Normalization) {
	if norm != models.NormPeak0dB {
		return
	}
	peak := 0.0
	for _, v := range linear {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return
	}
	for i := range linear {
		linear[i] /= peak
	}
}
