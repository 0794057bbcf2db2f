package ris

import "math"

// SidelobeMetrics is the result of §4.4 operation 4.
type SidelobeMetrics struct {
	PeakDeg      float64
	PeakDb       float64
	FirstNullDeg *float64
	SllDb        *float64
}

const nullDropDb = 20.0

// ComputeSidelobeMetrics implements §4.4 operation 4: the peak is the
// argmax; the first null on either side of the peak is the nearest local
// minimum whose value is below peak-20dB; side-lobe level is the max of
// pattern_db outside the main lobe (bounded by the two first nulls), minus
// peak, or nil if the main-lobe bounds cannot be determined.
func ComputeSidelobeMetrics(thetaDeg, patternDb []float64) SidelobeMetrics {
	peakIdx := argmax(patternDb)
	peakDb := patternDb[peakIdx]
	metrics := SidelobeMetrics{PeakDeg: thetaDeg[peakIdx], PeakDb: peakDb}

	leftNull, leftOk := findNull(thetaDeg, patternDb, peakIdx, -1, peakDb)
	rightNull, rightOk := findNull(thetaDeg, patternDb, peakIdx, 1, peakDb)

	if leftOk && rightOk {
		// report the nearer null as "the" first null, matching "the nearest
		// local minimum on either side of the peak"
		if (thetaDeg[peakIdx] - leftNull.theta) <= (rightNull.theta - thetaDeg[peakIdx]) {
			metrics.FirstNullDeg = ptr(leftNull.theta)
		} else {
			metrics.FirstNullDeg = ptr(rightNull.theta)
		}
	} else if leftOk {
		metrics.FirstNullDeg = ptr(leftNull.theta)
	} else if rightOk {
		metrics.FirstNullDeg = ptr(rightNull.theta)
	}

	if leftOk && rightOk {
		if sll, ok := sidelobeOutside(thetaDeg, patternDb, leftNull.idx, rightNull.idx, peakDb); ok {
			metrics.SllDb = ptr(sll)
		}
	}
	return metrics
}

type nullPoint struct {
	idx   int
	theta float64
}

// findNull scans from peakIdx in direction dir (+1 or -1), looking for the
// nearest local minimum whose value is below peak-20dB.
func findNull(thetaDeg, patternDb []float64, peakIdx, dir int, peakDb float64) (nullPoint, bool) {
	threshold := peakDb - nullDropDb
	for idx := peakIdx + dir; idx >= 0 && idx < len(patternDb) && idx+dir >= 0 && idx+dir < len(patternDb); idx += dir {
		isLocalMin := patternDb[idx] <= patternDb[idx-dir] && patternDb[idx] <= patternDb[idx+dir]
		if isLocalMin && patternDb[idx] < threshold {
			return nullPoint{idx: idx, theta: thetaDeg[idx]}, true
		}
	}
	return nullPoint{}, false
}

// sidelobeOutside returns the max pattern_db outside [leftIdx, rightIdx]
// minus peak, or ok=false if the two nulls bound the entire sweep (no
// samples lie outside the main lobe to report an SLL for).
func sidelobeOutside(thetaDeg, patternDb []float64, leftIdx, rightIdx int, peakDb float64) (sllDb float64, ok bool) {
	lo, hi := leftIdx, rightIdx
	if lo > hi {
		lo, hi = hi, lo
	}
	maxOutside := math.Inf(-1)
	found := false
	for i, v := range patternDb {
		if i >= lo && i <= hi {
			continue
		}
		found = true
		if v > maxOutside {
			maxOutside = v
		}
	}
	if !found {
		return 0, false
	}
	return maxOutside - peakDb, true
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

func ptr(f float64) *float64 { return &f }
