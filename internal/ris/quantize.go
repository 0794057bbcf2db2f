package ris

import "math"

// Quantize implements §4.4 operation 2. bits == 0 is the identity. For
// bits >= 1, phases are mapped onto 2^bits uniform bins over [-pi, pi); each
// phase is mapped to its bin center.
//
// Bin-edge convention (§9 decision 1, "high_inclusive"): bin edges sit at
// -pi + k*(2*pi/2^bits) for k = 0..2^bits, and pi itself — the one value in
// (-pi, pi] above all interior edges — belongs to the highest bin (index
// 2^bits - 1, center pi - pi/2^bits) rather than wrapping back to the
// lowest. -pi is never produced as an input because SynthesizePhase always
// wraps into (-pi, pi].
func Quantize(pm PhaseMap, bits int) PhaseMap {
	if bits <= 0 {
		return clonePhaseMap(pm)
	}

	levels := 1 << uint(bits)
	binWidth := 2 * math.Pi / float64(levels)
	lowestCenter := -math.Pi + binWidth/2

	out := make(PhaseMap, len(pm))
	for j := range pm {
		out[j] = make([]float64, len(pm[j]))
		for i, phi := range pm[j] {
			out[j][i] = quantizeOne(phi, binWidth, lowestCenter, levels)
		}
	}
	return out
}

func quantizeOne(phi, binWidth, lowestCenter float64, levels int) float64 {
	idx := int(math.Floor((phi + math.Pi) / binWidth))
	if idx < 0 {
		idx = 0
	}
	if idx >= levels {
		idx = levels - 1 // covers phi == pi: the high_inclusive bin
	}
	return lowestCenter + float64(idx)*binWidth
}

func clonePhaseMap(pm PhaseMap) PhaseMap {
	out := make(PhaseMap, len(pm))
	for j := range pm {
		out[j] = append([]float64(nil), pm[j]...)
	}
	return out
}
