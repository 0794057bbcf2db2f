package ris

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbench/pkg/models"
)

func baseGeometry() models.Geometry {
	return models.Geometry{
		Nx: 20, Ny: 20,
		Dx: 4.9e-3, Dy: 4.9e-3,
		Origin:    models.Vec3{X: 0, Y: 0, Z: 0},
		Normal:    models.Vec3{X: 1, Y: 0, Z: 0},
		XAxisHint: models.Vec3{X: 0, Y: 1, Z: 0},
	}
}

// S1: steer + 1-bit quantization.
func TestSteerOneBitQuantization(t *testing.T) {
	g := baseGeometry()
	control := models.Control{Kind: models.ControlSteer, AzDeg: 30, ElDeg: 0, PhaseOffsetDeg: 0}
	freq := 28e9

	phases, err := SynthesizePhase(g, control, freq)
	require.NoError(t, err)

	quantized := Quantize(phases, 1)
	for _, row := range quantized {
		for _, phi := range row {
			assert.True(t, almostEqual(phi, -math.Pi/2) || almostEqual(phi, math.Pi/2),
				"quantized phase %v not in {-pi/2, pi/2}", phi)
		}
	}

	exp := models.Experiment{FrequencyHz: freq, TxAngleDeg: 0, TxDistanceM: 1, RxDistanceM: 1}
	pm := models.PatternMode{Normalization: models.NormPeak0dB, RxSweep: models.RxSweep{StartDeg: -90, StopDeg: 90, StepDeg: 2}}

	sweep, err := PatternSweep(g, quantized, pm, exp)
	require.NoError(t, err)

	metrics := ComputeSidelobeMetrics(sweep.ThetaDeg, sweep.PatternDb)
	assert.InDelta(t, 30, metrics.PeakDeg, 2)
	if assert.NotNil(t, metrics.SllDb) {
		assert.LessOrEqual(t, *metrics.SllDb, -8.0)
	}
}

// S2: focus control is deterministic.
func TestFocusDeterministic(t *testing.T) {
	g := baseGeometry()
	control := models.Control{Kind: models.ControlFocus, FocalPoint: models.Vec3{X: 1.0, Y: 0, Z: 0.8}}

	phasesA, err := SynthesizePhase(g, control, 28e9)
	require.NoError(t, err)
	phasesB, err := SynthesizePhase(g, control, 28e9)
	require.NoError(t, err)

	assert.Equal(t, phasesA, phasesB)
}

// S3: validate PASS when reference equals computed.
func TestValidatePassOnSelf(t *testing.T) {
	theta := []float64{-10, -5, 0, 5, 10}
	db := []float64{-20, -10, 0, -10, -20}

	result := Validate(theta, db, theta, db)
	assert.InDelta(t, 0, result.RmseDb, 1e-9)
	assert.InDelta(t, 0, result.PeakDegError, 1e-9)
	assert.True(t, result.Pass)
}

// S4: validate FAIL on a 5-degree peak shift.
func TestValidateFailsOnShiftedPeak(t *testing.T) {
	theta := []float64{-10, -5, 0, 5, 10, 15, 20}
	db := []float64{-20, -10, 0, -10, -20, -25, -30}
	shiftedDb := []float64{-25, -20, -10, 0, -10, -20, -25}

	result := Validate(theta, db, theta, shiftedDb)
	assert.False(t, result.Pass)
	assert.InDelta(t, 5, math.Abs(result.PeakDegError), 1.0)
}

func TestPhaseWrapAlwaysInRange(t *testing.T) {
	for _, phi := range []float64{0, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi, 0.5, 100} {
		w := wrapPhase(phi)
		assert.Greater(t, w, -math.Pi)
		assert.LessOrEqual(t, w, math.Pi)
	}
}

func TestQuantizeRoundTrip(t *testing.T) {
	g := baseGeometry()
	control := models.Control{Kind: models.ControlSteer, AzDeg: 12, ElDeg: 5}
	phases, err := SynthesizePhase(g, control, 28e9)
	require.NoError(t, err)

	for bits := 1; bits <= 4; bits++ {
		once := Quantize(phases, bits)
		twice := Quantize(once, bits)
		assert.Equal(t, once, twice, "quantize not idempotent at bits=%d", bits)
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
