package artifact

import (
	"fmt"

	"simbench/internal/ris"
)

// RisPatternArtifacts is everything WriteRisPattern needs to produce the
// pattern-mode artifact set of §4.5.
type RisPatternArtifacts struct {
	PhaseMap ris.PhaseMap
	Sweep    ris.SweepResult
	Metrics  ris.SidelobeMetrics
	BinConvention string // "high_inclusive", §9 decision 1
}

// WriteRisPattern writes the pattern-mode artifacts: phase/pattern plots,
// raw .npy arrays, and metrics.json with peak/first-null/SLL (§4.5).
func (w *Writer) WriteRisPattern(runID string, a RisPatternArtifacts) error {
	flatPhase, ny, nx := flattenPhaseMap(a.PhaseMap)

	if err := w.writePlot(runID, "plots/phase_map.png", PlotRequest{Name: "phase_map", Data: a.PhaseMap}); err != nil {
		return err
	}
	if err := w.writePlot(runID, "plots/pattern_cartesian.png", PlotRequest{Name: "pattern_cartesian", Data: a.Sweep}); err != nil {
		return err
	}
	if err := w.writePlot(runID, "plots/pattern_polar.png", PlotRequest{Name: "pattern_polar", Data: a.Sweep}); err != nil {
		return err
	}

	if err := w.writeNpy(runID, "phase_map", []int{ny, nx}, flatPhase); err != nil {
		return err
	}
	if err := w.writeNpy(runID, "theta_deg", []int{len(a.Sweep.ThetaDeg)}, a.Sweep.ThetaDeg); err != nil {
		return err
	}
	if err := w.writeNpy(runID, "pattern_linear", []int{len(a.Sweep.PatternLinear)}, a.Sweep.PatternLinear); err != nil {
		return err
	}
	if err := w.writeNpy(runID, "pattern_db", []int{len(a.Sweep.PatternDb)}, a.Sweep.PatternDb); err != nil {
		return err
	}

	metrics := map[string]any{
		"peak_deg":                a.Metrics.PeakDeg,
		"peak_db":                 a.Metrics.PeakDb,
		"first_null_deg":          a.Metrics.FirstNullDeg,
		"sll_db":                  a.Metrics.SllDb,
		"quantization": map[string]any{
			"bin_convention": a.BinConvention,
		},
	}
	return w.writeJSON(runID, "metrics.json", metrics)
}

// RisValidateArtifacts is everything WriteRisValidate needs to produce the
// validate-mode artifact set of §4.5, which supplements pattern-mode
// artifacts with an overlay plot and validation metrics.
type RisValidateArtifacts struct {
	Pattern RisPatternArtifacts
	Result  ris.ValidateResult
	RefTheta []float64
	RefPatternDb []float64
}

// WriteRisValidate writes pattern-mode artifacts plus the validation
// overlay and {rmse_db, peak_deg_error, peak_db_error, pass} metrics.
func (w *Writer) WriteRisValidate(runID string, a RisValidateArtifacts) error {
	if err := w.WriteRisPattern(runID, a.Pattern); err != nil {
		return err
	}

	overlay := map[string]any{
		"computed_theta_deg":  a.Pattern.Sweep.ThetaDeg,
		"computed_pattern_db": a.Pattern.Sweep.PatternDb,
		"ref_theta_deg":       a.RefTheta,
		"ref_pattern_db":      a.RefPatternDb,
	}
	if err := w.writePlot(runID, "plots/validation_overlay.png", PlotRequest{Name: "validation_overlay", Data: overlay}); err != nil {
		return err
	}

	metrics := map[string]any{
		"peak_deg":       a.Pattern.Metrics.PeakDeg,
		"peak_db":        a.Pattern.Metrics.PeakDb,
		"first_null_deg": a.Pattern.Metrics.FirstNullDeg,
		"sll_db":         a.Pattern.Metrics.SllDb,
		"rmse_db":        a.Result.RmseDb,
		"peak_deg_error": a.Result.PeakDegError,
		"peak_db_error":  a.Result.PeakDbError,
		"pass":           a.Result.Pass,
		"quantization": map[string]any{
			"bin_convention": a.Pattern.BinConvention,
		},
	}
	return w.writeJSON(runID, "metrics.json", metrics)
}

func flattenPhaseMap(pm ris.PhaseMap) ([]float64, int, int) {
	ny := len(pm)
	nx := 0
	if ny > 0 {
		nx = len(pm[0])
	}
	flat := make([]float64, 0, ny*nx)
	for _, row := range pm {
		if len(row) != nx {
			panic(fmt.Sprintf("artifact: ragged phase map row length %d != %d", len(row), nx))
		}
		flat = append(flat, row...)
	}
	return flat, ny, nx
}
