package artifact

import (
	"bytes"

	"simbench/internal/npy"
	"simbench/pkg/models"
)

// HeatmapData is the sim-run radio-map artifact input (§4.5): a metric
// name, the grid shape, and the per-cell values aligned to the grid's
// canonical cell_centers (§3, §4.3) — the sole source of placement truth.
type HeatmapData struct {
	Metric string
	Grid   models.RadioMapGrid
	Values [][]float64 // [row][col], row major over YS then XS
}

// Path is one device-to-device polyline with its ray-tracing attributes
// (§4.5).
type Path struct {
	PathID       string       `json:"path_id"`
	Points       []models.Vec3 `json:"points"`
	Order        int          `json:"order"`
	Type         string       `json:"type"`
	PathLengthM  float64      `json:"path_length_m"`
	DelaySeconds float64      `json:"delay_s"`
	PowerDb      float64      `json:"power_db"`
	Interactions []string     `json:"interactions"`
}

// Marker is a device position in the scene.
type Marker struct {
	ID   string      `json:"id"`
	Kind string      `json:"kind"`
	Pos  models.Vec3 `json:"pos"`
}

// SceneManifest is the geometry manifest referenced by the viewer.
type SceneManifest struct {
	Scene   string   `json:"scene"`
	Markers []Marker `json:"markers"`
}

// WriteRadioMap writes viewer/heatmap.json, viewer/heatmap.npz, and the
// plots/radio_map.png placeholder with its data sidecar (§3, §4.5); it does
// not write viewer/radio_map_plots.json. The cell_centers emitted here are
// byte-identical to grid.XS/YS: GridAligner's output is the sole source of
// truth and this writer never recomputes placement.
func (w *Writer) WriteRadioMap(runID string, hm HeatmapData) error {
	grid := hm.Grid
	rows := len(grid.YS)
	cols := len(grid.XS)

	cellCenters := make([][][3]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([][3]float64, cols)
		for c := 0; c < cols; c++ {
			row[c] = [3]float64{grid.XS[c], grid.YS[r], grid.CenterZ}
		}
		cellCenters[r] = row
	}

	heatmapJSON := map[string]any{
		"metric":       hm.Metric,
		"grid_shape":   []int{rows, cols},
		"values":       hm.Values,
		"cell_centers": cellCenters,
		"center":       []float64{grid.CenterX, grid.CenterY, grid.CenterZ},
		"size":         []float64{grid.SizeX, grid.SizeY},
		"cell_size":    []float64{grid.CellSizeX, grid.CellSizeY},
		"orientation":  []float64{grid.OrientationX, grid.OrientationY, grid.OrientationZ},
	}
	if err := w.writeJSON(runID, "viewer/heatmap.json", heatmapJSON); err != nil {
		return err
	}

	flatValues := make([]float64, 0, rows*cols)
	for _, row := range hm.Values {
		flatValues = append(flatValues, row...)
	}
	flatXCenters := make([]float64, 0, rows*cols)
	flatYCenters := make([]float64, 0, rows*cols)
	flatZCenters := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			flatXCenters = append(flatXCenters, grid.XS[c])
			flatYCenters = append(flatYCenters, grid.YS[r])
			flatZCenters = append(flatZCenters, grid.CenterZ)
		}
	}

	var buf bytes.Buffer
	if err := npy.WriteNpz(&buf, []npy.Array{
		{Name: "values", Shape: []int{rows, cols}, Data: flatValues},
		{Name: "cell_centers_x", Shape: []int{rows, cols}, Data: flatXCenters},
		{Name: "cell_centers_y", Shape: []int{rows, cols}, Data: flatYCenters},
		{Name: "cell_centers_z", Shape: []int{rows, cols}, Data: flatZCenters},
	}); err != nil {
		return err
	}
	if err := w.store.WriteAtomic(runID, "viewer/heatmap.npz", buf.Bytes()); err != nil {
		return err
	}

	return w.writePlot(runID, "plots/radio_map.png", PlotRequest{Name: "radio_map", Data: heatmapJSON})
}

// WriteScene writes viewer/markers.json, viewer/paths.json, and
// viewer/scene_manifest.json (§4.5).
func (w *Writer) WriteScene(runID string, manifest SceneManifest, markers []Marker, paths []Path) error {
	if err := w.writeJSON(runID, "viewer/scene_manifest.json", manifest); err != nil {
		return err
	}
	if err := w.writeJSON(runID, "viewer/markers.json", map[string]any{"markers": markers}); err != nil {
		return err
	}
	return w.writeJSON(runID, "viewer/paths.json", map[string]any{"paths": paths})
}
