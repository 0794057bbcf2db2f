// Package grid implements C3: snapping a requested radio-map rectangle to
// an integer number of cells centered on a requested center, and emitting
// canonical grid metadata (§4.3).
package grid

import (
	"math"

	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

// Align snaps req to the GridAligner contract of §4.3:
//  1. if AutoSize is set, the requested rectangle is the bounding box of
//     all devices of interest (and, if opted in, RIS panel corners)
//     inflated by padding on each side;
//  2. each side is snapped to the nearest multiple of the matching cell
//     size, rounding up so the snapped rectangle covers the requested one,
//     with a minimum snapped size of 2*cell_size;
//  3. the snapped rectangle is recentered on the requested center;
//  4. canonical cell_centers are emitted as the sole source of truth.
func Align(req models.GridRequest) (models.RadioMapGrid, error) {
	if req.CellSizeX <= 0 || req.CellSizeY <= 0 {
		return models.RadioMapGrid{}, &apierr.InvalidGrid{Reason: "cell_size must be > 0"}
	}
	if !finite(req.CenterX) || !finite(req.CenterY) || !finite(req.CenterZ) {
		return models.RadioMapGrid{}, &apierr.InvalidGrid{Reason: "center must be finite"}
	}

	reqSizeX, reqSizeY := req.RequestedSizeX, req.RequestedSizeY
	if req.AutoSize != nil && req.AutoSize.Enabled {
		bx, by, err := boundingSize(req)
		if err != nil {
			return models.RadioMapGrid{}, err
		}
		reqSizeX, reqSizeY = bx, by
	}

	if reqSizeX <= 0 || reqSizeY <= 0 {
		return models.RadioMapGrid{}, &apierr.InvalidGrid{Reason: "requested_size must be > 0"}
	}

	snapX := snapUp(reqSizeX, req.CellSizeX)
	snapY := snapUp(reqSizeY, req.CellSizeY)

	grid := models.RadioMapGrid{
		CellSizeX: req.CellSizeX,
		CellSizeY: req.CellSizeY,
		CenterX:   req.CenterX,
		CenterY:   req.CenterY,
		CenterZ:   req.CenterZ,
		SizeX:     snapX,
		SizeY:     snapY,
	}
	grid.XS = cellCenters(req.CenterX, snapX, req.CellSizeX)
	grid.YS = cellCenters(req.CenterY, snapY, req.CellSizeY)
	return grid, nil
}

// boundingSize computes the inflated bounding-box side lengths from
// AutoSize's device set, with RIS panel corners eligible per the submitter's
// opt-in (§9 decision 2).
func boundingSize(req models.GridRequest) (float64, float64, error) {
	auto := req.AutoSize
	points := append([]models.Vec3(nil), auto.Devices...)
	if auto.IncludeRis {
		points = append(points, auto.RisCorners...)
	}
	if len(points) == 0 {
		return 0, 0, &apierr.InvalidGrid{Reason: "auto_size requires at least one device or opted-in RIS corner"}
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	pad := auto.PaddingM
	return (maxX - minX) + 2*pad, (maxY - minY) + 2*pad, nil
}

// snapUp rounds size up to the nearest multiple of cell that covers it,
// keeping the size unchanged if it is already an exact multiple (tie-break,
// §4.3), with a floor of 2*cell.
func snapUp(size, cell float64) float64 {
	n := size / cell
	rounded := math.Round(n)
	if math.Abs(rounded-n) < 1e-9 {
		n = rounded
	} else {
		n = math.Ceil(n)
	}
	if n < 2 {
		n = 2
	}
	return n * cell
}

// cellCenters produces the canonical per-axis coordinate list: for a
// snapped size of n cells centered on center, xs[i] = center - size/2 +
// (i+0.5)*cell.
func cellCenters(center, size, cell float64) []float64 {
	n := int(math.Round(size / cell))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = center - size/2 + (float64(i)+0.5)*cell
	}
	return out
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
