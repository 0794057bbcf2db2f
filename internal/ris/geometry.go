// Package ris implements C4, the near-field reflectarray math: element
// geometry, local frame, phase synthesis, quantization, far-field cut
// sweep, normalization, sidelobe metrics, and reference validation (§4.4).
//
// All operations are pure and deterministic given their inputs; the only
// failure mode is InvalidConfig on the invariants of §3.
package ris

import (
	"math"

	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

const speedOfLight = 299792458.0

// Vec is a plain 3-vector for kernel-internal math. The kernel is written
// directly against [3]float64-shaped arithmetic rather than a linear-algebra
// library: no repo in the corpus imports one (see DESIGN.md).
type Vec [3]float64

func fromModel(v models.Vec3) Vec { return Vec{v.X, v.Y, v.Z} }

func (a Vec) add(b Vec) Vec    { return Vec{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec) sub(b Vec) Vec    { return Vec{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec) scale(s float64) Vec { return Vec{a[0] * s, a[1] * s, a[2] * s} }
func (a Vec) dot(b Vec) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec) cross(b Vec) Vec {
	return Vec{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
func (a Vec) norm() float64 { return math.Sqrt(a.dot(a)) }
func (a Vec) normalized() Vec {
	n := a.norm()
	if n == 0 {
		return a
	}
	return a.scale(1 / n)
}
func (a Vec) distance(b Vec) float64 { return a.sub(b).norm() }

// Frame is the right-handed orthonormal local panel frame derived from
// geometry.normal and geometry.x_axis_hint (§4.4):
//
//	z = normal_hat
//	x = (x_axis_hint - (x_axis_hint . z) z) normalized
//	y = z cross x
type Frame struct {
	X, Y, Z Vec
}

// BuildFrame validates the normal/x_axis_hint invariant (non-parallel, §3)
// and derives the orthonormal frame.
func BuildFrame(g models.Geometry) (Frame, error) {
	normal := fromModel(g.Normal)
	hint := fromModel(g.XAxisHint)

	if normal.norm() == 0 {
		return Frame{}, &apierr.InvalidConfig{Reason: "geometry.normal must be non-zero"}
	}
	z := normal.normalized()

	proj := hint.sub(z.scale(hint.dot(z)))
	if proj.norm() < 1e-9 {
		return Frame{}, &apierr.InvalidConfig{Reason: "geometry.normal and x_axis_hint must be non-parallel"}
	}
	x := proj.normalized()
	y := z.cross(x)

	return Frame{X: x, Y: y, Z: z}, nil
}

// ElementCenters returns the nx*ny element center positions in world
// coordinates, row-major as [j][i] (§4.4):
//
//	p(i,j) = origin + (i - (nx-1)/2)*dx*x_hat + (j - (ny-1)/2)*dy*y_hat
func ElementCenters(g models.Geometry, frame Frame) ([][]Vec, error) {
	if g.Nx <= 0 || g.Ny <= 0 {
		return nil, &apierr.InvalidConfig{Reason: "geometry.nx and geometry.ny must be positive"}
	}
	if g.Dx <= 0 || g.Dy <= 0 {
		return nil, &apierr.InvalidConfig{Reason: "geometry.dx and geometry.dy must be positive"}
	}

	origin := fromModel(g.Origin)
	halfNx := float64(g.Nx-1) / 2
	halfNy := float64(g.Ny-1) / 2

	centers := make([][]Vec, g.Ny)
	for j := 0; j < g.Ny; j++ {
		row := make([]Vec, g.Nx)
		for i := 0; i < g.Nx; i++ {
			p := origin.
				add(frame.X.scale((float64(i) - halfNx) * g.Dx)).
				add(frame.Y.scale((float64(j) - halfNy) * g.Dy))
			row[i] = p
		}
		centers[j] = row
	}
	return centers, nil
}

// Wavenumber returns k = 2*pi*f/c.
func Wavenumber(frequencyHz float64) float64 {
	return 2 * math.Pi * frequencyHz / speedOfLight
}

// CheckSpacing enforces min(dx,dy) >= lambda/10 unless quantization.bits==0
// and the explicit override is set (§3).
func CheckSpacing(g models.Geometry, q models.Quantization, frequencyHz float64) error {
	lambda := speedOfLight / frequencyHz
	minSpacing := math.Min(g.Dx, g.Dy)
	if minSpacing < lambda/10 {
		if q.Bits == 0 && g.AllowSubWavelengthSpacing {
			return nil
		}
		return &apierr.InvalidConfig{Reason: "element spacing below lambda/10 without quantization.bits=0 override"}
	}
	return nil
}

// PanelCorners returns the four element-grid corner points in world space,
// used as the eligible RIS bounding-box contribution for GridAligner's
// auto_size (§9 decision 2).
func PanelCorners(g models.Geometry, frame Frame) []Vec {
	origin := fromModel(g.Origin)
	halfW := float64(g.Nx) / 2 * g.Dx
	halfH := float64(g.Ny) / 2 * g.Dy
	corners := make([]Vec, 0, 4)
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			corners = append(corners, origin.
				add(frame.X.scale(sx*halfW)).
				add(frame.Y.scale(sy*halfH)))
		}
	}
	return corners
}
