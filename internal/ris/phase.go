package ris

import (
	"math"

	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

// PhaseMap is a ny x nx array of phases in (-pi, pi], row-major [j][i].
type PhaseMap [][]float64

// SynthesizePhase implements §4.4 operation 1 for every control.Kind:
//
//	steer(az,el,phi0):  phi(i,j) = -k*(sin(el)*px + cos(el)*sin(az)*py) + phi0
//	uniform(phi):       phi(i,j) = phi constant
//	focus(F):           phi(i,j) = -k*||p(i,j) - F|| mod 2*pi
//	gradient(S,T):       phi(i,j) = -k*(||p(i,j)-S|| + ||p(i,j)-T||)
//
// All results are wrapped into (-pi, pi].
func SynthesizePhase(g models.Geometry, control models.Control, frequencyHz float64) (PhaseMap, error) {
	frame, err := BuildFrame(g)
	if err != nil {
		return nil, err
	}
	centers, err := ElementCenters(g, frame)
	if err != nil {
		return nil, err
	}
	if frequencyHz <= 0 {
		return nil, &apierr.InvalidConfig{Reason: "experiment.frequency_hz must be > 0"}
	}
	k := Wavenumber(frequencyHz)

	out := make(PhaseMap, g.Ny)
	for j := 0; j < g.Ny; j++ {
		out[j] = make([]float64, g.Nx)
		for i := 0; i < g.Nx; i++ {
			p := centers[j][i]
			px := p.dot(frame.X)
			py := p.dot(frame.Y)

			var phi float64
			switch control.Kind {
			case models.ControlSteer:
				az := deg2rad(control.AzDeg)
				el := deg2rad(control.ElDeg)
				phi = -k*(math.Sin(el)*px+math.Cos(el)*math.Sin(az)*py) + deg2rad(control.PhaseOffsetDeg)
			case models.ControlUniform:
				phi = deg2rad(control.PhaseDeg)
			case models.ControlFocus:
				f := fromModel(control.FocalPoint)
				phi = -k * p.distance(f)
			case models.ControlGradient:
				s := fromModel(control.Sources)
				t := fromModel(control.Targets)
				phi = -k * (p.distance(s) + p.distance(t))
			default:
				return nil, &apierr.InvalidConfig{Reason: "control.kind must be one of steer|uniform|focus|gradient"}
			}
			out[j][i] = wrapPhase(phi)
		}
	}
	return out, nil
}

// wrapPhase maps any real phase into (-pi, pi].
func wrapPhase(phi float64) float64 {
	wrapped := math.Mod(phi+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
