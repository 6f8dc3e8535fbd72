// Package dataops turns per-galaxy catalog measurements into lensing
// observables: projection into tangential/cross components, lens-source
// weighting, and weighted radial binning.
package dataops

import (
	"log/slog"
	"math"

	"github.com/viterin/vek"

	"github.com/rancesol/CLMM/errs"
)

// Geometry selects how angular separations and position angles are
// computed.
type Geometry string

const (
	// GeometryCurve uses exact spherical trigonometry.
	GeometryCurve Geometry = "curve"

	// GeometryFlat uses the flat-sky small-angle approximation.
	GeometryFlat Geometry = "flat"
)

// coincidentTol flags effectively zero lens-source separations, where the
// rotation angle is undefined.
const coincidentTol = 1e-9

// ComponentsOptions configures ComputeTangentialAndCrossComponents.
type ComponentsOptions struct {
	// Geometry defaults to GeometryCurve.
	Geometry Geometry

	// SigmaCrit, when non-nil, scales the components by the per-galaxy
	// critical surface density, turning them into excess-surface-density
	// estimators.
	SigmaCrit []float64

	// Logger receives diagnostics; nil means slog.Default().
	Logger *slog.Logger
}

// ComputeTangentialAndCrossComponents rotates the shape components of each
// source into the frame defined by the lens-source direction:
//
//	e_t = -(e1 cos 2phi + e2 sin 2phi)
//	e_x =   e1 sin 2phi - e2 cos 2phi
//
// It returns the angular separations in radians and the two rotated
// components.
func ComputeTangentialAndCrossComponents(raLens, decLens float64, raSource, decSource, shear1, shear2 []float64, opts ComponentsOptions) (theta, tangential, cross []float64, err error) {
	n := len(raSource)
	if len(decSource) != n || len(shear1) != n || len(shear2) != n {
		return nil, nil, nil, errs.Configf("source arrays", "",
			"ra, dec and both shape components must have the same length")
	}
	if opts.SigmaCrit != nil && len(opts.SigmaCrit) != n {
		return nil, nil, nil, errs.Configf("sigma_c", "", "must match the source arrays")
	}
	if raLens < -360 || raLens > 360 || decLens < -90 || decLens > 90 {
		return nil, nil, nil, errs.Domainf("ra/dec", raLens, "lens position outside valid sky range")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	geometry := opts.Geometry
	if geometry == "" {
		geometry = GeometryCurve
	}

	theta = make([]float64, n)
	phi := make([]float64, n)
	switch geometry {
	case GeometryFlat:
		lensingAnglesFlat(raLens, decLens, raSource, decSource, theta, phi)
	case GeometryCurve:
		lensingAnglesCurve(raLens, decLens, raSource, decSource, theta, phi)
	default:
		return nil, nil, nil, errs.Configf("geometry", string(geometry), "supported: curve, flat")
	}

	coincident := 0
	tangential = make([]float64, n)
	cross = make([]float64, n)
	for i := 0; i < n; i++ {
		if theta[i] < coincidentTol {
			coincident++
		}
		c2, s2 := math.Cos(2*phi[i]), math.Sin(2*phi[i])
		tangential[i] = -(shear1[i]*c2 + shear2[i]*s2)
		cross[i] = shear1[i]*s2 - shear2[i]*c2
	}
	if coincident > 0 {
		log.Warn("sources coincident with the lens position; rotation angle set to zero",
			"count", coincident)
	}
	if opts.SigmaCrit != nil {
		vek.Mul_Inplace(tangential, opts.SigmaCrit)
		vek.Mul_Inplace(cross, opts.SigmaCrit)
	}
	return theta, tangential, cross, nil
}

// lensingAnglesFlat computes separations and rotation angles in the
// flat-sky approximation. phi is measured so that a source due north of the
// lens has phi = pi/2, matching the curved-sky convention.
func lensingAnglesFlat(raLens, decLens float64, raSource, decSource, theta, phi []float64) {
	cosDecL := math.Cos(decLens * math.Pi / 180)
	for i := range raSource {
		dra := (raSource[i] - raLens) * math.Pi / 180
		// Wrap to (-pi, pi] so catalogs crossing RA=0 stay local.
		dra -= math.Round(dra/(2*math.Pi)) * 2 * math.Pi
		dx := dra * cosDecL
		dy := (decSource[i] - decLens) * math.Pi / 180
		theta[i] = math.Hypot(dx, dy)
		if theta[i] == 0 {
			phi[i] = 0
			continue
		}
		phi[i] = math.Atan2(dy, -dx)
	}
}

// lensingAnglesCurve computes exact spherical separations (Vincenty) and
// converts the position angle (north through east) into the component
// rotation angle.
func lensingAnglesCurve(raLens, decLens float64, raSource, decSource, theta, phi []float64) {
	raL := raLens * math.Pi / 180
	decL := decLens * math.Pi / 180
	sinDecL, cosDecL := math.Sincos(decL)
	for i := range raSource {
		raS := raSource[i] * math.Pi / 180
		decS := decSource[i] * math.Pi / 180
		sinDecS, cosDecS := math.Sincos(decS)
		dra := raS - raL
		sinDra, cosDra := math.Sincos(dra)

		// Vincenty separation, stable at all scales.
		num := math.Hypot(cosDecS*sinDra, cosDecL*sinDecS-sinDecL*cosDecS*cosDra)
		den := sinDecL*sinDecS + cosDecL*cosDecS*cosDra
		theta[i] = math.Atan2(num, den)
		if theta[i] == 0 {
			phi[i] = 0
			continue
		}

		pa := math.Atan2(sinDra*cosDecS, cosDecL*sinDecS-sinDecL*cosDecS*cosDra)
		p := pa + 0.5*math.Pi
		if p > math.Pi {
			p -= 2 * math.Pi
		}
		phi[i] = p
	}
}
