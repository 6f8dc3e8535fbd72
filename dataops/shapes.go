package dataops

import (
	"math"
	"math/cmplx"

	"github.com/rancesol/CLMM/errs"
)

// ShapeDefinition names the convention a pair of shape components follows.
type ShapeDefinition string

const (
	// ShapeEpsilon is the epsilon ellipticity, (1-q)/(1+q) for axis ratio q.
	ShapeEpsilon ShapeDefinition = "epsilon"

	// ShapeChi is the chi ellipticity, (1-q^2)/(1+q^2).
	ShapeChi ShapeDefinition = "chi"

	// ShapeShear holds unreduced shear components; the conversion divides by
	// (1 - kappa) first.
	ShapeShear ShapeDefinition = "shear"

	// ShapeReducedShear holds reduced shear, which already estimates
	// epsilon in the weak regime.
	ShapeReducedShear ShapeDefinition = "reduced_shear"
)

// ConvertShapesToEpsilon converts shape components of any supported
// definition to the epsilon convention used by the component projection.
func ConvertShapesToEpsilon(shape1, shape2 []float64, def ShapeDefinition, kappa float64) ([]float64, []float64, error) {
	if len(shape1) != len(shape2) {
		return nil, nil, errs.Configf("shape components", "", "arrays must have the same length")
	}
	n := len(shape1)
	out1 := make([]float64, n)
	out2 := make([]float64, n)
	switch def {
	case ShapeEpsilon, ShapeReducedShear:
		copy(out1, shape1)
		copy(out2, shape2)
	case ShapeChi:
		for i := 0; i < n; i++ {
			chiSq := shape1[i]*shape1[i] + shape2[i]*shape2[i]
			den := 1 + math.Sqrt(1-chiSq)
			out1[i] = shape1[i] / den
			out2[i] = shape2[i] / den
		}
	case ShapeShear:
		f := 1 / (1 - kappa)
		for i := 0; i < n; i++ {
			out1[i] = shape1[i] * f
			out2[i] = shape2[i] * f
		}
	default:
		return nil, nil, errs.Configf("shape definition", string(def),
			"supported: epsilon, chi, shear, reduced_shear")
	}
	return out1, out2, nil
}

// BuildEllipticities converts second brightness moments into both the chi
// and epsilon ellipticity components.
func BuildEllipticities(q11, q22, q12 []float64) (chi1, chi2, eps1, eps2 []float64, err error) {
	n := len(q11)
	if len(q22) != n || len(q12) != n {
		return nil, nil, nil, nil, errs.Configf("moments", "", "arrays must have the same length")
	}
	chi1 = make([]float64, n)
	chi2 = make([]float64, n)
	eps1 = make([]float64, n)
	eps2 = make([]float64, n)
	for i := 0; i < n; i++ {
		norm := q11[i] + q22[i]
		chi1[i] = (q11[i] - q22[i]) / norm
		chi2[i] = 2 * q12[i] / norm
		den := norm + 2*math.Sqrt(q11[i]*q22[i]-q12[i]*q12[i])
		eps1[i] = (q11[i] - q22[i]) / den
		eps2[i] = 2 * q12[i] / den
	}
	return chi1, chi2, eps1, eps2, nil
}

// ComputeLensedEllipticity applies the shear transformation to intrinsic
// epsilon ellipticities:
//
//	e = (e_s + g) / (1 + conj(g) e_s), g = (gamma1 + i gamma2) / (1 - kappa)
func ComputeLensedEllipticity(es1, es2, gamma1, gamma2, kappa []float64) ([]float64, []float64, error) {
	n := len(es1)
	if len(es2) != n || len(gamma1) != n || len(gamma2) != n || len(kappa) != n {
		return nil, nil, errs.Configf("lensing fields", "", "arrays must have the same length")
	}
	out1 := make([]float64, n)
	out2 := make([]float64, n)
	for i := 0; i < n; i++ {
		es := complex(es1[i], es2[i])
		g := complex(gamma1[i], gamma2[i]) / complex(1-kappa[i], 0)
		e := (es + g) / (1 + cmplx.Conj(g)*es)
		out1[i] = real(e)
		out2[i] = imag(e)
	}
	return out1, out2, nil
}
