package theory

import (
	"math"

	"github.com/rancesol/CLMM/errs"
)

// ComputeReducedShearFromConvergence returns g = gamma / (1 - kappa)
// elementwise. Shear and convergence must have the same length.
func ComputeReducedShearFromConvergence(shear, convergence []float64) ([]float64, error) {
	if len(shear) != len(convergence) {
		return nil, errs.Configf("shear/convergence", "",
			"arrays must have the same length")
	}
	out := make([]float64, len(shear))
	for i := range shear {
		out[i] = shear[i] / (1 - convergence[i])
	}
	return out, nil
}

// ComputeMagnificationBiasFromMagnification returns mu^(alpha-1)
// elementwise, where alpha is the logarithmic slope of the cumulative
// source number counts.
func ComputeMagnificationBiasFromMagnification(magnification []float64, alpha float64) ([]float64, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, errs.Domainf("alpha", alpha, "count slope must be finite")
	}
	out := make([]float64, len(magnification))
	for i, mu := range magnification {
		out[i] = math.Pow(mu, alpha-1)
	}
	return out, nil
}

// brentRoot finds a root of f on [a, b] by Brent's method. The interval must
// bracket a sign change. Used by the mass-concentration conversion; gonum
// carries no scalar root finder.
func brentRoot(f func(float64) float64, a, b, tol float64) (float64, error) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if fa*fb > 0 {
		return 0, errs.Domainf("bracket", a, "interval does not bracket a root")
	}
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}
	c, fc := a, fa
	var d, e float64 = b - a, b - a

	for i := 0; i < 200; i++ {
		if fb == 0 || math.Abs(b-a) < tol*(math.Abs(b)+1) {
			return b, nil
		}
		if fa != fc && fb != fc {
			// Inverse quadratic interpolation.
			s0 := a * fb * fc / ((fa - fb) * (fa - fc))
			s1 := b * fa * fc / ((fb - fa) * (fb - fc))
			s2 := c * fa * fb / ((fc - fa) * (fc - fb))
			d = s0 + s1 + s2 - b
		} else {
			// Secant step.
			d = -fb * (b - a) / (fb - fa)
		}
		s := b + d
		lo, hi := math.Min(a, b), math.Max(a, b)
		if s <= lo || s >= hi || math.Abs(d) > math.Abs(e)/2 {
			// Fall back to bisection when interpolation misbehaves.
			s = 0.5 * (a + b)
			d = s - b
		}
		e = d

		fs := f(s)
		c, fc = b, fb
		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}
	return b, nil
}
