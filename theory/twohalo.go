package theory

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// Two-halo term: the contribution of correlated neighboring structure to the
// projected density around the cluster, computed as a Hankel-type transform
// of the linear matter power spectrum scaled by the halo bias and the mean
// matter density. Requires the cosmology to implement the optional
// PowerSpectrum capability.

// Tabulation and quadrature grids for the transform.
const (
	twoHaloPkSamples   = 1024 // log-k samples for the spline
	twoHaloKMin        = 1e-5 // 1/Mpc
	twoHaloKMax        = 1e5  // 1/Mpc
	twoHaloLSteps      = 2000 // log-spaced multipole samples
	twoHaloLMin        = 1.0
	twoHaloLMax        = 1e6
	twoHaloSplineCache = 16 // retained per-redshift splines
)

// pkSpline interpolates ln P(ln k) at a fixed redshift.
type pkSpline struct {
	spline interp.AkimaSpline
	lnKMin float64
	lnKMax float64
}

func (s *pkSpline) at(k float64) float64 {
	lnk := math.Log(k)
	if lnk < s.lnKMin || lnk > s.lnKMax {
		return 0
	}
	return math.Exp(s.spline.Predict(lnk))
}

type twoHaloState struct {
	splines *lru.Cache[float64, *pkSpline]
}

func (m *Modeling) twoHaloSpline(ps cosmo.PowerSpectrum, zCl float64) (*pkSpline, error) {
	if m.twoHalo == nil {
		cache, err := lru.New[float64, *pkSpline](twoHaloSplineCache)
		if err != nil {
			return nil, err
		}
		m.twoHalo = &twoHaloState{splines: cache}
	}
	if s, ok := m.twoHalo.splines.Get(zCl); ok {
		return s, nil
	}

	lnk := make([]float64, twoHaloPkSamples)
	lnp := make([]float64, twoHaloPkSamples)
	floats.Span(lnk, math.Log(twoHaloKMin), math.Log(twoHaloKMax))
	for i, lk := range lnk {
		p := ps.LinearMatterPower(math.Exp(lk), zCl)
		if p <= 0 {
			// Keep the log-spline finite on empty tails.
			p = math.SmallestNonzeroFloat64
		}
		lnp[i] = math.Log(p)
	}
	s := &pkSpline{lnKMin: lnk[0], lnKMax: lnk[len(lnk)-1]}
	if err := s.spline.Fit(lnk, lnp); err != nil {
		return nil, err
	}
	m.twoHalo.splines.Add(zCl, s)
	return s, nil
}

// EvalSurfaceDensity2h returns the two-halo surface density (J0 transform)
// in Msun/Mpc^2 at projected radii rProj, scaled by halobias.
func (m *Modeling) EvalSurfaceDensity2h(rProj []float64, zCl, halobias float64) ([]float64, error) {
	return m.evalTwoHalo(rProj, zCl, halobias, 0)
}

// EvalExcessSurfaceDensity2h returns the two-halo excess surface density
// (J2 transform) in Msun/Mpc^2.
func (m *Modeling) EvalExcessSurfaceDensity2h(rProj []float64, zCl, halobias float64) ([]float64, error) {
	return m.evalTwoHalo(rProj, zCl, halobias, 2)
}

func (m *Modeling) evalTwoHalo(rProj []float64, zCl, halobias float64, order int) ([]float64, error) {
	if m.cosmo == nil {
		return nil, errs.Missingf("two-halo term", "cosmology")
	}
	ps, ok := m.cosmo.(cosmo.PowerSpectrum)
	if !ok {
		return nil, &errs.CapabilityError{Op: "two-halo term", Backend: m.cosmo.Describe()}
	}
	if err := m.checkRadii("r_proj", rProj); err != nil {
		return nil, err
	}
	if err := m.checkRedshift("z_cl", zCl); err != nil {
		return nil, err
	}
	if m.validate && (halobias <= 0 || math.IsNaN(halobias)) {
		return nil, errs.Domainf("halobias", halobias, "halo bias must be positive")
	}

	spline, err := m.twoHaloSpline(ps, zCl)
	if err != nil {
		return nil, err
	}

	da := m.cosmo.AngularDiameterDistance(zCl)
	rhoM := m.cosmo.MeanMatterDensity(zCl)
	onePlusZ := 1 + zCl

	lvals := make([]float64, twoHaloLSteps)
	floats.Span(lvals, math.Log(twoHaloLMin), math.Log(twoHaloLMax))
	for i := range lvals {
		lvals[i] = math.Exp(lvals[i])
	}
	pk := make([]float64, twoHaloLSteps)
	for i, l := range lvals {
		pk[i] = spline.at(l / (onePlusZ * da))
	}

	scale := halobias * rhoM / (onePlusZ * onePlusZ * onePlusZ * da * da)
	integrand := make([]float64, twoHaloLSteps)
	out := make([]float64, len(rProj))
	for i, r := range rProj {
		theta := r / da
		for j, l := range lvals {
			integrand[j] = l * math.Jn(order, l*theta) * pk[j]
		}
		out[i] = scale * integrate.Trapezoidal(lvals, integrand) / (2 * math.Pi)
	}
	return out, nil
}
