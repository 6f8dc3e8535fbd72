package theory

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mathext"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// Defaults for the redshift-distribution averages.
const (
	// DefaultZMax bounds the source-redshift integration.
	DefaultZMax = 10.0

	// DefaultDeltaZCut is added to the cluster redshift to form the lower
	// integration bound when none is given, keeping near-cluster sources
	// (with essentially zero efficiency and large photo-z contamination)
	// out of the average.
	DefaultDeltaZCut = 0.1
)

// BetaAverager computes mean and mean-square geometric lensing-efficiency
// ratios over a source redshift distribution. The numerator and denominator
// integrals share one Gauss-Legendre rule, so an unnormalized density is
// fine: the normalization divides out.
type BetaAverager struct {
	Cosmo cosmo.Cosmology

	// ZMin is the lower integration bound. Zero or negative means
	// z_cluster + DeltaZCut.
	ZMin float64

	// ZMax is the upper integration bound. Zero means DefaultZMax.
	ZMax float64

	// DeltaZCut shifts the default lower bound above the cluster.
	DeltaZCut float64

	// Distribution is the source redshift density. Nil means the Chang et
	// al. (2013) fiducial density.
	Distribution func(z float64) float64

	// QuadNodes overrides the Gauss-Legendre order (default 128).
	QuadNodes int
}

// NewBetaAverager returns an averager with the fiducial defaults.
func NewBetaAverager(c cosmo.Cosmology) *BetaAverager {
	return &BetaAverager{
		Cosmo:     c,
		ZMax:      DefaultZMax,
		DeltaZCut: DefaultDeltaZCut,
	}
}

// Beta returns the geometric lensing efficiency
// beta = max(0, D_A(z_cl, z_s) / D_A(z_s)), zero for sources at or in front
// of the cluster.
func (a *BetaAverager) Beta(zSrc, zCl float64) (float64, error) {
	if a.Cosmo == nil {
		return 0, errs.Missingf("lensing efficiency", "cosmology")
	}
	if zSrc <= zCl {
		return 0, nil
	}
	return a.Cosmo.AngularDiameterDistanceZ1Z2(zCl, zSrc) / a.Cosmo.AngularDiameterDistance(zSrc), nil
}

// BetaS returns the efficiency ratio beta_s = beta(z_s) / beta(z_inf).
func (a *BetaAverager) BetaS(zSrc, zCl, zInf float64) (float64, error) {
	num, err := a.Beta(zSrc, zCl)
	if err != nil {
		return 0, err
	}
	den, err := a.Beta(zInf, zCl)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, errs.Domainf("z_inf", zInf, "reference redshift must be behind the cluster")
	}
	return num / den, nil
}

func (a *BetaAverager) bounds(zCl float64) (float64, float64) {
	zmin := a.ZMin
	if zmin <= 0 {
		cut := a.DeltaZCut
		if cut == 0 {
			cut = DefaultDeltaZCut
		}
		zmin = zCl + cut
	}
	zmax := a.ZMax
	if zmax == 0 {
		zmax = DefaultZMax
	}
	return zmin, zmax
}

func (a *BetaAverager) density() func(float64) float64 {
	if a.Distribution != nil {
		return a.Distribution
	}
	return ChangDistribution
}

func (a *BetaAverager) nodes() int {
	if a.QuadNodes > 0 {
		return a.QuadNodes
	}
	return distributionQuadNodes
}

// average computes int p(z) f(z) dz / int p(z) dz over the configured range.
func (a *BetaAverager) average(zCl float64, f func(z float64) float64) (float64, error) {
	if a.Cosmo == nil {
		return 0, errs.Missingf("lensing efficiency average", "cosmology")
	}
	zmin, zmax := a.bounds(zCl)
	if zmin >= zmax {
		return 0, errs.Domainf("z_min", zmin, "integration range is empty")
	}
	p := a.density()
	n := a.nodes()
	den := quad.Fixed(p, zmin, zmax, n, nil, 0)
	if den <= 0 {
		return 0, errs.Domainf("z_distrib", den, "distribution has no support in the integration range")
	}
	num := quad.Fixed(func(z float64) float64 {
		return p(z) * f(z)
	}, zmin, zmax, n, nil, 0)
	return num / den, nil
}

// BetaMean returns <beta> over the source distribution.
func (a *BetaAverager) BetaMean(zCl float64) (float64, error) {
	return a.average(zCl, func(z float64) float64 {
		b, _ := a.Beta(z, zCl)
		return b
	})
}

// BetaSMean returns <beta_s> over the source distribution.
func (a *BetaAverager) BetaSMean(zCl, zInf float64) (float64, error) {
	bInf, err := a.Beta(zInf, zCl)
	if err != nil {
		return 0, err
	}
	if bInf == 0 {
		return 0, errs.Domainf("z_inf", zInf, "reference redshift must be behind the cluster")
	}
	return a.average(zCl, func(z float64) float64 {
		b, _ := a.Beta(z, zCl)
		return b / bInf
	})
}

// BetaSSquareMean returns <beta_s^2> over the source distribution.
func (a *BetaAverager) BetaSSquareMean(zCl, zInf float64) (float64, error) {
	bInf, err := a.Beta(zInf, zCl)
	if err != nil {
		return 0, err
	}
	if bInf == 0 {
		return 0, errs.Domainf("z_inf", zInf, "reference redshift must be behind the cluster")
	}
	return a.average(zCl, func(z float64) float64 {
		b, _ := a.Beta(z, zCl)
		bs := b / bInf
		return bs * bs
	})
}

// Fiducial redshift-distribution parameters.
const (
	changAlpha = 1.24
	changBeta  = 1.01
	changZ0    = 0.51

	srdAlpha = 2.0
	srdBeta  = 0.9
	srdZ0    = 0.28
)

// ChangDistribution is the Chang et al. (2013) unnormalized galaxy redshift
// density with the fiducial parameter set.
func ChangDistribution(z float64) float64 {
	if z <= 0 {
		return 0
	}
	return math.Pow(z, changAlpha) * math.Exp(-math.Pow(z/changZ0, changBeta))
}

// ChangDistributionCDF is the corresponding unnormalized cumulative
// distribution.
func ChangDistributionCDF(z float64) float64 {
	return gammaFormCDF(z, changAlpha, changBeta, changZ0)
}

// SRDDistribution is the unnormalized galaxy redshift density used in the
// LSST/DESC Science Requirement Document (arXiv:1809.01669).
func SRDDistribution(z float64) float64 {
	if z <= 0 {
		return 0
	}
	return math.Pow(z, srdAlpha) * math.Exp(-math.Pow(z/srdZ0, srdBeta))
}

// SRDDistributionCDF is the corresponding unnormalized cumulative
// distribution.
func SRDDistributionCDF(z float64) float64 {
	return gammaFormCDF(z, srdAlpha, srdBeta, srdZ0)
}

// gammaFormCDF integrates t^a exp(-(t/z0)^b) from 0 to z through the lower
// incomplete gamma function.
func gammaFormCDF(z, a, b, z0 float64) float64 {
	if z <= 0 {
		return 0
	}
	s := (a + 1) / b
	return math.Pow(z0, a+1) / b * math.Gamma(s) * mathext.GammaIncReg(s, math.Pow(z/z0, b))
}
