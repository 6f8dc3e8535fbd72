package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancesol/CLMM/cosmo"
)

func newTestAverager() *BetaAverager {
	return NewBetaAverager(cosmo.NewFlatLCDM(70, 0.225, 0.045))
}

func TestBetaGating(t *testing.T) {
	a := newTestAverager()

	b, err := a.Beta(0.1, 0.3)
	require.NoError(t, err)
	assert.Zero(t, b, "foreground sources carry no efficiency")

	b, err = a.Beta(0.3, 0.3)
	require.NoError(t, err)
	assert.Zero(t, b)

	b, err = a.Beta(1.0, 0.3)
	require.NoError(t, err)
	assert.Greater(t, b, 0.0)
	assert.Less(t, b, 1.0)
}

func TestBetaSBounded(t *testing.T) {
	a := newTestAverager()
	prev := 0.0
	for _, z := range []float64{0.5, 1, 2, 5} {
		bs, err := a.BetaS(z, 0.3, DefaultZInf)
		require.NoError(t, err)
		assert.Greater(t, bs, prev, "beta_s grows with source distance")
		assert.LessOrEqual(t, bs, 1.0+1e-12)
		prev = bs
	}

	_, err := a.BetaS(1.0, 0.3, 0.2)
	assert.Error(t, err, "the reference redshift must sit behind the cluster")
}

func TestBetaMomentOrdering(t *testing.T) {
	a := newTestAverager()
	zCl := 0.3

	mean, err := a.BetaSMean(zCl, DefaultZInf)
	require.NoError(t, err)
	square, err := a.BetaSSquareMean(zCl, DefaultZInf)
	require.NoError(t, err)

	// 0 <= beta_s <= 1 forces <bs>^2 <= <bs^2> <= <bs>.
	assert.Greater(t, mean, 0.0)
	assert.Less(t, mean, 1.0)
	assert.GreaterOrEqual(t, square, mean*mean)
	assert.LessOrEqual(t, square, mean)
}

func TestBetaMeanRespectsBounds(t *testing.T) {
	a := newTestAverager()
	a.ZMin = 5
	a.ZMax = 4
	_, err := a.BetaMean(0.3)
	assert.Error(t, err)

	a = newTestAverager()
	a.Distribution = func(z float64) float64 { return 0 }
	_, err = a.BetaMean(0.3)
	assert.Error(t, err, "a density without support cannot be averaged")
}

func TestChangDistributionCDF(t *testing.T) {
	// The closed-form CDF must match direct quadrature of the density.
	const steps = 20000
	h := 2.0 / steps
	sum := 0.0
	for i := 0; i < steps; i++ {
		z0 := float64(i) * h
		sum += 0.5 * (ChangDistribution(z0) + ChangDistribution(z0+h)) * h
	}
	assert.InEpsilon(t, sum, ChangDistributionCDF(2.0), 1e-6)

	assert.Zero(t, ChangDistribution(0))
	assert.Zero(t, ChangDistributionCDF(-1))
	assert.Greater(t, ChangDistributionCDF(3), ChangDistributionCDF(1))
}

func TestSRDDistribution(t *testing.T) {
	assert.Zero(t, SRDDistribution(0))
	assert.Greater(t, SRDDistribution(0.8), 0.0)

	// The SRD density peaks at z = z0 (alpha/beta)^(1/beta) ~ 0.68 and has
	// dropped well below the peak by z = 5.
	peak := SRDDistribution(0.68)
	assert.Greater(t, peak, SRDDistribution(5.0)*10)

	// The total mass converges well before z = 10.
	assert.InEpsilon(t, SRDDistributionCDF(20), SRDDistributionCDF(10), 1e-6)
}
