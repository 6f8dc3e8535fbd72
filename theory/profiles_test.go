package theory

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancesol/CLMM/errs"
)

func TestNFWSigmaShapeContinuousAtOne(t *testing.T) {
	limit := nfwSigmaShape(1)
	assert.InEpsilon(t, 2.0/3.0, limit, 1e-12)
	assert.InEpsilon(t, limit, nfwSigmaShape(1-1e-5), 1e-4)
	assert.InEpsilon(t, limit, nfwSigmaShape(1+1e-5), 1e-4)

	mean := nfwMeanSigmaShape(1)
	assert.InEpsilon(t, mean, nfwMeanSigmaShape(1-1e-5), 1e-4)
	assert.InEpsilon(t, mean, nfwMeanSigmaShape(1+1e-5), 1e-4)
}

func TestNumericProjectionMatchesNFWClosedForm(t *testing.T) {
	p, err := resolveProfile(ProfileNFW, 0)
	require.NoError(t, err)
	for _, x := range []float64{0.1, 0.5, 0.9, 1.5, 3, 10} {
		assert.InEpsilon(t, nfwSigmaShape(x), p.projectedShape(x), 1e-6,
			"projection should reproduce the closed form at x=%g", x)
	}
}

func TestNumericMeanSigmaMatchesNFWClosedForm(t *testing.T) {
	// Strip the closed forms so the cumulative quadrature path runs.
	p, err := resolveProfile(ProfileNFW, 0)
	require.NoError(t, err)
	numeric := &haloProfile{
		family:       p.family,
		density:      p.density,
		enclosedMass: p.enclosedMass,
	}
	for _, x := range []float64{0.3, 1, 2, 5} {
		assert.InEpsilon(t, nfwMeanSigmaShape(x), numeric.meanSurfaceDensityShape(x), 1e-4,
			"cumulative projection should reproduce the closed form at x=%g", x)
	}
}

func TestHernquistEnclosedMassLimit(t *testing.T) {
	// mu(x) = x^2 / (2 (1+x)^2) -> 1/2.
	assert.InEpsilon(t, 0.5, hernquistEnclosedMassShape(1e6), 1e-5)
	assert.Less(t, hernquistEnclosedMassShape(1), hernquistEnclosedMassShape(2))
}

func TestEinastoEnclosedMass(t *testing.T) {
	prev := 0.0
	for _, x := range []float64{0.1, 0.5, 1, 2, 5} {
		mu := einastoEnclosedMassShape(x, 0.25)
		assert.Greater(t, mu, prev)
		prev = mu
	}

	_, err := resolveProfile(ProfileEinasto, 0)
	assert.True(t, errors.Is(err, errs.ErrDomain))

	_, err = resolveProfile(ProfileFamily("isothermal"), 0)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestSurfaceDensityShapeDivergesAtCenter(t *testing.T) {
	p, err := resolveProfile(ProfileNFW, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(p.surfaceDensityShape(0), 1))
	assert.True(t, math.IsInf(p.meanSurfaceDensityShape(0), 1))
}
