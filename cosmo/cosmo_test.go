package cosmo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCosmo() *FlatLCDM {
	return NewFlatLCDM(70.0, 0.27-0.045, 0.045)
}

func TestDistancesMonotonic(t *testing.T) {
	c := testCosmo()
	assert.Equal(t, 0.0, c.AngularDiameterDistance(0))
	prev := 0.0
	for _, z := range []float64{0.1, 0.3, 0.5, 1.0} {
		d := c.AngularDiameterDistance(z)
		assert.Greater(t, d, prev, "D_A should still rise at z=%g", z)
		prev = d
	}
}

func TestAngularDiameterDistanceZ1Z2(t *testing.T) {
	c := testCosmo()
	// D_A(0, z) must coincide with D_A(z).
	assert.InEpsilon(t, c.AngularDiameterDistance(1.0), c.AngularDiameterDistanceZ1Z2(0, 1.0), 1e-12)
	assert.Greater(t, c.AngularDiameterDistanceZ1Z2(0.3, 1.0), 0.0)
}

func TestCriticalSurfaceDensity(t *testing.T) {
	c := testCosmo()

	// Foreground and coincident sources carry no signal.
	assert.True(t, math.IsInf(c.CriticalSurfaceDensity(0.5, 0.3), 1))
	assert.True(t, math.IsInf(c.CriticalSurfaceDensity(0.5, 0.5), 1))

	// Sigma_crit decreases as the source recedes from the lens.
	s1 := c.CriticalSurfaceDensity(0.3, 0.6)
	s2 := c.CriticalSurfaceDensity(0.3, 1.0)
	s3 := c.CriticalSurfaceDensity(0.3, 2.0)
	require.False(t, math.IsInf(s1, 1))
	assert.Greater(t, s1, s2)
	assert.Greater(t, s2, s3)
	assert.Greater(t, s3, 0.0)
}

func TestCriticalDensityScale(t *testing.T) {
	c := testCosmo()
	// rho_crit,0 ~ 2.775e11 h^2 Msun/Mpc^3.
	h := c.H0 / 100
	want := 2.775e11 * h * h
	assert.InEpsilon(t, want, c.CriticalDensity(0), 1e-3)

	// Mean matter density dilutes as (1+z)^-3 in physical coordinates, so
	// the comoving-scaled value grows as (1+z)^3.
	r0 := c.MeanMatterDensity(0)
	r1 := c.MeanMatterDensity(1)
	assert.InEpsilon(t, 8.0, r1/r0, 1e-12)
}

func TestAngularPhysicalRoundTrip(t *testing.T) {
	c := testCosmo()
	d := c.RadToMpc(0.001, 0.5)
	assert.Greater(t, d, 0.0)
	assert.InEpsilon(t, 0.001, c.MpcToRad(d, 0.5), 1e-12)
}

func TestLinearMatterPower(t *testing.T) {
	c := testCosmo()

	var _ PowerSpectrum = c

	p1 := c.LinearMatterPower(0.1, 0)
	require.Greater(t, p1, 0.0)

	// The spectrum falls off on small scales.
	assert.Greater(t, p1, c.LinearMatterPower(10, 0))

	// Growth suppresses power at earlier times.
	assert.Greater(t, p1, c.LinearMatterPower(0.1, 1.0))
}
