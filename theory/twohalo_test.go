package theory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

// noPowerSpectrum wraps a cosmology so only the base interface is visible,
// hiding any power-spectrum capability of the wrapped value.
type noPowerSpectrum struct {
	cosmo.Cosmology
}

func TestTwoHaloNeedsPowerSpectrum(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.SetCosmo(noPowerSpectrum{cosmo.NewFlatLCDM(70, 0.225, 0.045)}))

	_, err := m.EvalSurfaceDensity2h([]float64{1}, 0.3, 2.0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCapability))

	var cap *errs.CapabilityError
	require.True(t, errors.As(err, &cap))
	assert.Equal(t, "two-halo term", cap.Op)
}

func TestTwoHaloSurfaceDensity(t *testing.T) {
	m := newTestModel(t)
	r := []float64{0.5, 1, 5, 20}

	sigma, err := m.EvalSurfaceDensity2h(r, 0.3, 2.0)
	require.NoError(t, err)
	require.Len(t, sigma, len(r))
	assert.Greater(t, sigma[0], 0.0)
	assert.Greater(t, sigma[0], sigma[3], "the correlated neighbor term falls off with radius")

	excess, err := m.EvalExcessSurfaceDensity2h(r, 0.3, 2.0)
	require.NoError(t, err)
	assert.Greater(t, excess[1], 0.0)
}

func TestTwoHaloScalesWithBias(t *testing.T) {
	m := newTestModel(t)
	r := []float64{1, 5}

	one, err := m.EvalSurfaceDensity2h(r, 0.3, 1.0)
	require.NoError(t, err)
	three, err := m.EvalSurfaceDensity2h(r, 0.3, 3.0)
	require.NoError(t, err)
	for i := range r {
		assert.InEpsilon(t, 3*one[i], three[i], 1e-10, "the term is linear in the halo bias")
	}
}

func TestTwoHaloValidation(t *testing.T) {
	m := newTestModel(t)
	_, err := m.EvalSurfaceDensity2h([]float64{1}, 0.3, -1)
	assert.True(t, errors.Is(err, errs.ErrDomain))
	_, err = m.EvalSurfaceDensity2h([]float64{-1}, 0.3, 2)
	assert.True(t, errors.Is(err, errs.ErrDomain))
}
