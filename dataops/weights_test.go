package dataops

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/errs"
)

func weightCosmo() *cosmo.FlatLCDM {
	return cosmo.NewFlatLCDM(70, 0.225, 0.045)
}

func TestWeightsDefaultToUniform(t *testing.T) {
	w, err := ComputeGalaxyWeights(0.3, nil,
		WeightData{
			ZSource: []float64{0.8, 1.0, 1.5},
			Shape1:  []float64{0.1, 0.2, 0.3},
			Shape2:  []float64{0.0, 0.1, 0.2},
		}, WeightOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, w)
}

func TestDeltaSigmaGeometricWeights(t *testing.T) {
	c := weightCosmo()
	zs := []float64{0.8, 1.5}
	w, err := ComputeGalaxyWeights(0.3, c,
		WeightData{
			ZSource: zs,
			Shape1:  []float64{0.1, 0.2},
			Shape2:  []float64{0.0, 0.1},
		}, WeightOptions{IsDeltaSigma: true})
	require.NoError(t, err)

	for i, z := range zs {
		sc := c.CriticalSurfaceDensity(0.3, z)
		assert.InEpsilon(t, 1/(sc*sc), w[i], 1e-12)
	}
	// Better geometry gets more weight.
	assert.Greater(t, w[1], w[0])
}

func TestDeltaSigmaForegroundGetsZeroWeight(t *testing.T) {
	w, err := ComputeGalaxyWeights(0.5, weightCosmo(),
		WeightData{
			ZSource: []float64{0.2, 1.0},
			Shape1:  []float64{0.1, 0.2},
			Shape2:  []float64{0.0, 0.1},
		}, WeightOptions{IsDeltaSigma: true})
	require.NoError(t, err)
	assert.Zero(t, w[0])
	assert.Greater(t, w[1], 0.0)
}

func TestWeightsAlwaysRequireShapeColumns(t *testing.T) {
	// Even a purely geometric weighting needs the shapes it will be applied
	// to.
	_, err := ComputeGalaxyWeights(0.3, weightCosmo(),
		WeightData{ZSource: []float64{1, 1.5}}, WeightOptions{IsDeltaSigma: true})
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrPrecondition))

	var pre *errs.PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, []string{"e1", "e2"}, pre.Missing)
}

func TestShapeNoiseWeights(t *testing.T) {
	data := WeightData{
		Shape1: []float64{0.1, -0.2, 0.05, 0.15},
		Shape2: []float64{-0.05, 0.1, 0.2, -0.1},
	}
	w, err := ComputeGalaxyWeights(0.3, nil, data, WeightOptions{UseShapeNoise: true})
	require.NoError(t, err)

	// Uniform across sources, equal to the inverse total shape variance.
	for _, v := range w[1:] {
		assert.Equal(t, w[0], v)
	}
	assert.Greater(t, w[0], 0.0)
}

func TestShapeErrorWeights(t *testing.T) {
	data := WeightData{
		Shape1:    []float64{0.1, 0.2},
		Shape2:    []float64{0.0, 0.1},
		Shape1Err: []float64{0.1, 0.3},
		Shape2Err: []float64{0.1, 0.3},
	}
	w, err := ComputeGalaxyWeights(0.3, nil, data, WeightOptions{UseShapeError: true})
	require.NoError(t, err)
	assert.InEpsilon(t, 1/0.02, w[0], 1e-12)
	assert.InEpsilon(t, 1/0.18, w[1], 1e-12)
	assert.Greater(t, w[0], w[1], "noisier shapes get less weight")
}

func TestWeightsEnumerateMissingColumns(t *testing.T) {
	_, err := ComputeGalaxyWeights(0.3, weightCosmo(), WeightData{},
		WeightOptions{IsDeltaSigma: true, UseShapeNoise: true, UseShapeError: true})
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrPrecondition))

	var pre *errs.PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, []string{"e1", "e2", "z", "e1_err", "e2_err"}, pre.Missing)
}

func TestWeightsPhotozGeometry(t *testing.T) {
	c := weightCosmo()
	grid := make([]float64, 101)
	pdf := make([]float64, 101)
	for i := range grid {
		grid[i] = 0.5 + 0.02*float64(i)
		d := (grid[i] - 1.0) / 0.05
		pdf[i] = math.Exp(-0.5 * d * d)
	}
	w, err := ComputeGalaxyWeights(0.3, c,
		WeightData{
			PzBins: [][]float64{grid},
			PzPdf:  [][]float64{pdf},
			Shape1: []float64{0.1},
			Shape2: []float64{0.05},
		},
		WeightOptions{IsDeltaSigma: true, UsePhotoZ: true})
	require.NoError(t, err)

	// A density peaked at z = 1 weights close to a point source there.
	sc := c.CriticalSurfaceDensity(0.3, 1.0)
	assert.InEpsilon(t, 1/(sc*sc), w[0], 0.05)
}

func TestBackgroundProbabilityIndicator(t *testing.T) {
	p, err := ComputeBackgroundProbability(0.5, []float64{0.2, 0.5, 0.8}, nil, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1}, p)

	_, err = ComputeBackgroundProbability(0.5, nil, nil, nil, false)
	assert.True(t, errors.Is(err, errs.ErrPrecondition))
}

func TestBackgroundProbabilityPhotoz(t *testing.T) {
	grid := []float64{0.0, 0.25, 0.5, 0.75, 1.0}
	flat := []float64{1, 1, 1, 1, 1}

	p, err := ComputeBackgroundProbability(0.5, nil,
		[][]float64{grid}, [][]float64{flat}, true)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.5, p[0], 1e-12)

	// Entirely background and entirely foreground densities.
	p, err = ComputeBackgroundProbability(-0.1, nil,
		[][]float64{grid}, [][]float64{flat}, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p[0])

	p, err = ComputeBackgroundProbability(2.0, nil,
		[][]float64{grid}, [][]float64{flat}, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p[0])

	_, err = ComputeBackgroundProbability(0.5, nil, nil, nil, true)
	assert.True(t, errors.Is(err, errs.ErrPrecondition))
}
