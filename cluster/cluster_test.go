package cluster

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancesol/CLMM/cosmo"
	"github.com/rancesol/CLMM/dataops"
	"github.com/rancesol/CLMM/errs"
	"github.com/rancesol/CLMM/gcdata"
)

func testCatalog(t *testing.T) *gcdata.Table {
	t.Helper()
	tab, err := gcdata.NewFromColumns(
		[]string{ColRA, ColDec, ColE1, ColE2, ColZ},
		[][]float64{
			{120.1, 119.9, 119.9},
			{41.9, 42.2, 42.2},
			{0.2, 0.3, 0.5},
			{0.3, 0.5, 0.1},
			{1, 1, 1},
		})
	require.NoError(t, err)
	require.NoError(t, tab.SetIDs([]int64{1, 2, 3}))
	return tab
}

func testCluster(t *testing.T) *GalaxyCluster {
	t.Helper()
	c, err := New("cl-0001", 120, 42, 0.5, testCatalog(t))
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New("", 120, 42, 0.5, nil)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
	_, err = New("c", 400, 42, 0.5, nil)
	assert.True(t, errors.Is(err, errs.ErrDomain))
	_, err = New("c", 120, 95, 0.5, nil)
	assert.True(t, errors.Is(err, errs.ErrDomain))
	_, err = New("c", 120, 42, -0.5, nil)
	assert.True(t, errors.Is(err, errs.ErrDomain))

	c, err := New("c", 120, 42, 0.5, nil)
	require.NoError(t, err)
	assert.NotNil(t, c.Galcat, "a missing catalog is replaced by an empty one")
}

func TestAddCriticalSurfaceDensity(t *testing.T) {
	c := testCluster(t)
	cm := cosmo.NewFlatLCDM(70, 0.225, 0.045)
	require.NoError(t, c.AddCriticalSurfaceDensity(cm, false))

	col, err := c.Galcat.Column(ColSigmaCrit)
	require.NoError(t, err)
	for _, sc := range col {
		assert.False(t, math.IsInf(sc, 1))
		assert.Greater(t, sc, 0.0)
	}
	assert.Equal(t, cm.Describe(), c.Galcat.Meta["cosmo"])

	require.Error(t, c.AddCriticalSurfaceDensity(nil, false))
}

func TestComputeComponentsEndToEnd(t *testing.T) {
	c := testCluster(t)
	theta, et, ex, err := c.ComputeTangentialAndCrossComponents(ComponentsConfig{})
	require.NoError(t, err)
	require.Len(t, theta, 3)

	// One source sits about 0.0022 rad away, the identical pair at about
	// 0.0037 rad.
	assert.InDelta(t, 0.00218, theta[0], 1e-4)
	assert.InDelta(t, 0.00372, theta[1], 1e-4)
	assert.InDelta(t, theta[1], theta[2], 1e-12)

	assert.True(t, c.Galcat.HasColumn(ColTheta))
	assert.True(t, c.Galcat.HasColumn(ColTangential))
	assert.True(t, c.Galcat.HasColumn(ColCross))
	require.Len(t, et, 3)
	require.Len(t, ex, 3)
}

func TestMakeRadialProfileEndToEnd(t *testing.T) {
	c := testCluster(t)
	_, _, _, err := c.ComputeTangentialAndCrossComponents(ComponentsConfig{})
	require.NoError(t, err)

	prof, err := c.MakeRadialProfile(dataops.ProfileOptions{
		Bins: []float64{0.002, 0.003, 0.004},
	})
	require.NoError(t, err)

	tab := prof.Table
	assert.Equal(t, 2, tab.Len(), "both bins hold sources")
	nsrc, err := tab.Column("n_src")
	require.NoError(t, err)
	assert.Equal(t, 3.0, nsrc[0]+nsrc[1], "every galaxy lands in a bin")
	assert.Equal(t, []float64{1, 2}, nsrc)

	for _, col := range []string{"radius_min", "radius", "radius_max", ColProfileShear, ColProfileShear + "_err", ColProfileCross, ColProfileCross + "_err"} {
		assert.True(t, tab.HasColumn(col), "missing column %s", col)
	}

	// Catalog IDs flow into the per-bin membership lists; only the
	// two-galaxy bin reports one.
	require.NotNil(t, prof.GalIDs)
	assert.Len(t, prof.GalIDs, 1)
	assert.ElementsMatch(t, []int64{2, 3}, prof.GalIDs[1])

	// The profile is kept on the cluster for downstream fitting.
	assert.Same(t, prof, c.Profile)
}

func TestMakeRadialProfileUsesStoredWeights(t *testing.T) {
	c := testCluster(t)
	_, _, _, err := c.ComputeTangentialAndCrossComponents(ComponentsConfig{})
	require.NoError(t, err)

	// Put all the weight on the last galaxy of the two-galaxy bin.
	require.NoError(t, c.Galcat.AddColumn(ColWeight, []float64{1, 0, 1}))
	prof, err := c.MakeRadialProfile(dataops.ProfileOptions{
		Bins: []float64{0.002, 0.003, 0.004},
	})
	require.NoError(t, err)

	gt, err := prof.Table.Column(ColProfileShear)
	require.NoError(t, err)
	et, err := c.Galcat.Column(ColTangential)
	require.NoError(t, err)
	assert.InEpsilon(t, et[2], gt[1], 1e-12)
}

func TestComputeBackgroundProbability(t *testing.T) {
	c := testCluster(t)
	p, err := c.ComputeBackgroundProbability(false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, p)
	assert.True(t, c.Galcat.HasColumn(ColPBackground))
}

func TestComputeGalaxyWeights(t *testing.T) {
	c := testCluster(t)
	cm := cosmo.NewFlatLCDM(70, 0.225, 0.045)

	w, err := c.ComputeGalaxyWeights(cm, dataops.WeightOptions{IsDeltaSigma: true})
	require.NoError(t, err)
	require.Len(t, w, 3)
	sc := cm.CriticalSurfaceDensity(0.5, 1.0)
	for _, v := range w {
		assert.InEpsilon(t, 1/(sc*sc), v, 1e-12)
	}
	assert.True(t, c.Galcat.HasColumn(ColWeight))

	// Shape errors are not in the catalog: one error naming both columns.
	_, err = c.ComputeGalaxyWeights(cm, dataops.WeightOptions{UseShapeError: true})
	require.Error(t, err)
	var pre *errs.PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, []string{ColE1Err, ColE2Err}, pre.Missing)
}

func TestSetRALower(t *testing.T) {
	tab, err := gcdata.NewFromColumns(
		[]string{ColRA, ColDec},
		[][]float64{{-10, 350, 20}, {0, 0, 0}})
	require.NoError(t, err)
	c, err := New("c", -5, 0, 0.3, tab)
	require.NoError(t, err)

	require.NoError(t, c.SetRALower(0))
	assert.Equal(t, 355.0, c.RA)
	ra, err := c.Galcat.Column(ColRA)
	require.NoError(t, err)
	assert.Equal(t, []float64{350, 350, 20}, ra)
}
