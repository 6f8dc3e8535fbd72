package gcdata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancesol/CLMM/errs"
)

func TestNewFromColumns(t *testing.T) {
	tab, err := NewFromColumns(
		[]string{"ra", "dec"},
		[][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 3, tab.Len())
	assert.Equal(t, []string{"ra", "dec"}, tab.Colnames())

	_, err = NewFromColumns([]string{"ra"}, [][]float64{{1}, {2}})
	assert.Error(t, err)
}

func TestAddColumnLengthCheck(t *testing.T) {
	tab := New()
	require.NoError(t, tab.AddColumn("z", []float64{0.5, 1.0}))
	assert.Error(t, tab.AddColumn("e1", []float64{0.1}))

	// Replacing an existing column keeps the order.
	require.NoError(t, tab.AddColumn("z", []float64{0.6, 1.1}))
	col, err := tab.Column("z")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 1.1}, col)
	assert.Equal(t, []string{"z"}, tab.Colnames())

	// Replacing with a mismatched length must not resize the table.
	assert.Error(t, tab.AddColumn("z", []float64{0.7}))
	col, err = tab.Column("z")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 1.1}, col)
	assert.Equal(t, 2, tab.Len())
}

func TestColumnsEnumeratesAllMissing(t *testing.T) {
	tab := New()
	require.NoError(t, tab.AddColumn("ra", []float64{1}))

	_, err := tab.Columns("ra", "e1", "e2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPrecondition))

	var pre *errs.PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, []string{"e1", "e2"}, pre.Missing)
}

func TestIDs(t *testing.T) {
	tab := New()
	require.NoError(t, tab.AddColumn("ra", []float64{1, 2}))
	assert.False(t, tab.HasIDs())
	_, err := tab.IDs()
	assert.True(t, errors.Is(err, errs.ErrPrecondition))

	require.NoError(t, tab.SetIDs([]int64{10, 11}))
	ids, err := tab.IDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, ids)

	assert.Error(t, tab.SetIDs([]int64{1}))
}
