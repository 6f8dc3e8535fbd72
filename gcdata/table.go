// Package gcdata provides the named-column table the data operations read
// from and write to. It is only the in-memory call surface: serialization,
// file formats and schema migration belong to the surrounding pipeline.
package gcdata

import (
	"fmt"

	"github.com/rancesol/CLMM/errs"
)

// Table is an ordered collection of equal-length float64 columns plus an
// optional integer ID column and free-form string metadata.
type Table struct {
	order []string
	cols  map[string][]float64
	ids   []int64
	Meta  map[string]string
}

// New returns an empty table.
func New() *Table {
	return &Table{
		cols: make(map[string][]float64),
		Meta: make(map[string]string),
	}
}

// NewFromColumns builds a table from parallel columns. All columns must have
// the same length.
func NewFromColumns(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("names (%d) and columns (%d) length mismatch", len(names), len(cols))
	}
	t := New()
	for i, name := range names {
		if err := t.AddColumn(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Len returns the number of rows. An empty table has zero rows.
func (t *Table) Len() int {
	for _, name := range t.order {
		return len(t.cols[name])
	}
	return len(t.ids)
}

// AddColumn adds or replaces a column. In a non-empty table the column must
// match the existing row count, whether new or replacing.
func (t *Table) AddColumn(name string, values []float64) error {
	if n := t.Len(); n > 0 && len(values) != n {
		return fmt.Errorf("column %q has %d rows, table has %d", name, len(values), n)
	}
	if _, exists := t.cols[name]; !exists {
		t.order = append(t.order, name)
	}
	t.cols[name] = values
	return nil
}

// Column returns the named column, or a precondition error naming it.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, errs.Missingf("galaxy catalog", name)
	}
	return col, nil
}

// Columns returns the named columns in order, or a single precondition error
// enumerating every missing name.
func (t *Table) Columns(names ...string) ([][]float64, error) {
	var missing []string
	out := make([][]float64, 0, len(names))
	for _, name := range names {
		col, ok := t.cols[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, col)
	}
	if len(missing) > 0 {
		return nil, errs.Missingf("galaxy catalog", missing...)
	}
	return out, nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Colnames returns the column names in insertion order.
func (t *Table) Colnames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// SetIDs attaches per-row integer identifiers.
func (t *Table) SetIDs(ids []int64) error {
	if n := t.Len(); n > 0 && len(ids) != n {
		return fmt.Errorf("ids have %d rows, table has %d", len(ids), n)
	}
	t.ids = ids
	return nil
}

// IDs returns the identifier column, or a precondition error if absent.
func (t *Table) IDs() ([]int64, error) {
	if t.ids == nil {
		return nil, errs.Missingf("galaxy catalog", "id")
	}
	return t.ids, nil
}

// HasIDs reports whether identifiers were attached.
func (t *Table) HasIDs() bool { return t.ids != nil }
