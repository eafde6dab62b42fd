package dataset

import (
	"fmt"
	"math"
)

// Matrix is the numeric feature matrix handed to the model: N rows over a
// fixed ordered column set. Missing values are NaN. Categorical columns hold
// vocabulary codes (never free text) and are marked so the model treats them
// with equality splits rather than threshold splits.
type Matrix struct {
	ColumnNames []string
	// Categorical[j] marks column j as categorical; CategoryCount[j] is the
	// vocabulary size for categorical columns and zero otherwise.
	Categorical   []bool
	CategoryCount []int
	// Rows is row-major. Subset shares the inner slices, so fold views are
	// zero-copy.
	Rows [][]float64
}

// NewMatrix allocates an empty matrix with the given column metadata.
func NewMatrix(columns []string, categorical []bool, categoryCount []int, n int) *Matrix {
	return &Matrix{
		ColumnNames:   columns,
		Categorical:   categorical,
		CategoryCount: categoryCount,
		Rows:          make([][]float64, 0, n),
	}
}

// NumRows returns the row count.
func (m *Matrix) NumRows() int { return len(m.Rows) }

// NumCols returns the column count.
func (m *Matrix) NumCols() int { return len(m.ColumnNames) }

// ColumnIndex finds a column by name, or -1.
func (m *Matrix) ColumnIndex(name string) int {
	for j, c := range m.ColumnNames {
		if c == name {
			return j
		}
	}
	return -1
}

// Column copies column j out of the matrix.
func (m *Matrix) Column(j int) []float64 {
	out := make([]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = row[j]
	}
	return out
}

// Subset returns a row view over the given indices. The returned matrix
// shares row storage with the receiver; callers must not mutate cells.
func (m *Matrix) Subset(idx []int) *Matrix {
	rows := make([][]float64, len(idx))
	for i, r := range idx {
		rows[i] = m.Rows[r]
	}
	return &Matrix{
		ColumnNames:   m.ColumnNames,
		Categorical:   m.Categorical,
		CategoryCount: m.CategoryCount,
		Rows:          rows,
	}
}

// CheckColumns verifies the matrix column order matches an expected schema
// exactly. The persisted schema is authoritative at inference time.
func (m *Matrix) CheckColumns(expected []string) error {
	if len(m.ColumnNames) != len(expected) {
		return fmt.Errorf("feature count mismatch: got %d, schema has %d", len(m.ColumnNames), len(expected))
	}
	for j, name := range expected {
		if m.ColumnNames[j] != name {
			return fmt.Errorf("feature column %d mismatch: got %q, schema has %q", j, m.ColumnNames[j], name)
		}
	}
	return nil
}

// IsMissing reports whether a cell holds the missing marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Missing is the marker stored for absent values.
func Missing() float64 { return math.NaN() }
