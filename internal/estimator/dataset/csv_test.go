package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	in := "\ufeffdomain,platform,category,ig_followers,avg_price,Monthly_orderts (target),notes\n" +
		"tienda.co,Shopify,Ropa,\"12,500\",45000,320,fast mover\n" +
		"otra.co,VTEX,Zapatos,NA,,,\n"

	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	t.Run("FirstRow", func(t *testing.T) {
		r := rows[0]
		assert.Equal(t, "tienda.co", r.Domain)
		assert.Equal(t, "Shopify", r.Platform)
		assert.Equal(t, "Ropa", r.Category)
		require.NotNil(t, r.IGFollowers)
		assert.Equal(t, 12500.0, *r.IGFollowers, "thousands separator should be stripped")
		require.NotNil(t, r.MonthlyOrders)
		assert.Equal(t, 320.0, *r.MonthlyOrders)
		assert.Equal(t, "fast mover", r.Extra["notes"])
	})

	t.Run("MissingCoercion", func(t *testing.T) {
		r := rows[1]
		assert.Nil(t, r.IGFollowers, "NA should coerce to missing")
		assert.Nil(t, r.AvgPrice, "empty cell should coerce to missing")
		assert.Nil(t, r.MonthlyOrders)
	})
}

func TestParseCSVRaggedRow(t *testing.T) {
	in := "domain,platform,category\nshort.co,Shopify\n"
	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "short.co", rows[0].Domain)
	assert.Empty(t, rows[0].Category)
}

func TestMatrixSubsetSharesRows(t *testing.T) {
	m := NewMatrix([]string{"a", "b"}, []bool{false, false}, []int{0, 0}, 3)
	m.Rows = append(m.Rows, []float64{1, 2}, []float64{3, 4}, []float64{5, 6})

	sub := m.Subset([]int{2, 0})
	require.Equal(t, 2, sub.NumRows())
	assert.Equal(t, []float64{5, 6}, sub.Rows[0])

	// View semantics: the subset references the parent's row storage.
	m.Rows[2][0] = 99
	assert.Equal(t, 99.0, sub.Rows[0][0])
}

func TestCheckColumns(t *testing.T) {
	m := NewMatrix([]string{"a", "b"}, []bool{false, false}, []int{0, 0}, 0)
	assert.NoError(t, m.CheckColumns([]string{"a", "b"}))
	assert.Error(t, m.CheckColumns([]string{"b", "a"}), "order matters")
	assert.Error(t, m.CheckColumns([]string{"a"}))
}
