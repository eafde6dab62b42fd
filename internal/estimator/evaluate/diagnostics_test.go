package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
)

func warningCodes(ws []esterr.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

func TestCheckOverfitting(t *testing.T) {
	t.Run("CleanRun", func(t *testing.T) {
		ws := CheckOverfitting(0.95, []float64{1.0, 1.05, 0.98}, 10, 200)
		assert.Empty(t, ws)
	})

	t.Run("LargeGap", func(t *testing.T) {
		ws := CheckOverfitting(0.3, []float64{1.0, 1.0, 1.0}, 10, 200)
		assert.Contains(t, warningCodes(ws), esterr.WarnOverfitting)
	})

	t.Run("UnstableFolds", func(t *testing.T) {
		ws := CheckOverfitting(0.9, []float64{0.4, 1.0, 1.6}, 10, 200)
		assert.Contains(t, warningCodes(ws), esterr.WarnUnstableCV)
	})

	t.Run("TooManyFeatures", func(t *testing.T) {
		ws := CheckOverfitting(0.95, []float64{1.0, 1.0}, 22, 100)
		assert.Contains(t, warningCodes(ws), esterr.WarnHighDimensionality)
	})
}

func TestCheckLeakage(t *testing.T) {
	n := 50
	y := make([]float64, n)
	m := dataset.NewMatrix(
		[]string{"honest", "leaky", "platform", "sparse"},
		[]bool{false, false, true, false},
		[]int{0, 0, 3, 0},
		n,
	)
	for i := 0; i < n; i++ {
		y[i] = float64(10 + i*13%97)
		honest := float64(i % 7)
		leaky := y[i] * 2 // a near-copy of the target
		sparse := dataset.Missing()
		if i < 5 {
			sparse = y[i]
		}
		m.Rows = append(m.Rows, []float64{honest, leaky, float64(i % 3), sparse})
	}

	ws := CheckLeakage(m, y)
	require.Len(t, ws, 1)
	assert.Equal(t, esterr.WarnLeakage, ws[0].Code)
	assert.Contains(t, ws[0].Message, "leaky")

	t.Run("SparseColumnSkipped", func(t *testing.T) {
		// "sparse" is perfectly correlated on its 5 present rows, but 5 pairs
		// is below the evidence floor.
		for _, w := range ws {
			assert.NotContains(t, w.Message, "sparse")
		}
	})
}

func TestCheckLeakageMetadataColumn(t *testing.T) {
	m := dataset.NewMatrix([]string{"signals_used"}, []bool{false}, []int{0}, 1)
	m.Rows = append(m.Rows, []float64{1})

	ws := CheckLeakage(m, []float64{10})
	require.NotEmpty(t, ws)
	assert.Contains(t, ws[len(ws)-1].Message, "signals_used")
}
