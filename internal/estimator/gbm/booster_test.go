package gbm

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// syntheticMatrix builds n rows over one numeric and one categorical column
// where y = 3*x + bump(cat) + noise.
func syntheticMatrix(n int, seed int64) (*dataset.Matrix, []float64) {
	rng := rand.New(rand.NewSource(seed))
	m := dataset.NewMatrix(
		[]string{"x", "cat"},
		[]bool{false, true},
		[]int{0, 3},
		n,
	)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.Float64() * 10
		cat := float64(i % 3)
		m.Rows = append(m.Rows, []float64{x, cat})
		y[i] = 3*x + cat*5 + rng.NormFloat64()*0.1
	}
	return m, y
}

func testParams() Params {
	p := DefaultParams()
	p.NumRounds = 80
	p.SubsampleRows = 1
	p.SubsampleCols = 1
	p.MinChildSamples = 2
	return p
}

func TestTrainL2Fit(t *testing.T) {
	m, y := syntheticMatrix(200, 7)

	b, err := Train(TrainOptions{X: m, Y: y, Params: testParams(), Objective: L2()})
	require.NoError(t, err)
	require.Greater(t, b.NumTrees(), 0)

	pred := b.Predict(m)
	var sse, sst float64
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	for i := range y {
		sse += (y[i] - pred[i]) * (y[i] - pred[i])
		sst += (y[i] - mean) * (y[i] - mean)
	}
	assert.Less(t, sse/sst, 0.1, "boosted fit should explain most variance")
}

func TestTrainQuantileOrdering(t *testing.T) {
	m, y := syntheticMatrix(300, 11)
	p := testParams()

	p10, err := Train(TrainOptions{X: m, Y: y, Params: p, Objective: Quantile(0.1)})
	require.NoError(t, err)
	p90, err := Train(TrainOptions{X: m, Y: y, Params: p, Objective: Quantile(0.9)})
	require.NoError(t, err)

	// Independently fitted quantiles should keep order for the large
	// majority of rows.
	lo := p10.Predict(m)
	hi := p90.Predict(m)
	ordered := 0
	for i := range lo {
		if lo[i] <= hi[i] {
			ordered++
		}
	}
	assert.Greater(t, float64(ordered)/float64(len(lo)), 0.9)
}

func TestTrainHandlesMissing(t *testing.T) {
	m, y := syntheticMatrix(150, 3)
	for i := range m.Rows {
		if i%4 == 0 {
			m.Rows[i][0] = dataset.Missing()
		}
	}
	b, err := Train(TrainOptions{X: m, Y: y, Params: testParams(), Objective: L2()})
	require.NoError(t, err)

	pred := b.Predict(m)
	for i, v := range pred {
		assert.False(t, math.IsNaN(v), "row %d produced NaN", i)
	}
}

func TestTrainEarlyStopping(t *testing.T) {
	m, y := syntheticMatrix(200, 19)
	valM, valY := syntheticMatrix(60, 23)

	p := testParams()
	p.NumRounds = 500
	p.EarlyStoppingRounds = 10

	b, err := Train(TrainOptions{
		X: m, Y: y, Params: p, Objective: L2(),
		ValX: valM, ValY: valY,
	})
	require.NoError(t, err)
	assert.Less(t, b.NumTrees(), 500, "noise target should trigger early stop")
	assert.Equal(t, b.NumTrees(), b.BestIteration)
}

func TestTrainDeterministic(t *testing.T) {
	m, y := syntheticMatrix(120, 5)
	p := testParams()
	p.SubsampleRows = 0.8
	p.SubsampleCols = 0.8

	a, err := Train(TrainOptions{X: m, Y: y, Params: p, Objective: L2()})
	require.NoError(t, err)
	b, err := Train(TrainOptions{X: m, Y: y, Params: p, Objective: L2()})
	require.NoError(t, err)

	pa := a.Predict(m)
	pb := b.Predict(m)
	for i := range pa {
		assert.Equal(t, pa[i], pb[i], "same seed must reproduce the fit")
	}
}

func TestBoosterJSONRoundTrip(t *testing.T) {
	m, y := syntheticMatrix(100, 2)
	p := testParams()
	p.NumRounds = 20

	b, err := Train(TrainOptions{X: m, Y: y, Params: p, Objective: Quantile(0.5)})
	require.NoError(t, err)

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var loaded Booster
	require.NoError(t, json.Unmarshal(data, &loaded))

	want := b.Predict(m)
	got := loaded.Predict(m)
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestFeatureImportance(t *testing.T) {
	m, y := syntheticMatrix(200, 13)
	b, err := Train(TrainOptions{X: m, Y: y, Params: testParams(), Objective: L2()})
	require.NoError(t, err)

	imp := b.FeatureImportance()
	assert.Greater(t, imp["x"], imp["cat"], "the dominant signal should dominate gain")
}

func TestWithDepth(t *testing.T) {
	p := DefaultParams().WithDepth(3)
	assert.Equal(t, 3, p.MaxDepth)
	assert.Equal(t, 7, p.NumLeaves)

	deep := DefaultParams().WithDepth(10)
	assert.Equal(t, 31, deep.NumLeaves, "leaf count is capped")
}
