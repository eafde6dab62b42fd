package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAPE(t *testing.T) {
	y := []float64{100, 500, 2000}

	t.Run("PerfectPrediction", func(t *testing.T) {
		assert.Equal(t, 0.0, WAPE(y, y, nil))
	})

	t.Run("WeightRescaleInvariance", func(t *testing.T) {
		pred := []float64{120, 450, 2500}
		w := DefaultWeights(y)
		scaled := make([]float64, len(w))
		for i, v := range w {
			scaled[i] = v * 7
		}
		assert.InDelta(t, WAPE(y, pred, w), WAPE(y, pred, scaled), 1e-12)
	})

	t.Run("AllZeroTarget", func(t *testing.T) {
		z := []float64{0, 0}
		got := WAPE(z, []float64{5, 5}, nil)
		assert.False(t, got != got, "must not be NaN")
		assert.Greater(t, got, 0.0)
	})
}

func TestMAEAndMdAE(t *testing.T) {
	y := []float64{10, 20, 30, 1000}
	pred := []float64{12, 18, 33, 1000}
	assert.InDelta(t, (2+2+3+0)/4.0, MAE(y, pred), 1e-12)
	assert.InDelta(t, 2.0, MdAE(y, pred), 1e-12, "median shrugs off the outlier")
}

func TestRSquared(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, RSquared(y, y), 1e-12)

	constant := []float64{5, 5, 5}
	got := RSquared(constant, []float64{4, 5, 6})
	assert.False(t, got != got, "constant target must stay finite")
}

func TestSpearmanRho(t *testing.T) {
	y := []float64{10, 100, 1000, 5000}

	t.Run("MonotoneIsOne", func(t *testing.T) {
		pred := []float64{1, 2, 3, 4}
		assert.InDelta(t, 1.0, SpearmanRho(y, pred), 1e-12)
	})
	t.Run("ReversedIsMinusOne", func(t *testing.T) {
		pred := []float64{4, 3, 2, 1}
		assert.InDelta(t, -1.0, SpearmanRho(y, pred), 1e-12)
	})
	t.Run("NoVarianceIsZero", func(t *testing.T) {
		assert.Equal(t, 0.0, SpearmanRho(y, []float64{7, 7, 7, 7}))
	})
}

func TestBucketAccuracy(t *testing.T) {
	y := []float64{30, 200, 1000, 4000}
	pred := []float64{40, 400, 1000, 100}

	exact, within := BucketAccuracy(y, pred)
	// micro/micro hit, small/medium miss-by-one, medium/medium hit,
	// large/small miss-by-two.
	assert.InDelta(t, 0.5, exact, 1e-12)
	assert.InDelta(t, 0.75, within, 1e-12)
}

func TestComputeSummary(t *testing.T) {
	y := []float64{100, 500, 2000}
	s := Compute(y, y)
	require.Equal(t, 0.0, s.WAPE)
	require.Equal(t, 0.0, s.MAE)
	assert.Equal(t, 1.0, s.BucketExact)
	assert.Equal(t, 1.0, s.BucketWithinOne)
	assert.InDelta(t, 1.0, s.R2, 1e-12)
}
