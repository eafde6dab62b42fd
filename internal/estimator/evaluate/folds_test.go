package evaluate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// syntheticTargets draws order counts that populate several buckets.
func syntheticTargets(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	centers := []float64{20, 150, 800, 3000}
	y := make([]float64, n)
	for i := range y {
		c := centers[i%len(centers)]
		y[i] = c * (0.5 + rng.Float64())
	}
	return y
}

func TestBuildFoldPlan(t *testing.T) {
	y := syntheticTargets(100, 1)
	plan, err := BuildFoldPlan(y, 5, 3, 42)
	require.NoError(t, err)
	require.Len(t, plan, 15)

	t.Run("FoldsPartitionEachRepeat", func(t *testing.T) {
		for rep := 0; rep < 3; rep++ {
			seen := make([]int, len(y))
			for f := 0; f < 5; f++ {
				fold := plan[rep*5+f]
				assert.Len(t, fold.Train, len(y)-len(fold.Val))
				for _, i := range fold.Val {
					seen[i]++
				}
				// train and val are disjoint
				inVal := map[int]bool{}
				for _, i := range fold.Val {
					inVal[i] = true
				}
				for _, i := range fold.Train {
					assert.False(t, inVal[i])
				}
			}
			for i, c := range seen {
				assert.Equal(t, 1, c, "row %d must be validated exactly once per repeat", i)
			}
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		again, err := BuildFoldPlan(y, 5, 3, 42)
		require.NoError(t, err)
		assert.Equal(t, plan, again)
	})

	t.Run("SeedChangesPlan", func(t *testing.T) {
		other, err := BuildFoldPlan(y, 5, 3, 43)
		require.NoError(t, err)
		assert.NotEqual(t, plan, other)
	})
}

func TestBuildFoldPlanStratification(t *testing.T) {
	y := syntheticTargets(200, 9)
	plan, err := BuildFoldPlan(y, 5, 1, 42)
	require.NoError(t, err)

	labels := dataset.StratifyLabels(y)
	total := make(map[int]int)
	for _, l := range labels {
		total[l]++
	}

	for fi, fold := range plan {
		counts := make(map[int]int)
		for _, i := range fold.Val {
			counts[labels[i]]++
		}
		for label, n := range total {
			if n < 5 {
				continue
			}
			expected := n / 5
			assert.InDelta(t, expected, counts[label], 1,
				"fold %d bucket %d should hold its proportional share", fi, label)
		}
	}
}

func TestBuildFoldPlanScarceBucket(t *testing.T) {
	// One enterprise row among a sea of micro stores: it cannot fill five
	// folds, so it merges into a neighboring tier instead of breaking the
	// plan.
	y := make([]float64, 40)
	for i := range y {
		y[i] = 20
	}
	y[0] = 9000

	plan, err := BuildFoldPlan(y, 5, 1, 42)
	require.NoError(t, err)
	assigned := false
	for _, fold := range plan {
		for _, i := range fold.Val {
			if i == 0 {
				assigned = true
			}
		}
	}
	assert.True(t, assigned, "the scarce row still participates")
}

func TestBuildFoldPlanRejectsTinyInput(t *testing.T) {
	_, err := BuildFoldPlan([]float64{1, 2, 3}, 5, 1, 42)
	assert.Error(t, err)

	_, err = BuildFoldPlan(syntheticTargets(50, 1), 1, 1, 42)
	assert.Error(t, err)
}

func TestSplitEarlyStop(t *testing.T) {
	train := make([]int, 50)
	for i := range train {
		train[i] = i
	}
	fit, es := splitEarlyStop(train, 0.2, 7)
	assert.Len(t, es, 10)
	assert.Len(t, fit, 40)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, fit...), es...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 50)
}
