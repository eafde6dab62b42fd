// =============================
// Cross-Validation Engine
// =============================

package evaluate

import (
	"fmt"
	"math/rand"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// Fold is one train/validation index pair. Index slices reference the
// original matrix; combined with Matrix.Subset views, no feature data is
// copied per fold.
type Fold struct {
	Train []int
	Val   []int
}

// BuildFoldPlan materializes a repeated stratified k-fold assignment,
// stratified on each row's order bucket. The plan is built once per run and
// reused across every sweep cell, so every configuration is compared on
// identical splits.
//
// Degenerate strata: a bucket with fewer rows than the fold count cannot be
// spread across all folds without corrupting stratification, so it is merged
// into its nearest lower tier (the lowest tier merges upward) until every
// remaining stratum can fill the folds.
func BuildFoldPlan(y []float64, splits, repeats int, seed int64) ([]Fold, error) {
	n := len(y)
	if splits < 2 {
		return nil, fmt.Errorf("fold plan needs at least 2 splits, got %d", splits)
	}
	if repeats < 1 {
		return nil, fmt.Errorf("fold plan needs at least 1 repeat, got %d", repeats)
	}
	if n < 2*splits {
		return nil, fmt.Errorf("fold plan needs at least %d rows for %d splits, got %d", 2*splits, splits, n)
	}

	labels := mergeScarceBuckets(dataset.StratifyLabels(y), splits)

	rng := rand.New(rand.NewSource(seed))
	plan := make([]Fold, 0, splits*repeats)

	for rep := 0; rep < repeats; rep++ {
		// fold -> validation members
		valSets := make([][]int, splits)

		for label := 0; label < len(dataset.BucketLabels); label++ {
			var stratum []int
			for i, l := range labels {
				if l == label {
					stratum = append(stratum, i)
				}
			}
			rng.Shuffle(len(stratum), func(a, b int) {
				stratum[a], stratum[b] = stratum[b], stratum[a]
			})
			for pos, idx := range stratum {
				f := pos % splits
				valSets[f] = append(valSets[f], idx)
			}
		}

		for f := 0; f < splits; f++ {
			inVal := make([]bool, n)
			for _, i := range valSets[f] {
				inVal[i] = true
			}
			train := make([]int, 0, n-len(valSets[f]))
			for i := 0; i < n; i++ {
				if !inVal[i] {
					train = append(train, i)
				}
			}
			plan = append(plan, Fold{Train: train, Val: valSets[f]})
		}
	}
	return plan, nil
}

// mergeScarceBuckets relabels rows of buckets too small to stratify.
func mergeScarceBuckets(labels []int, splits int) []int {
	out := append([]int{}, labels...)
	nBuckets := len(dataset.BucketLabels)
	for {
		counts := make([]int, nBuckets)
		nonEmpty := 0
		for _, l := range out {
			counts[l]++
		}
		for _, c := range counts {
			if c > 0 {
				nonEmpty++
			}
		}
		if nonEmpty <= 1 {
			return out
		}

		merged := false
		for label := nBuckets - 1; label >= 0; label-- {
			if counts[label] == 0 || counts[label] >= splits {
				continue
			}
			target := label - 1
			if target < 0 {
				target = label + 1
			}
			// skip over empty neighbors
			for target > 0 && target < nBuckets-1 && counts[target] == 0 {
				if target < label {
					target--
				} else {
					target++
				}
			}
			for i, l := range out {
				if l == label {
					out[i] = target
				}
			}
			merged = true
			break
		}
		if !merged {
			return out
		}
	}
}

// splitEarlyStop carves a validation slice out of a training fold for early
// stopping, deterministic per fold.
func splitEarlyStop(train []int, fraction float64, seed int64) (fit, es []int) {
	if fraction <= 0 || fraction >= 1 {
		fraction = 0.2
	}
	shuffled := append([]int{}, train...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(a, b int) {
		shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
	})
	k := int(float64(len(shuffled)) * fraction)
	if k < 1 {
		k = 1
	}
	if k >= len(shuffled) {
		k = len(shuffled) - 1
	}
	return shuffled[k:], shuffled[:k]
}
