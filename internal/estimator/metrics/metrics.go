// =============================
// Estimation Metric Library
// =============================
// Every metric here is computed on the original order-count scale, never the
// log scale the models fit on, so the numbers stay business-interpretable.
// All functions are total over degenerate input: a constant target yields a
// defined (if useless) R², never a panic.

package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// DefaultWeights returns the standard sample weighting log1p(y)+1, giving
// high-volume stores proportionally more influence.
func DefaultWeights(y []float64) []float64 {
	w := make([]float64, len(y))
	for i, v := range y {
		w[i] = math.Log1p(v) + 1
	}
	return w
}

// WAPE is the weighted absolute percentage error. A nil weight vector uses
// DefaultWeights. The denominator is floored at 1 so an all-zero target
// cannot divide by zero.
func WAPE(yTrue, yPred, weights []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	if weights == nil {
		weights = DefaultWeights(yTrue)
	}
	var num, den float64
	for i := range yTrue {
		num += math.Abs(yTrue[i]-yPred[i]) * weights[i]
		den += yTrue[i] * weights[i]
	}
	return num / math.Max(den, 1)
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue))
}

// MdAE is the median absolute error.
func MdAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	abs := make([]float64, len(yTrue))
	for i := range yTrue {
		abs[i] = math.Abs(yTrue[i] - yPred[i])
	}
	sort.Float64s(abs)
	n := len(abs)
	if n%2 == 1 {
		return abs[n/2]
	}
	return (abs[n/2-1] + abs[n/2]) / 2
}

// RSquared is the coefficient of determination with the variance term
// floored at 1e-10, so a constant target yields a finite value.
func RSquared(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i := range yTrue {
		dr := yTrue[i] - yPred[i]
		dt := yTrue[i] - mean
		ssRes += dr * dr
		ssTot += dt * dt
	}
	return 1 - ssRes/math.Max(ssTot, 1e-10)
}

// SpearmanRho is the rank correlation: Pearson correlation over tie-averaged
// ranks. Returns 0 when either side has no rank variance.
func SpearmanRho(yTrue, yPred []float64) float64 {
	if len(yTrue) < 2 {
		return 0
	}
	rt := ranks(yTrue)
	rp := ranks(yPred)
	if stat.Variance(rt, nil) == 0 || stat.Variance(rp, nil) == 0 {
		return 0
	}
	rho := stat.Correlation(rt, rp, nil)
	if math.IsNaN(rho) {
		return 0
	}
	return rho
}

// BucketAccuracy reports the exact-tier match rate and the within-one-tier
// match rate between true and predicted order counts.
func BucketAccuracy(yTrue, yPred []float64) (exact, withinOne float64) {
	n := len(yTrue)
	if n == 0 {
		return 0, 0
	}
	var e, w int
	for i := range yTrue {
		ti := dataset.BucketIndex(dataset.AssignBucket(yTrue[i]))
		pi := dataset.BucketIndex(dataset.AssignBucket(yPred[i]))
		if ti == pi {
			e++
		}
		if abs(ti-pi) <= 1 {
			w++
		}
	}
	return float64(e) / float64(n), float64(w) / float64(n)
}

// Summary bundles the full metric set for one prediction vector.
type Summary struct {
	WAPE            float64 `json:"wape"`
	MAE             float64 `json:"mae"`
	MdAE            float64 `json:"mdae"`
	R2              float64 `json:"r2"`
	Spearman        float64 `json:"spearman"`
	BucketExact     float64 `json:"bucket_exact"`
	BucketWithinOne float64 `json:"bucket_within_1"`
}

// Compute evaluates every metric on the original scale.
func Compute(yTrue, yPred []float64) Summary {
	exact, within := BucketAccuracy(yTrue, yPred)
	return Summary{
		WAPE:            WAPE(yTrue, yPred, nil),
		MAE:             MAE(yTrue, yPred),
		MdAE:            MdAE(yTrue, yPred),
		R2:              RSquared(yTrue, yPred),
		Spearman:        SpearmanRho(yTrue, yPred),
		BucketExact:     exact,
		BucketWithinOne: within,
	}
}

// RMSE is the root mean squared error; the overfitting diagnostics use it on
// the log scale.
func RMSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var sum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(yTrue)))
}

// ranks assigns 1-based ranks with ties averaged.
func ranks(x []float64) []float64 {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		// average rank for the tie group [i, j]
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
