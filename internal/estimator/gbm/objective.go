package gbm

import (
	"fmt"
	"sort"
)

// ObjectiveKind selects the loss being minimized.
type ObjectiveKind string

const (
	// ObjectiveL2 is weighted squared error.
	ObjectiveL2 ObjectiveKind = "l2"
	// ObjectiveQuantile is the weighted pinball loss at Tau.
	ObjectiveQuantile ObjectiveKind = "quantile"
)

// Objective pairs a loss kind with its quantile level. The three persisted
// models differ only in this value.
type Objective struct {
	Kind ObjectiveKind `json:"kind"`
	Tau  float64       `json:"tau,omitempty"`
}

// L2 returns the squared-error objective.
func L2() Objective { return Objective{Kind: ObjectiveL2} }

// Quantile returns the pinball objective at tau.
func Quantile(tau float64) Objective { return Objective{Kind: ObjectiveQuantile, Tau: tau} }

func (o Objective) validate() error {
	switch o.Kind {
	case ObjectiveL2:
		return nil
	case ObjectiveQuantile:
		if o.Tau <= 0 || o.Tau >= 1 {
			return fmt.Errorf("quantile objective requires 0 < tau < 1, got %g", o.Tau)
		}
		return nil
	default:
		return fmt.Errorf("unknown objective %q", o.Kind)
	}
}

// baseScore is the constant prediction the boosting starts from: the
// weighted mean for L2, the weighted tau-quantile for pinball.
func (o Objective) baseScore(y, w []float64) float64 {
	if o.Kind == ObjectiveL2 {
		var sum, wsum float64
		for i, v := range y {
			sum += w[i] * v
			wsum += w[i]
		}
		if wsum == 0 {
			return 0
		}
		return sum / wsum
	}
	return weightedQuantile(y, w, o.Tau)
}

// gradients fills g and h with first- and second-order loss terms. The
// pinball loss has no curvature, so its hessian is the sample weight, the
// same convention LightGBM uses.
func (o Objective) gradients(pred, y, w, g, h []float64) {
	for i := range y {
		switch o.Kind {
		case ObjectiveL2:
			g[i] = w[i] * (pred[i] - y[i])
			h[i] = w[i]
		case ObjectiveQuantile:
			if pred[i] >= y[i] {
				g[i] = w[i] * (1 - o.Tau)
			} else {
				g[i] = -w[i] * o.Tau
			}
			h[i] = w[i]
		}
	}
}

// loss is the early-stopping criterion on a validation set.
func (o Objective) loss(pred, y, w []float64) float64 {
	var total, wsum float64
	for i := range y {
		d := pred[i] - y[i]
		switch o.Kind {
		case ObjectiveL2:
			total += w[i] * d * d
		case ObjectiveQuantile:
			if d >= 0 {
				total += w[i] * (1 - o.Tau) * d
			} else {
				total += w[i] * o.Tau * -d
			}
		}
		wsum += w[i]
	}
	if wsum == 0 {
		return 0
	}
	return total / wsum
}

// weightedQuantile computes the tau-quantile of y under weights w.
func weightedQuantile(y, w []float64, tau float64) float64 {
	if len(y) == 0 {
		return 0
	}
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return y[idx[a]] < y[idx[b]] })

	var wsum float64
	for _, wi := range w {
		wsum += wi
	}
	if wsum == 0 {
		return y[idx[len(idx)/2]]
	}
	cut := tau * wsum
	var acc float64
	for _, i := range idx {
		acc += w[i]
		if acc >= cut-1e-12 {
			return y[i]
		}
	}
	return y[idx[len(idx)-1]]
}

// thresholdL1 applies the L1 shrinkage to a gradient sum.
func thresholdL1(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

// leafValue is the regularized optimal leaf weight.
func leafValue(gsum, hsum, lambda, alpha float64) float64 {
	denom := hsum + lambda
	if denom <= 0 {
		return 0
	}
	return -thresholdL1(gsum, alpha) / denom
}

// splitScore is the structure score a child contributes to split gain.
func splitScore(gsum, hsum, lambda, alpha float64) float64 {
	denom := hsum + lambda
	if denom <= 0 {
		return 0
	}
	t := thresholdL1(gsum, alpha)
	return t * t / denom
}
