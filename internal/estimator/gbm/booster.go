package gbm

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

const minSplitGain = 1e-7

// TrainOptions carries everything a single fit needs. Y is the transformed
// target; the booster knows nothing about log scales.
type TrainOptions struct {
	X       *dataset.Matrix
	Y       []float64
	Weights []float64 // nil means uniform

	Params    Params
	Objective Objective

	// ValX/ValY enable early stopping when Params.EarlyStoppingRounds > 0.
	ValX *dataset.Matrix
	ValY []float64
}

// Booster is a fitted ensemble. It serializes to JSON as-is; the flat node
// arrays keep the files small and diffable.
type Booster struct {
	Params        Params    `json:"params"`
	Objective     Objective `json:"objective"`
	BaseScore     float64   `json:"base_score"`
	Trees         []*Tree   `json:"trees"`
	FeatureNames  []string  `json:"feature_names"`
	Categorical   []bool    `json:"categorical"`
	BestIteration int       `json:"best_iteration"`
}

// Train fits a booster. A failed fit is a fatal error for the caller;
// masking it would silently corrupt evaluation results.
func Train(opt TrainOptions) (*Booster, error) {
	if opt.X == nil || opt.X.NumRows() == 0 {
		return nil, errors.New("gbm: empty training matrix")
	}
	if len(opt.Y) != opt.X.NumRows() {
		return nil, fmt.Errorf("gbm: %d labels for %d rows", len(opt.Y), opt.X.NumRows())
	}
	if err := opt.Objective.validate(); err != nil {
		return nil, err
	}
	p := opt.Params
	if p.NumRounds <= 0 {
		return nil, fmt.Errorf("gbm: num_rounds must be positive, got %d", p.NumRounds)
	}
	if p.LearningRate <= 0 {
		return nil, fmt.Errorf("gbm: learning_rate must be positive, got %g", p.LearningRate)
	}

	n := opt.X.NumRows()
	cols := opt.X.NumCols()

	w := opt.Weights
	if w == nil {
		w = make([]float64, n)
		for i := range w {
			w[i] = 1
		}
	} else if len(w) != n {
		return nil, fmt.Errorf("gbm: %d weights for %d rows", len(w), n)
	}

	b := &Booster{
		Params:       p,
		Objective:    opt.Objective,
		BaseScore:    opt.Objective.baseScore(opt.Y, w),
		FeatureNames: append([]string{}, opt.X.ColumnNames...),
		Categorical:  append([]bool{}, opt.X.Categorical...),
	}

	preds := make([]float64, n)
	for i := range preds {
		preds[i] = b.BaseScore
	}

	var valPreds, valW []float64
	useEarlyStop := opt.ValX != nil && p.EarlyStoppingRounds > 0
	if useEarlyStop {
		if len(opt.ValY) != opt.ValX.NumRows() {
			return nil, fmt.Errorf("gbm: %d validation labels for %d rows", len(opt.ValY), opt.ValX.NumRows())
		}
		valPreds = make([]float64, opt.ValX.NumRows())
		for i := range valPreds {
			valPreds[i] = b.BaseScore
		}
		valW = make([]float64, opt.ValX.NumRows())
		for i := range valW {
			valW[i] = 1
		}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	g := make([]float64, n)
	h := make([]float64, n)

	bestLoss := 0.0
	bestTrees := 0
	sinceBest := 0
	haveBest := false

	for round := 0; round < p.NumRounds; round++ {
		opt.Objective.gradients(preds, opt.Y, w, g, h)

		rowIdx := sampleIndices(rng, n, p.SubsampleRows)
		colAllowed := sampleColumns(rng, cols, p.SubsampleCols)

		tb := &treeBuilder{
			x:          opt.X,
			g:          g,
			h:          h,
			params:     p,
			colAllowed: colAllowed,
			leaves:     1,
		}
		tree := tb.build(rowIdx)
		b.Trees = append(b.Trees, tree)

		for i := 0; i < n; i++ {
			preds[i] += tree.Predict(opt.X.Rows[i], b.Categorical)
		}

		if useEarlyStop {
			for i := range valPreds {
				valPreds[i] += tree.Predict(opt.ValX.Rows[i], b.Categorical)
			}
			loss := opt.Objective.loss(valPreds, opt.ValY, valW)
			if !haveBest || loss < bestLoss-1e-9 {
				haveBest = true
				bestLoss = loss
				bestTrees = len(b.Trees)
				sinceBest = 0
			} else {
				sinceBest++
				if sinceBest >= p.EarlyStoppingRounds {
					break
				}
			}
		}
	}

	if useEarlyStop && haveBest {
		b.Trees = b.Trees[:bestTrees]
	}
	b.BestIteration = len(b.Trees)
	return b, nil
}

// Predict scores every row of a matrix.
func (b *Booster) Predict(x *dataset.Matrix) []float64 {
	out := make([]float64, x.NumRows())
	for i, row := range x.Rows {
		out[i] = b.PredictRow(row)
	}
	return out
}

// PredictRow scores a single feature vector.
func (b *Booster) PredictRow(row []float64) float64 {
	v := b.BaseScore
	for _, t := range b.Trees {
		v += t.Predict(row, b.Categorical)
	}
	return v
}

// NumTrees returns the ensemble size after any early-stopping truncation.
func (b *Booster) NumTrees() int { return len(b.Trees) }

// FeatureImportance returns total split gain per feature name.
func (b *Booster) FeatureImportance() map[string]float64 {
	acc := make([]float64, len(b.FeatureNames))
	for _, t := range b.Trees {
		t.gainByFeature(acc)
	}
	out := make(map[string]float64, len(acc))
	for j, name := range b.FeatureNames {
		out[name] = acc[j]
	}
	return out
}

func sampleIndices(rng *rand.Rand, n int, fraction float64) []int {
	if fraction >= 1 || fraction <= 0 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(float64(n) * fraction)
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

func sampleColumns(rng *rand.Rand, cols int, fraction float64) []bool {
	allowed := make([]bool, cols)
	if fraction >= 1 || fraction <= 0 {
		for j := range allowed {
			allowed[j] = true
		}
		return allowed
	}
	k := int(float64(cols) * fraction)
	if k < 1 {
		k = 1
	}
	for _, j := range rng.Perm(cols)[:k] {
		allowed[j] = true
	}
	return allowed
}
