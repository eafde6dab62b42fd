// =============================
// Gradient-Boosted Tree Ensemble
// =============================
// A small in-process GBM tuned for the orders dataset: a few hundred rows,
// ~20 features, two categorical columns. Supports squared-error and pinball
// (quantile) objectives, per-sample weights, missing-value default
// directions, ordered categorical splits, row/column subsampling and early
// stopping. Deliberately single-threaded: fitting one booster takes
// milliseconds at this scale, and parallelism lives one level up, across
// cross-validation folds and sweep cells.

package gbm

// Params are the booster hyperparameters. Defaults are conservative for a
// training set of a few hundred stores.
type Params struct {
	NumRounds           int     `json:"num_rounds"`
	LearningRate        float64 `json:"learning_rate"`
	MaxDepth            int     `json:"max_depth"`
	NumLeaves           int     `json:"num_leaves"`
	MinChildSamples     int     `json:"min_child_samples"`
	LambdaL2            float64 `json:"lambda_l2"`
	AlphaL1             float64 `json:"alpha_l1"`
	SubsampleRows       float64 `json:"subsample_rows"`
	SubsampleCols       float64 `json:"subsample_cols"`
	Seed                int64   `json:"seed"`
	EarlyStoppingRounds int     `json:"early_stopping_rounds"`
}

// DefaultParams returns the baseline configuration.
func DefaultParams() Params {
	return Params{
		NumRounds:       500,
		LearningRate:    0.05,
		MaxDepth:        4,
		NumLeaves:       15, // 2^4 - 1
		MinChildSamples: 5,
		LambdaL2:        10.0,
		AlphaL1:         1.0,
		SubsampleRows:   0.8,
		SubsampleCols:   0.8,
		Seed:            42,
	}
}

// WithDepth returns a copy with MaxDepth set and NumLeaves re-derived as
// min(2^depth - 1, 31), keeping tree complexity tied to depth.
func (p Params) WithDepth(depth int) Params {
	p.MaxDepth = depth
	leaves := 1<<depth - 1
	if leaves > 31 {
		leaves = 31
	}
	p.NumLeaves = leaves
	return p
}
