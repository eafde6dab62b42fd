// =============================
// Hyperparameter Sweep
// =============================

package evaluate

import (
	"context"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/gbm"
	"github.com/tiendata/ordercast/internal/estimator/metrics"
)

// Grid is the exhaustive search space. It is intentionally tiny: with a few
// hundred rows, every cell re-fits 15 fold models, and a 27-cell grid is
// already ~400 fits.
type Grid struct {
	MaxDepth     []int     `json:"max_depth"`
	LambdaL2     []float64 `json:"lambda_l2"`
	LearningRate []float64 `json:"learning_rate"`
}

// DefaultGrid returns the standard 3x3x3 search space.
func DefaultGrid() Grid {
	return Grid{
		MaxDepth:     []int{3, 4, 5},
		LambdaL2:     []float64{5, 10, 20},
		LearningRate: []float64{0.03, 0.05, 0.1},
	}
}

// SweepCell is one evaluated configuration.
type SweepCell struct {
	MaxDepth     int     `json:"max_depth"`
	LambdaL2     float64 `json:"lambda_l2"`
	LearningRate float64 `json:"learning_rate"`
	NumLeaves    int     `json:"num_leaves"`
	MeanWAPE     float64 `json:"mean_wape"`
	StdWAPE      float64 `json:"std_wape"`
}

// SweepResult carries the winner plus the full ranked list for audit.
type SweepResult struct {
	Best       SweepCell   `json:"best"`
	BestParams gbm.Params  `json:"best_params"`
	Cells      []SweepCell `json:"all_results"`
}

// Sweep grid-searches hyperparameters, ranking cells by mean CV WAPE over a
// fold plan built once and shared by every cell. Cells run concurrently;
// inputs are read-only throughout.
func Sweep(ctx context.Context, x *dataset.Matrix, y []float64, base gbm.Params, grid Grid, opt CVOptions, logger *zap.SugaredLogger) (*SweepResult, error) {
	opt = opt.withDefaults()

	plan := opt.Plan
	if plan == nil {
		var err error
		plan, err = BuildFoldPlan(y, opt.Splits, opt.Repeats, opt.Seed)
		if err != nil {
			return nil, err
		}
	}

	yLog := log1pAll(y)
	weights := metrics.DefaultWeights(y)

	type combo struct {
		depth int
		l2    float64
		lr    float64
	}
	var combos []combo
	for _, d := range grid.MaxDepth {
		for _, l2 := range grid.LambdaL2 {
			for _, lr := range grid.LearningRate {
				combos = append(combos, combo{d, l2, lr})
			}
		}
	}

	cells := make([]SweepCell, len(combos))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for ci, cb := range combos {
		ci, cb := ci, cb
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			params := base.WithDepth(cb.depth)
			params.LambdaL2 = cb.l2
			params.LearningRate = cb.lr

			wapes := make([]float64, len(plan))
			for fi, fold := range plan {
				out, err := runFold(x, y, yLog, weights, fold, params, opt.Seed+int64(fi))
				if err != nil {
					return err
				}
				wapes[fi] = out.summary.WAPE
			}
			cells[ci] = SweepCell{
				MaxDepth:     cb.depth,
				LambdaL2:     cb.l2,
				LearningRate: cb.lr,
				NumLeaves:    params.NumLeaves,
				MeanWAPE:     stat.Mean(wapes, nil),
				StdWAPE:      stat.PopStdDev(wapes, nil),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(cells, func(a, b int) bool { return cells[a].MeanWAPE < cells[b].MeanWAPE })
	best := cells[0]

	bestParams := base.WithDepth(best.MaxDepth)
	bestParams.LambdaL2 = best.LambdaL2
	bestParams.LearningRate = best.LearningRate

	if logger != nil {
		logger.Infow("hyperparameter sweep complete",
			"cells", len(cells),
			"folds_per_cell", len(plan),
			"best_depth", best.MaxDepth,
			"best_lambda_l2", best.LambdaL2,
			"best_learning_rate", best.LearningRate,
			"best_wape", best.MeanWAPE,
		)
	}
	return &SweepResult{Best: best, BestParams: bestParams, Cells: cells}, nil
}
