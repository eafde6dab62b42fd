package evaluate

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/gbm"
	"github.com/tiendata/ordercast/internal/estimator/metrics"
)

// Defaults for repeated stratified k-fold.
const (
	DefaultSplits  = 5
	DefaultRepeats = 3
	DefaultSeed    = 42

	// earlyStopRounds is forced onto CV fits so fold models stop on their
	// internal validation slice instead of running all rounds.
	earlyStopRounds   = 50
	earlyStopFraction = 0.2
)

// CVOptions configures a cross-validation run.
type CVOptions struct {
	Splits  int
	Repeats int
	Seed    int64
	// Plan overrides fold construction; the sweep passes a shared plan so
	// every cell sees identical splits.
	Plan []Fold
}

func (o CVOptions) withDefaults() CVOptions {
	if o.Splits == 0 {
		o.Splits = DefaultSplits
	}
	if o.Repeats == 0 {
		o.Repeats = DefaultRepeats
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

// MetricSummary is a mean/std aggregate over folds.
type MetricSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// CVResult is the cross-validation report.
type CVResult struct {
	Metrics    map[string]MetricSummary `json:"metrics"`
	NumFolds   int                      `json:"n_folds"`
	NumSamples int                      `json:"n_samples"`

	// BaselineNaiveMedianWAPE is the WAPE of always predicting the global
	// median target. A model that cannot beat this is not a model.
	BaselineNaiveMedianWAPE float64 `json:"baseline_naive_median_wape"`

	TrainRMSELogMean float64 `json:"train_rmse_log_mean"`
	ValRMSELogMean   float64 `json:"val_rmse_log_mean"`

	Warnings []esterr.Warning `json:"warnings"`
}

// foldOutcome is what one fold fit contributes to aggregation.
type foldOutcome struct {
	summary      metrics.Summary
	trainRMSELog float64
	valRMSELog   float64
}

// CrossValidate runs repeated stratified k-fold evaluation of the median
// quantile model under the given hyperparameters, reporting original-scale
// metrics plus overfitting diagnostics and the naive baseline.
func CrossValidate(x *dataset.Matrix, y []float64, params gbm.Params, opt CVOptions, logger *zap.SugaredLogger) (*CVResult, error) {
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

	outcomes := make([]foldOutcome, 0, len(plan))
	for fi, fold := range plan {
		out, err := runFold(x, y, yLog, weights, fold, params, opt.Seed+int64(fi))
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, out)
	}

	result := aggregate(outcomes, len(y))

	// Naive baseline: predict the global median everywhere.
	med := median(y)
	naive := make([]float64, len(y))
	for i := range naive {
		naive[i] = med
	}
	result.BaselineNaiveMedianWAPE = metrics.WAPE(y, naive, nil)

	valRMSEs := make([]float64, len(outcomes))
	for i, o := range outcomes {
		valRMSEs[i] = o.valRMSELog
	}
	result.Warnings = CheckOverfitting(result.TrainRMSELogMean, valRMSEs, x.NumCols(), x.NumRows())

	if logger != nil {
		logger.Infow("cross-validation complete",
			"folds", result.NumFolds,
			"samples", result.NumSamples,
			"wape_mean", result.Metrics["wape"].Mean,
			"baseline_wape", result.BaselineNaiveMedianWAPE,
			"warnings", len(result.Warnings),
		)
	}
	return result, nil
}

// runFold fits one fold's model and evaluates the held-out slice. The early
// stopping set is carved out of the fold's training portion, never the
// held-out slice.
func runFold(x *dataset.Matrix, y, yLog, weights []float64, fold Fold, params gbm.Params, seed int64) (foldOutcome, error) {
	if params.EarlyStoppingRounds == 0 {
		params.EarlyStoppingRounds = earlyStopRounds
	}

	fitIdx, esIdx := splitEarlyStop(fold.Train, earlyStopFraction, seed)

	booster, err := gbm.Train(gbm.TrainOptions{
		X:         x.Subset(fitIdx),
		Y:         gather(yLog, fitIdx),
		Weights:   gather(weights, fitIdx),
		Params:    params,
		Objective: gbm.Quantile(0.5),
		ValX:      x.Subset(esIdx),
		ValY:      gather(yLog, esIdx),
	})
	if err != nil {
		return foldOutcome{}, err
	}

	// Held-out predictions back on the original scale.
	valPredLog := booster.Predict(x.Subset(fold.Val))
	valPred := expm1Floor(valPredLog)
	summary := metrics.Compute(gather(y, fold.Val), valPred)

	// Log-scale RMSEs over the full training portion for the overfit gap.
	trainPredLog := booster.Predict(x.Subset(fold.Train))
	out := foldOutcome{
		summary:      summary,
		trainRMSELog: metrics.RMSE(gather(yLog, fold.Train), trainPredLog),
		valRMSELog:   metrics.RMSE(gather(yLog, fold.Val), valPredLog),
	}
	return out, nil
}

func aggregate(outcomes []foldOutcome, nSamples int) *CVResult {
	pull := map[string]func(metrics.Summary) float64{
		"wape":     func(s metrics.Summary) float64 { return s.WAPE },
		"mae":      func(s metrics.Summary) float64 { return s.MAE },
		"mdae":     func(s metrics.Summary) float64 { return s.MdAE },
		"r2":       func(s metrics.Summary) float64 { return s.R2 },
		"spearman": func(s metrics.Summary) float64 { return s.Spearman },
		"exact":    func(s metrics.Summary) float64 { return s.BucketExact },
		"within_1": func(s metrics.Summary) float64 { return s.BucketWithinOne },
	}

	agg := make(map[string]MetricSummary, len(pull))
	for name, get := range pull {
		vals := make([]float64, len(outcomes))
		for i, o := range outcomes {
			vals[i] = get(o.summary)
		}
		agg[name] = MetricSummary{Mean: stat.Mean(vals, nil), Std: stat.PopStdDev(vals, nil)}
	}

	trainRMSEs := make([]float64, len(outcomes))
	valRMSEs := make([]float64, len(outcomes))
	for i, o := range outcomes {
		trainRMSEs[i] = o.trainRMSELog
		valRMSEs[i] = o.valRMSELog
	}

	return &CVResult{
		Metrics:          agg,
		NumFolds:         len(outcomes),
		NumSamples:       nSamples,
		TrainRMSELogMean: stat.Mean(trainRMSEs, nil),
		ValRMSELogMean:   stat.Mean(valRMSEs, nil),
	}
}

func log1pAll(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = math.Log1p(v)
	}
	return out
}

func expm1Floor(pred []float64) []float64 {
	out := make([]float64, len(pred))
	for i, v := range pred {
		out[i] = math.Max(math.Expm1(v), 0)
	}
	return out
}

func gather(x []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := append([]float64{}, x...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
