// =============================
// Training Pipeline
// =============================
// Orchestrates one end-to-end run: load the enrichment sheet, prepare
// features, run leakage and cross-validation diagnostics, optionally sweep
// hyperparameters, fit the three quantile boosters on the full dataset, and
// publish the artifact set. Every run leaves a JSON report and a dataset
// snapshot next to the artifacts so results stay reproducible.

package train

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tiendata/ordercast/internal/estimator/artifact"
	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/evaluate"
	"github.com/tiendata/ordercast/internal/estimator/features"
	"github.com/tiendata/ordercast/internal/estimator/gbm"
	"github.com/tiendata/ordercast/internal/estimator/metrics"
	pkgmetrics "github.com/tiendata/ordercast/pkg/metrics"
)

// ModelVersion tags every published artifact set. Bump on any change to the
// feature schema or the booster format.
const ModelVersion = "v1"

// Options configures a training run.
type Options struct {
	CSVPath string

	// Force retrains even when the data hash matches the published set.
	Force bool

	// SkipSweep fits with default hyperparameters instead of grid-searching.
	SkipSweep bool

	CV evaluate.CVOptions
}

// Report is the persisted record of one run.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	DataHash  string    `json:"data_hash"`
	NumRows   int       `json:"n_rows"`

	// Skipped is set when the data hash matched the published set and the
	// run exited without retraining.
	Skipped bool `json:"skipped"`

	Params gbm.Params            `json:"params"`
	Sweep  *evaluate.SweepResult `json:"sweep,omitempty"`
	CV     *evaluate.CVResult    `json:"cv,omitempty"`

	Warnings []esterr.Warning `json:"warnings,omitempty"`
}

// Pipeline runs training and evaluation against one artifact store.
type Pipeline struct {
	store  *artifact.Store
	logger *zap.SugaredLogger
}

// New returns a pipeline publishing into store.
func New(store *artifact.Store, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{store: store, logger: logger}
}

// Run executes the full pipeline and publishes a model set.
func (p *Pipeline) Run(ctx context.Context, opt Options) (*Report, error) {
	started := time.Now().UTC()

	data, err := os.ReadFile(opt.CSVPath)
	if err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("read training csv: %w", err)
	}
	hash := hashBytes(data)

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
		DataHash:  hash,
	}

	if !opt.Force && hash == p.store.LastDataHash() {
		report.Skipped = true
		report.Duration = time.Since(started).String()
		p.logger.Infow("training skipped, data unchanged",
			"run_id", report.RunID, "data_hash", hash)
		pkgmetrics.TrainingRuns.WithLabelValues("skipped").Inc()
		return report, nil
	}

	rows, err := dataset.ParseCSV(bytes.NewReader(data))
	if err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	report.NumRows = len(rows)

	prep, err := features.Prepare(rows, true)
	if err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	pkgmetrics.RowsValidated.WithLabelValues("train").Add(float64(len(prep.Rows)))
	warnings := prep.Warnings

	warnings = append(warnings, evaluate.CheckLeakage(prep.X, prep.Y)...)

	// One fold plan shared by the sweep and the final cross-validation, so
	// every configuration is scored on identical splits.
	cvOpt := cvDefaults(opt.CV)
	plan, err := evaluate.BuildFoldPlan(prep.Y, cvOpt.Splits, cvOpt.Repeats, cvOpt.Seed)
	if err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	cvOpt.Plan = plan

	params := gbm.DefaultParams()
	if !opt.SkipSweep {
		sweep, err := evaluate.Sweep(ctx, prep.X, prep.Y, params, evaluate.DefaultGrid(), cvOpt, p.logger)
		if err != nil {
			pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
			return nil, err
		}
		report.Sweep = sweep
		params = sweep.BestParams
	}
	report.Params = params

	cv, err := evaluate.CrossValidate(prep.X, prep.Y, params, cvOpt, p.logger)
	if err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	report.CV = cv
	warnings = append(warnings, cv.Warnings...)

	set, err := p.fitModelSet(prep, params, cv, report, warnings)
	if err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	if err := p.store.Save(set); err != nil {
		pkgmetrics.TrainingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	if err := p.snapshotDataset(report.RunID, data); err != nil {
		p.logger.Warnw("dataset snapshot failed", "error", err)
	}
	report.Warnings = warnings
	report.Duration = time.Since(started).String()
	if err := p.writeReport("training", report.RunID, report); err != nil {
		p.logger.Warnw("report write failed", "error", err)
	}

	pkgmetrics.TrainingRuns.WithLabelValues("trained").Inc()
	pkgmetrics.TrainingDuration.Observe(time.Since(started).Seconds())
	p.logger.Infow("training run complete",
		"run_id", report.RunID,
		"rows", report.NumRows,
		"wape_mean", cv.Metrics["wape"].Mean,
		"warnings", len(warnings),
		"duration", report.Duration,
	)
	return report, nil
}

// Evaluate runs diagnostics and cross-validation without fitting or
// publishing final models.
func (p *Pipeline) Evaluate(ctx context.Context, opt Options) (*Report, error) {
	started := time.Now().UTC()

	data, err := os.ReadFile(opt.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("read training csv: %w", err)
	}
	rows, err := dataset.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	prep, err := features.Prepare(rows, true)
	if err != nil {
		return nil, err
	}
	pkgmetrics.RowsValidated.WithLabelValues("evaluate").Add(float64(len(prep.Rows)))
	warnings := prep.Warnings
	warnings = append(warnings, evaluate.CheckLeakage(prep.X, prep.Y)...)

	params := gbm.DefaultParams()
	cv, err := evaluate.CrossValidate(prep.X, prep.Y, params, opt.CV, p.logger)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, cv.Warnings...)

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Duration:  time.Since(started).String(),
		DataHash:  hashBytes(data),
		NumRows:   len(rows),
		Params:    params,
		CV:        cv,
		Warnings:  warnings,
	}
	if err := p.writeReport("evaluation", report.RunID, report); err != nil {
		p.logger.Warnw("report write failed", "error", err)
	}
	return report, nil
}

// fitModelSet trains the three quantile boosters on the full dataset with the
// selected hyperparameters. Final fits run every round; early stopping is a
// cross-validation device, not a production one.
func (p *Pipeline) fitModelSet(prep *features.Prepared, params gbm.Params, cv *evaluate.CVResult, report *Report, warnings []esterr.Warning) (*artifact.ModelSet, error) {
	yLog := make([]float64, len(prep.Y))
	for i, v := range prep.Y {
		yLog[i] = math.Log1p(v)
	}
	weights := metrics.DefaultWeights(prep.Y)

	finalParams := params
	finalParams.EarlyStoppingRounds = 0

	models := make(map[string]*gbm.Booster, len(artifact.QuantileKeys))
	for _, key := range artifact.QuantileKeys {
		b, err := gbm.Train(gbm.TrainOptions{
			X:         prep.X,
			Y:         yLog,
			Weights:   weights,
			Params:    finalParams,
			Objective: gbm.Quantile(artifact.QuantileTaus[key]),
		})
		if err != nil {
			return nil, fmt.Errorf("fit %s model: %w", key, err)
		}
		models[key] = b
	}

	cvMetrics := make(map[string]artifact.CVMetric, len(cv.Metrics))
	for name, m := range cv.Metrics {
		cvMetrics[name] = artifact.CVMetric{Mean: m.Mean, Std: m.Std}
	}

	set := &artifact.ModelSet{
		Models: models,
		Schema: artifact.FeatureSchema{
			Columns:         append([]string{}, features.AllFeatureColumns...),
			Categorical:     append([]string{}, features.CategoricalFeatures...),
			Platforms:       append([]string{}, features.AllowedPlatforms...),
			Categories:      append([]string{}, features.AllowedCategories...),
			TargetColumn:    dataset.TargetColumn,
			TargetTransform: features.TargetTransform,
			Backend:         features.ModelBackend,
		},
		Meta: artifact.TrainingMeta{
			RunID:        report.RunID,
			ModelVersion: ModelVersion,
			TrainedAt:    report.StartedAt,
			DataHash:     report.DataHash,
			NumRows:      prep.X.NumRows(),
			NumFeatures:  prep.X.NumCols(),
			Target:       targetStats(prep.Y),
			Params:       finalParams,
			CVMetrics:    cvMetrics,
			BaselineWAPE: cv.BaselineNaiveMedianWAPE,
			SweepRan:     report.Sweep != nil,
			Warnings:     warnings,
		},
		Importance: importanceEntries(models["p50"]),
	}
	return set, nil
}

// importanceEntries ranks features by total split gain in the median model.
func importanceEntries(b *gbm.Booster) []artifact.ImportanceEntry {
	gains := b.FeatureImportance()
	var total float64
	for _, g := range gains {
		total += g
	}

	out := make([]artifact.ImportanceEntry, 0, len(gains))
	for name, g := range gains {
		e := artifact.ImportanceEntry{Feature: name, Gain: g}
		if total > 0 {
			e.Share = g / total
		}
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Gain != out[b].Gain {
			return out[a].Gain > out[b].Gain
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}

func targetStats(y []float64) artifact.TargetStats {
	s := append([]float64{}, y...)
	sort.Float64s(s)
	stats := artifact.TargetStats{Min: s[0], Max: s[len(s)-1]}
	n := len(s)
	if n%2 == 1 {
		stats.Median = s[n/2]
	} else {
		stats.Median = (s[n/2-1] + s[n/2]) / 2
	}
	return stats
}

func (p *Pipeline) snapshotDataset(runID string, data []byte) error {
	dir := filepath.Join(p.store.Root(), "datasets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, runID+".csv"), data, 0o644)
}

func (p *Pipeline) writeReport(kind, runID string, report *Report) error {
	dir := filepath.Join(p.store.Root(), "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.json", kind, runID)
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func cvDefaults(o evaluate.CVOptions) evaluate.CVOptions {
	if o.Splits == 0 {
		o.Splits = evaluate.DefaultSplits
	}
	if o.Repeats == 0 {
		o.Repeats = evaluate.DefaultRepeats
	}
	if o.Seed == 0 {
		o.Seed = evaluate.DefaultSeed
	}
	return o
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
