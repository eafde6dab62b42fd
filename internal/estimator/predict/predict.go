// =============================
// Guarded Batch Prediction
// =============================
// Prediction is deliberately paranoid: the persisted schema is the authority
// on what a valid input looks like, and every output passes through the
// guardrail chain before anyone sees it. Rows are never dropped; a store we
// cannot say much about still gets an interval, just a low-confidence one.

package predict

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/tiendata/ordercast/internal/estimator/artifact"
	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/features"
	pkgmetrics "github.com/tiendata/ordercast/pkg/metrics"
)

// Confidence tiers. The tier reflects signal coverage, not model certainty:
// a store with catalog, social and traffic signals gives the model its full
// input surface.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// capMultiplier bounds predictions at this multiple of the largest target
// seen in training. The model extrapolates poorly past its training range.
const capMultiplier = 2.0

// zeroAlertFraction triggers the batch-level zero alert when this share of
// median predictions collapses to zero.
const zeroAlertFraction = 0.8

// Prediction is one store's guarded quantile estimate.
type Prediction struct {
	Domain string `json:"domain"`

	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`

	Bucket     dataset.Bucket `json:"bucket"`
	Confidence string         `json:"confidence"`
	Capped     bool           `json:"capped,omitempty"`
}

// BatchResult is the output of one prediction batch.
type BatchResult struct {
	Predictions []Prediction `json:"predictions"`

	ModelVersion string    `json:"model_version"`
	RunID        string    `json:"run_id"`
	PredictedAt  time.Time `json:"predicted_at"`

	Warnings []esterr.Warning `json:"warnings,omitempty"`
}

// Predictor scores enrichment rows against a loaded model set.
type Predictor struct {
	set    *artifact.ModelSet
	logger *zap.SugaredLogger
}

// Load reads the current model set from the store. Fails with
// ArtifactMissingError when no complete set is published.
func Load(store *artifact.Store, logger *zap.SugaredLogger) (*Predictor, error) {
	set, err := store.Load()
	if err != nil {
		return nil, err
	}
	logger.Infow("model set loaded",
		"run_id", set.Meta.RunID,
		"model_version", set.Meta.ModelVersion,
		"trained_at", set.Meta.TrainedAt,
	)
	return &Predictor{set: set, logger: logger}, nil
}

// Meta exposes the loaded set's training metadata.
func (p *Predictor) Meta() artifact.TrainingMeta { return p.set.Meta }

// PredictBatch runs the feature pipeline and the three quantile models over
// a batch, then applies the guardrail chain: monotonic clamp around the
// median, plausibility cap, confidence tiers, and the batch zero alert.
func (p *Predictor) PredictBatch(rows []dataset.EnrichmentRow) (*BatchResult, error) {
	prep, err := features.Prepare(rows, false)
	if err != nil {
		return nil, err
	}
	if err := prep.X.CheckColumns(p.set.Schema.Columns); err != nil {
		return nil, err
	}
	pkgmetrics.RowsValidated.WithLabelValues("predict").Add(float64(len(prep.Rows)))

	p10 := expm1Floor(p.set.Models["p10"].Predict(prep.X))
	p50 := expm1Floor(p.set.Models["p50"].Predict(prep.X))
	p90 := expm1Floor(p.set.Models["p90"].Predict(prep.X))

	ceiling := p.set.Meta.Target.Max * capMultiplier
	warnings := prep.Warnings

	result := &BatchResult{
		Predictions:  make([]Prediction, len(prep.Rows)),
		ModelVersion: p.set.Meta.ModelVersion,
		RunID:        p.set.Meta.RunID,
		PredictedAt:  time.Now().UTC(),
	}

	cappedValues := 0
	zeros := 0
	for i := range prep.Rows {
		lo, mid, hi := clampQuantiles(p10[i], p50[i], p90[i])

		rowCapped := 0
		if ceiling > 0 {
			if lo > ceiling {
				lo = ceiling
				rowCapped++
			}
			if mid > ceiling {
				mid = ceiling
				rowCapped++
			}
			if hi > ceiling {
				hi = ceiling
				rowCapped++
			}
		}
		cappedValues += rowCapped
		if mid == 0 {
			zeros++
		}

		result.Predictions[i] = Prediction{
			Domain:     prep.Rows[i].Domain,
			P10:        lo,
			P50:        mid,
			P90:        hi,
			Bucket:     dataset.AssignBucket(mid),
			Confidence: confidenceTier(&prep.Rows[i]),
			Capped:     rowCapped > 0,
		}
	}

	pkgmetrics.PredictionsTotal.Add(float64(len(result.Predictions)))
	if cappedValues > 0 {
		pkgmetrics.PredictionsCapped.Add(float64(cappedValues))
		warnings = append(warnings, esterr.Warnf(esterr.WarnPredictionsCapped,
			"%d quantile values capped at %.0f (%.1fx training max) across %d predictions",
			cappedValues, ceiling, capMultiplier, len(result.Predictions)))
	}
	if n := len(result.Predictions); n > 0 && float64(zeros) > zeroAlertFraction*float64(n) {
		pkgmetrics.ZeroPredictionAlerts.Inc()
		warnings = append(warnings, esterr.Warnf(esterr.WarnZeroPredictions,
			"CRITICAL: %d of %d median predictions are zero; the model or the input batch is broken", zeros, n))
		p.logger.Errorw("zero-prediction alert", "zeros", zeros, "batch", n)
	}

	result.Warnings = warnings
	p.logger.Infow("prediction batch complete",
		"rows", len(result.Predictions),
		"capped", cappedValues,
		"warnings", len(warnings),
	)
	return result, nil
}

// confidenceTier grades signal coverage for one normalized row. Traffic
// counts only when positive: a zero-visit estimate carries no information.
func confidenceTier(r *dataset.EnrichmentRow) string {
	catalog := r.ProductCount != nil
	social := r.IGFollowers != nil
	traffic := r.EstimatedMonthlyVisits != nil && *r.EstimatedMonthlyVisits > 0
	switch {
	case catalog && social && traffic:
		return ConfidenceHigh
	case social && traffic:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// clampQuantiles restores monotone ordering around the median: the low is
// pulled down to at most p50, the high up to at least p50. Independently
// fitted quantile models can cross, especially in sparse regions; the median
// itself is never moved by this guardrail.
func clampQuantiles(p10, p50, p90 float64) (lo, mid, hi float64) {
	lo, mid, hi = p10, p50, p90
	if lo > mid {
		lo = mid
	}
	if hi < mid {
		hi = mid
	}
	return lo, mid, hi
}

func expm1Floor(pred []float64) []float64 {
	out := make([]float64, len(pred))
	for i, v := range pred {
		out[i] = math.Max(math.Expm1(v), 0)
	}
	return out
}
