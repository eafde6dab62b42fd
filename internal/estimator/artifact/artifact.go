// =============================
// Model Artifact Types
// =============================
// A trained model set is four JSON documents: one booster per quantile, the
// frozen feature schema, the training metadata, and the gain importances.
// The schema document is authoritative at inference time; inputs that do not
// match it are rejected, never coerced.

package artifact

import (
	"time"

	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/gbm"
)

// Quantile keys, in ascending order. Every complete model set carries exactly
// these three boosters.
var QuantileKeys = []string{"p10", "p50", "p90"}

// QuantileTaus maps each key to its pinball tau.
var QuantileTaus = map[string]float64{
	"p10": 0.10,
	"p50": 0.50,
	"p90": 0.90,
}

// FeatureSchema is the persisted input contract.
type FeatureSchema struct {
	Columns         []string `json:"columns"`
	Categorical     []string `json:"categorical"`
	Platforms       []string `json:"platforms"`
	Categories      []string `json:"categories"`
	TargetColumn    string   `json:"target_column"`
	TargetTransform string   `json:"target_transform"`
	Backend         string   `json:"backend"`
}

// TargetStats summarizes the training target distribution. Prediction
// guardrails read Max to cap implausible outputs.
type TargetStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// CVMetric is a persisted mean/std pair from cross-validation.
type CVMetric struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// TrainingMeta records the provenance of a model set.
type TrainingMeta struct {
	RunID        string    `json:"run_id"`
	ModelVersion string    `json:"model_version"`
	TrainedAt    time.Time `json:"trained_at"`

	// DataHash fingerprints the training CSV; a matching hash lets a rerun
	// skip retraining unless forced.
	DataHash string `json:"data_hash"`

	NumRows     int `json:"n_rows"`
	NumFeatures int `json:"n_features"`

	Target TargetStats `json:"target"`

	Params gbm.Params `json:"params"`

	CVMetrics    map[string]CVMetric `json:"cv_metrics,omitempty"`
	BaselineWAPE float64             `json:"baseline_naive_median_wape"`

	SweepRan bool `json:"sweep_ran"`

	Warnings []esterr.Warning `json:"warnings,omitempty"`
}

// ImportanceEntry is one feature's total split gain across the median model.
type ImportanceEntry struct {
	Feature string  `json:"feature"`
	Gain    float64 `json:"gain"`
	Share   float64 `json:"share"`
}

// ModelSet is a complete loaded artifact.
type ModelSet struct {
	Models     map[string]*gbm.Booster
	Schema     FeatureSchema
	Meta       TrainingMeta
	Importance []ImportanceEntry
}
