package predict

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tiendata/ordercast/internal/estimator/artifact"
	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/features"
	"github.com/tiendata/ordercast/internal/estimator/gbm"
	"github.com/tiendata/ordercast/internal/estimator/metrics"
)

// trainingRows fabricates stores across several volume tiers with coherent
// signals: bigger traffic and catalogs mean more orders.
func trainingRows(n int) []dataset.EnrichmentRow {
	platforms := []string{"Shopify", "WooCommerce", "VTEX"}
	categories := []string{"Ropa", "Zapatos", "Tecnología"}
	rows := make([]dataset.EnrichmentRow, n)
	for i := range rows {
		scale := float64(1 + i%5)
		orders := 15 * scale * scale * scale
		rows[i] = dataset.EnrichmentRow{
			Domain:                 fmt.Sprintf("store-%03d.co", i),
			Platform:               platforms[i%len(platforms)],
			Category:               categories[i%len(categories)],
			IGFollowers:            dataset.Float(1500 * scale),
			ProductCount:           dataset.Float(40 * scale),
			AvgPrice:               dataset.Float(45000 + 1000*float64(i%7)),
			EstimatedMonthlyVisits: dataset.Float(4000 * scale),
			MonthlyOrders:          dataset.Float(orders),
			Extra:                  map[string]string{},
		}
	}
	return rows
}

// savedPredictor trains a small quantile set on fabricated rows and loads it
// back through the store.
func savedPredictor(t *testing.T) *Predictor {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	rows := trainingRows(60)
	prep, err := features.Prepare(rows, true)
	require.NoError(t, err)

	yLog := make([]float64, len(prep.Y))
	maxTarget := 0.0
	for i, v := range prep.Y {
		yLog[i] = math.Log1p(v)
		if v > maxTarget {
			maxTarget = v
		}
	}

	params := gbm.DefaultParams()
	params.NumRounds = 40
	params.MinChildSamples = 2

	models := map[string]*gbm.Booster{}
	for _, key := range artifact.QuantileKeys {
		b, err := gbm.Train(gbm.TrainOptions{
			X:         prep.X,
			Y:         yLog,
			Weights:   metrics.DefaultWeights(prep.Y),
			Params:    params,
			Objective: gbm.Quantile(artifact.QuantileTaus[key]),
		})
		require.NoError(t, err)
		models[key] = b
	}

	store := artifact.NewStore(t.TempDir(), logger)
	require.NoError(t, store.Save(&artifact.ModelSet{
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
			RunID:        uuid.NewString(),
			ModelVersion: "v1",
			TrainedAt:    time.Now().UTC(),
			DataHash:     "test",
			NumRows:      len(rows),
			NumFeatures:  prep.X.NumCols(),
			Target:       artifact.TargetStats{Min: 15, Max: maxTarget, Median: 405},
		},
	}))

	predictor, err := Load(store, logger)
	require.NoError(t, err)
	return predictor
}

func TestPredictBatch(t *testing.T) {
	predictor := savedPredictor(t)

	batch := trainingRows(10)
	for i := range batch {
		batch[i].MonthlyOrders = nil
	}

	result, err := predictor.PredictBatch(batch)
	require.NoError(t, err)
	require.Len(t, result.Predictions, len(batch), "no row is ever dropped")

	assert.Equal(t, "v1", result.ModelVersion)
	assert.False(t, result.PredictedAt.IsZero())

	for _, p := range result.Predictions {
		assert.NotEmpty(t, p.Domain)
		assert.GreaterOrEqual(t, p.P10, 0.0)
		assert.LessOrEqual(t, p.P10, p.P50, "quantiles must be ordered")
		assert.LessOrEqual(t, p.P50, p.P90, "quantiles must be ordered")
		assert.Equal(t, dataset.AssignBucket(p.P50), p.Bucket)
	}
}

func TestPredictBatchCap(t *testing.T) {
	predictor := savedPredictor(t)
	ceiling := predictor.Meta().Target.Max * capMultiplier

	// A store far outside the training range.
	batch := trainingRows(1)
	batch[0].MonthlyOrders = nil
	batch[0].IGFollowers = dataset.Float(5e7)
	batch[0].EstimatedMonthlyVisits = dataset.Float(1e9)
	batch[0].ProductCount = dataset.Float(1e6)

	result, err := predictor.PredictBatch(batch)
	require.NoError(t, err)
	p := result.Predictions[0]
	assert.LessOrEqual(t, p.P90, ceiling, "no prediction escapes the plausibility cap")
}

func TestClampQuantiles(t *testing.T) {
	t.Run("CrossedLow", func(t *testing.T) {
		lo, mid, hi := clampQuantiles(8, 5, 20)
		assert.Equal(t, 5.0, lo, "low is pulled down to the median")
		assert.Equal(t, 5.0, mid, "the median is never moved")
		assert.Equal(t, 20.0, hi)
	})
	t.Run("CrossedHigh", func(t *testing.T) {
		lo, mid, hi := clampQuantiles(2, 9, 4)
		assert.Equal(t, 2.0, lo)
		assert.Equal(t, 9.0, mid)
		assert.Equal(t, 9.0, hi, "high is pulled up to the median")
	})
	t.Run("AlreadyOrdered", func(t *testing.T) {
		lo, mid, hi := clampQuantiles(1, 2, 3)
		assert.Equal(t, 1.0, lo)
		assert.Equal(t, 2.0, mid)
		assert.Equal(t, 3.0, hi)
	})
}

func TestPredictBatchMedianSurvivesClamp(t *testing.T) {
	predictor := savedPredictor(t)

	batch := trainingRows(6)
	for i := range batch {
		batch[i].MonthlyOrders = nil
	}
	raw := predictor.set.Models["p50"]
	prep, err := features.Prepare(batch, false)
	require.NoError(t, err)
	wantMid := make([]float64, len(batch))
	for i, v := range raw.Predict(prep.X) {
		wantMid[i] = math.Max(math.Expm1(v), 0)
	}

	result, err := predictor.PredictBatch(batch)
	require.NoError(t, err)
	for i, p := range result.Predictions {
		assert.Equal(t, wantMid[i], p.P50,
			"the ordering guardrail must not alter the median for row %d", i)
	}
}

func TestPredictBatchCapCountsValues(t *testing.T) {
	predictor := savedPredictor(t)
	// Shrink the plausibility ceiling so every quantile value gets capped.
	predictor.set.Meta.Target.Max = 1

	batch := trainingRows(2)
	for i := range batch {
		batch[i].MonthlyOrders = nil
	}
	result, err := predictor.PredictBatch(batch)
	require.NoError(t, err)

	for _, p := range result.Predictions {
		assert.True(t, p.Capped)
		assert.Equal(t, 2.0, p.P90)
	}
	var capWarning *esterr.Warning
	for i := range result.Warnings {
		if result.Warnings[i].Code == esterr.WarnPredictionsCapped {
			capWarning = &result.Warnings[i]
		}
	}
	require.NotNil(t, capWarning)
	assert.Contains(t, capWarning.Message, "6 quantile values",
		"the cap warning counts values, not rows")
}

func TestConfidenceTierZeroTraffic(t *testing.T) {
	r := &dataset.EnrichmentRow{
		ProductCount:           dataset.Float(50),
		IGFollowers:            dataset.Float(1200),
		EstimatedMonthlyVisits: dataset.Float(0),
	}
	assert.Equal(t, ConfidenceLow, confidenceTier(r), "zero traffic is no traffic")
}

func TestPredictBatchConfidenceTiers(t *testing.T) {
	predictor := savedPredictor(t)

	batch := trainingRows(3)
	for i := range batch {
		batch[i].MonthlyOrders = nil
	}
	// full coverage -> HIGH
	// no catalog    -> MEDIUM
	// traffic only  -> LOW
	batch[1].ProductCount = nil
	batch[2].ProductCount = nil
	batch[2].IGFollowers = nil

	result, err := predictor.PredictBatch(batch)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceHigh, result.Predictions[0].Confidence)
	assert.Equal(t, ConfidenceMedium, result.Predictions[1].Confidence)
	assert.Equal(t, ConfidenceLow, result.Predictions[2].Confidence)
}

func TestPredictBatchSchemaMismatch(t *testing.T) {
	predictor := savedPredictor(t)
	predictor.set.Schema.Columns = predictor.set.Schema.Columns[:5]

	batch := trainingRows(2)
	_, err := predictor.PredictBatch(batch)
	assert.Error(t, err, "a schema drift must refuse to predict")
}

func TestPredictBatchValidation(t *testing.T) {
	predictor := savedPredictor(t)

	batch := trainingRows(2)
	batch[0].Category = "Categoria Inventada"

	_, err := predictor.PredictBatch(batch)
	var se *esterr.SchemaError
	assert.ErrorAs(t, err, &se)
}
