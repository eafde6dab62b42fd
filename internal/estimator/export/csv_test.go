package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/predict"
)

func sampleBatch() *predict.BatchResult {
	return &predict.BatchResult{
		Predictions: []predict.Prediction{
			{
				Domain: "tienda.co", P10: 120, P50: 340.5, P90: 910,
				Bucket: dataset.BucketMedium, Confidence: predict.ConfidenceHigh,
			},
			{
				Domain: "otra.co", P10: 4, P50: 12, P90: 38,
				Bucket: dataset.BucketMicro, Confidence: predict.ConfidenceLow,
			},
		},
		ModelVersion: "v1",
		RunID:        "run-1",
		PredictedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleBatch()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"domain", "predicted_orders_p10", "predicted_orders_p50", "predicted_orders_p90",
		"bucket", "prediction_confidence", "model_version", "predicted_at",
	}, records[0])

	assert.Equal(t, []string{
		"tienda.co", "120", "340.5", "910",
		"medium", "high", "v1", "2025-06-01T12:00:00Z",
	}, records[1])

	assert.Equal(t, "otra.co", records[2][0])
	assert.Equal(t, "low", records[2][5],
		"the sheet contract wants lowercase confidence literals")
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "120", formatCount(120))
	assert.Equal(t, "340.5", formatCount(340.5))
	assert.Equal(t, "0", formatCount(0))
}
