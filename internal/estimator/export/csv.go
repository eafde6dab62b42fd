// Package export writes prediction batches to the CSV layout the downstream
// enrichment sheet imports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tiendata/ordercast/internal/estimator/predict"
)

var header = []string{
	"domain",
	"predicted_orders_p10",
	"predicted_orders_p50",
	"predicted_orders_p90",
	"bucket",
	"prediction_confidence",
	"model_version",
	"predicted_at",
}

// WriteCSV streams a batch result as CSV.
func WriteCSV(w io.Writer, batch *predict.BatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write prediction header: %w", err)
	}
	ts := batch.PredictedAt.Format(time.RFC3339)
	for _, p := range batch.Predictions {
		rec := []string{
			p.Domain,
			formatCount(p.P10),
			formatCount(p.P50),
			formatCount(p.P90),
			string(p.Bucket),
			p.Confidence,
			batch.ModelVersion,
			ts,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write prediction row for %q: %w", p.Domain, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes a batch result to a file path.
func WriteCSVFile(path string, batch *predict.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create prediction csv: %w", err)
	}
	if err := WriteCSV(f, batch); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// formatCount renders an order count with one decimal, trimming the trailing
// zero so whole numbers stay whole in the sheet.
func formatCount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
