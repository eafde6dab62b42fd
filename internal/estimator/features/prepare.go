package features

import (
	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
)

// Prepared is the output of the full feature pipeline for one batch.
type Prepared struct {
	X *dataset.Matrix
	// Y is the raw target, 1:1 with X rows. Nil unless requireTarget.
	Y []float64
	// Rows are the normalized copies that produced X, aligned by index.
	// Prediction needs them for confidence tiers and output keys.
	Rows     []dataset.EnrichmentRow
	Warnings []esterr.Warning
}

// Prepare runs the full pipeline on a batch: currency normalization,
// schema validation, feature derivation, matrix assembly. The input slice
// is never mutated; all normalization happens on a deep copy.
func Prepare(rows []dataset.EnrichmentRow, requireTarget bool) (*Prepared, error) {
	work := dataset.CloneRows(rows)

	// Prices first: validation warnings and derived features must see the
	// normalized values.
	warnings := NormalizePrices(work)

	vw, err := Validate(work, requireTarget)
	warnings = append(warnings, vw...)
	if err != nil {
		return nil, err
	}

	categorical, categoryCount := columnMeta()
	m := dataset.NewMatrix(AllFeatureColumns, categorical, categoryCount, len(work))

	var y []float64
	if requireTarget {
		y = make([]float64, 0, len(work))
	}

	for i := range work {
		r := &work[i]
		vec := make([]float64, 0, len(AllFeatureColumns))

		// Raw columns in schema order: the two categoricals as codes, then
		// the numeric signals (NaN when absent).
		vec = append(vec, codeOrMissing(PlatformCode(r.Platform)))
		vec = append(vec, codeOrMissing(CategoryCode(r.Category)))
		for _, g := range rawNumericGetters {
			if p := g.Get(r); p != nil {
				vec = append(vec, *p)
			} else {
				vec = append(vec, dataset.Missing())
			}
		}
		vec = append(vec, ComputeDerived(r).values()...)

		m.Rows = append(m.Rows, vec)
		if requireTarget {
			y = append(y, *r.MonthlyOrders)
		}
	}

	return &Prepared{X: m, Y: y, Rows: work, Warnings: warnings}, nil
}

// codeOrMissing turns an out-of-vocabulary code into the missing marker. A
// row with an empty platform reaches here as code -1.
func codeOrMissing(code int) float64 {
	if code < 0 {
		return dataset.Missing()
	}
	return float64(code)
}
