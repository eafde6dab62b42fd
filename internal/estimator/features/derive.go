// =============================
// Derived Feature Engine
// =============================

package features

import (
	"math"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// Derived holds the computed feature columns for one row, in
// DerivedFeatureColumns order.
type Derived struct {
	HasCatalog        float64
	HasInstagram      float64
	HasEmployeesData  float64
	LogIGFollowers    float64
	LogMonthlyVisits  float64
	LogProductCount   float64
	LogAvgPrice       float64
	LogNumberEmployes float64
	PriceRangeRatio   float64 // NaN when avg price is missing or non-positive
}

// ComputeDerived is a pure function of a single row: presence flags, log1p
// magnitude compression, and the price-spread ratio. Missing values are
// zero-filled before the log transform, so a missing signal and a true zero
// are indistinguishable in the log features. That conflation is inherited
// from the reference pipeline and kept deliberately; changing it changes
// model behavior.
func ComputeDerived(r *dataset.EnrichmentRow) Derived {
	d := Derived{
		HasCatalog:        flag(r.ProductCount != nil),
		HasInstagram:      flag(r.IGFollowers != nil),
		HasEmployeesData:  flag(r.NumberEmployees != nil),
		LogIGFollowers:    log1pOrZero(r.IGFollowers),
		LogMonthlyVisits:  log1pOrZero(r.EstimatedMonthlyVisits),
		LogProductCount:   log1pOrZero(r.ProductCount),
		LogAvgPrice:       log1pOrZero(r.AvgPrice),
		LogNumberEmployes: log1pOrZero(r.NumberEmployees),
		PriceRangeRatio:   dataset.Missing(),
	}
	if r.AvgPrice != nil && *r.AvgPrice > 0 {
		d.PriceRangeRatio = (valueOrZero(r.PriceRangeMax) - valueOrZero(r.PriceRangeMin)) / *r.AvgPrice
	}
	return d
}

// values returns the derived columns in DerivedFeatureColumns order.
func (d Derived) values() []float64 {
	return []float64{
		d.HasCatalog,
		d.HasInstagram,
		d.HasEmployeesData,
		d.LogIGFollowers,
		d.LogMonthlyVisits,
		d.LogProductCount,
		d.LogAvgPrice,
		d.LogNumberEmployes,
		d.PriceRangeRatio,
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func log1pOrZero(p *float64) float64 {
	return math.Log1p(valueOrZero(p))
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
