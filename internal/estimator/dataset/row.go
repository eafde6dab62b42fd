// Package dataset holds the data contracts shared across the estimation
// pipeline: the enrichment row produced by the upstream collaborators, the
// numeric feature matrix handed to the model, and the order-volume buckets
// used for stratification and coarse accuracy reporting.
package dataset

// EnrichmentRow is one store's feature vector as delivered by the enrichment
// pipeline. Optional numeric signals are pointers; nil means the signal was
// not collected for this store. Rows are treated as immutable by the
// estimator; any normalization happens on copies.
type EnrichmentRow struct {
	Domain   string `json:"domain"`
	Platform string `json:"platform"`
	Category string `json:"category"`

	IGFollowers      *float64 `json:"ig_followers,omitempty"`
	IGEngagementRate *float64 `json:"ig_engagement_rate,omitempty"`
	IGSizeScore      *float64 `json:"ig_size_score,omitempty"`
	IGHealthScore    *float64 `json:"ig_health_score,omitempty"`

	ProductCount  *float64 `json:"product_count,omitempty"`
	AvgPrice      *float64 `json:"avg_price,omitempty"`
	PriceRangeMin *float64 `json:"price_range_min,omitempty"`
	PriceRangeMax *float64 `json:"price_range_max,omitempty"`

	EstimatedMonthlyVisits *float64 `json:"estimated_monthly_visits,omitempty"`
	BrandDemandScore       *float64 `json:"brand_demand_score,omitempty"`
	NumberEmployees        *float64 `json:"number_employes,omitempty"`

	// MonthlyOrders is the training target. nil on prediction inputs.
	MonthlyOrders *float64 `json:"monthly_orders,omitempty"`

	// Extra carries passthrough columns from the source sheet (identity,
	// pipeline metadata). Never used as model features.
	Extra map[string]string `json:"-"`
}

// Clone returns a deep copy. The validator and currency normalizer work on
// clones so callers keep their rows untouched.
func (r EnrichmentRow) Clone() EnrichmentRow {
	out := r
	out.IGFollowers = clonePtr(r.IGFollowers)
	out.IGEngagementRate = clonePtr(r.IGEngagementRate)
	out.IGSizeScore = clonePtr(r.IGSizeScore)
	out.IGHealthScore = clonePtr(r.IGHealthScore)
	out.ProductCount = clonePtr(r.ProductCount)
	out.AvgPrice = clonePtr(r.AvgPrice)
	out.PriceRangeMin = clonePtr(r.PriceRangeMin)
	out.PriceRangeMax = clonePtr(r.PriceRangeMax)
	out.EstimatedMonthlyVisits = clonePtr(r.EstimatedMonthlyVisits)
	out.BrandDemandScore = clonePtr(r.BrandDemandScore)
	out.NumberEmployees = clonePtr(r.NumberEmployees)
	out.MonthlyOrders = clonePtr(r.MonthlyOrders)
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// CloneRows deep-copies a slice of rows.
func CloneRows(rows []EnrichmentRow) []EnrichmentRow {
	out := make([]EnrichmentRow, len(rows))
	for i := range rows {
		out[i] = rows[i].Clone()
	}
	return out
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for building rows in tests and loaders.
func Float(v float64) *float64 { return &v }
