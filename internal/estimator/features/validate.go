// =============================
// Schema Validation & Currency Normalization
// =============================

package features

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
)

// Currency normalization constants. A subset of training stores carries
// prices in USD instead of COP, which opens a huge artificial gap in the
// price features (USD 50 vs COP 50,000) that the trees latch onto. The
// training distribution has a clean empty band between roughly 500 and
// 5,000, so avg_price below the threshold is treated as USD and rescaled.
// This is a heuristic, not a certainty; every application is surfaced as a
// warning.
var (
	// USDThreshold: avg_price below this is assumed to be USD.
	USDThreshold = decimal.NewFromInt(500)
	// USDToCOPRate is the fixed conversion rate applied to USD rows.
	USDToCOPRate = decimal.NewFromInt(4200)
)

// Validate checks rows against the frozen schema in place.
//
// Hard failures (SchemaError): empty platform/category column, null
// category, category outside the allowed vocabulary, and - when
// requireTarget is set - a null target anywhere.
//
// Soft findings (warnings, run proceeds): unknown platforms remapped to
// "other" (one warning per unique unknown value), missing optional numeric
// signals, and unexpected passthrough columns.
func Validate(rows []dataset.EnrichmentRow, requireTarget bool) ([]esterr.Warning, error) {
	var warnings []esterr.Warning

	if len(rows) == 0 {
		return nil, esterr.NewSchemaError("", "no input rows")
	}

	// Required columns. A column that is empty on every row was not present
	// in the source at all.
	allPlatformEmpty, allCategoryEmpty := true, true
	for i := range rows {
		if rows[i].Platform != "" {
			allPlatformEmpty = false
		}
		if rows[i].Category != "" {
			allCategoryEmpty = false
		}
	}
	if allPlatformEmpty {
		return nil, esterr.NewSchemaError("platform", "missing required column")
	}
	if allCategoryEmpty {
		return nil, esterr.NewSchemaError("category", "missing required column")
	}

	// Platform: soft vocabulary.
	unknownPlatforms := map[string]bool{}
	for i := range rows {
		p := rows[i].Platform
		if p == "" {
			continue
		}
		if PlatformCode(p) < 0 {
			unknownPlatforms[p] = true
			rows[i].Platform = "other"
		}
	}
	for _, p := range sortedKeys(unknownPlatforms) {
		warnings = append(warnings, esterr.Warnf(esterr.WarnUnknownPlatform,
			"unknown platform %q mapped to \"other\"", p))
	}

	// Category: hard vocabulary.
	var nullRows []int
	for i := range rows {
		if rows[i].Category == "" {
			nullRows = append(nullRows, i)
		}
	}
	if len(nullRows) > 0 {
		return warnings, &esterr.SchemaError{
			Field:   "category",
			Rows:    nullRows,
			Message: fmt.Sprintf("NULL category in %d rows; category is required for all stores", len(nullRows)),
		}
	}
	unknownCategories := map[string]bool{}
	for i := range rows {
		if CategoryCode(rows[i].Category) < 0 {
			unknownCategories[rows[i].Category] = true
		}
	}
	if len(unknownCategories) > 0 {
		return warnings, &esterr.SchemaError{
			Field:   "category",
			Values:  sortedKeys(unknownCategories),
			Message: fmt.Sprintf("unknown categories %v; allowed vocabulary has %d values", sortedKeys(unknownCategories), len(AllowedCategories)),
		}
	}

	// Missing optional signals: count columns absent on every row.
	var missingCols []string
	for _, g := range rawNumericGetters {
		present := false
		for i := range rows {
			if g.Get(&rows[i]) != nil {
				present = true
				break
			}
		}
		if !present {
			missingCols = append(missingCols, g.Name)
		}
	}
	if len(missingCols) > 0 {
		warnings = append(warnings, esterr.Warnf(esterr.WarnMissingColumns,
			"feature columns with no values, treated as missing: %v", missingCols))
	}

	// Target.
	if requireTarget {
		var badRows []int
		for i := range rows {
			if rows[i].MonthlyOrders == nil {
				badRows = append(badRows, i)
			}
		}
		if len(badRows) > 0 {
			return warnings, &esterr.SchemaError{
				Field:   dataset.TargetColumn,
				Rows:    badRows,
				Message: fmt.Sprintf("%d rows have a null target; fix the training data", len(badRows)),
			}
		}
	}

	// Unexpected passthrough columns are ignored by the model, but say so.
	extra := map[string]bool{}
	for i := range rows {
		for col := range rows[i].Extra {
			if !knownPassthrough(col) {
				extra[col] = true
			}
		}
	}
	if len(extra) > 0 {
		warnings = append(warnings, esterr.Warnf(esterr.WarnExtraColumns,
			"extra columns ignored by the model: %v", sortedKeys(extra)))
	}

	return warnings, nil
}

// NormalizePrices rescales rows whose avg_price sits below the USD
// threshold, converting avg/min/max to COP in place. Must run before any
// feature derivation. Returns at most one warning covering all rescaled
// rows.
func NormalizePrices(rows []dataset.EnrichmentRow) []esterr.Warning {
	converted := 0
	for i := range rows {
		r := &rows[i]
		if r.AvgPrice == nil {
			continue
		}
		if decimal.NewFromFloat(*r.AvgPrice).Cmp(USDThreshold) >= 0 {
			continue
		}
		for _, p := range []**float64{&r.AvgPrice, &r.PriceRangeMin, &r.PriceRangeMax} {
			if *p == nil {
				continue
			}
			v, _ := decimal.NewFromFloat(**p).Mul(USDToCOPRate).Float64()
			**p = v
		}
		converted++
	}
	if converted == 0 {
		return nil
	}
	return []esterr.Warning{esterr.Warnf(esterr.WarnCurrencyNormalized,
		"%d stores detected as USD (avg_price < %s), converted to COP at rate %s",
		converted, USDThreshold, USDToCOPRate)}
}

// knownPassthrough lists identity columns the sheet always carries.
func knownPassthrough(col string) bool {
	switch col {
	case "Nombre", "clean_url", "instagram_url", "geography", "signals_used", "run_id", "batch_id":
		return true
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
