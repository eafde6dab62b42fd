package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// TargetColumn is the literal header of the label column in the training
// sheet. The misspelling is part of the upstream data contract; do not "fix"
// it here without migrating the sheet.
const TargetColumn = "Monthly_orderts (target)"

// DomainColumn is the key column used to join predictions back to stores.
const DomainColumn = "domain"

// numericHeaders maps source headers to setters for optional numeric fields.
var numericHeaders = map[string]func(*EnrichmentRow, float64){
	"ig_followers":             func(r *EnrichmentRow, v float64) { r.IGFollowers = &v },
	"ig_engagement_rate":       func(r *EnrichmentRow, v float64) { r.IGEngagementRate = &v },
	"ig_size_score":            func(r *EnrichmentRow, v float64) { r.IGSizeScore = &v },
	"ig_health_score":          func(r *EnrichmentRow, v float64) { r.IGHealthScore = &v },
	"product_count":            func(r *EnrichmentRow, v float64) { r.ProductCount = &v },
	"avg_price":                func(r *EnrichmentRow, v float64) { r.AvgPrice = &v },
	"price_range_min":          func(r *EnrichmentRow, v float64) { r.PriceRangeMin = &v },
	"price_range_max":          func(r *EnrichmentRow, v float64) { r.PriceRangeMax = &v },
	"estimated_monthly_visits": func(r *EnrichmentRow, v float64) { r.EstimatedMonthlyVisits = &v },
	"brand_demand_score":       func(r *EnrichmentRow, v float64) { r.BrandDemandScore = &v },
	"number_employes":          func(r *EnrichmentRow, v float64) { r.NumberEmployees = &v },
	TargetColumn:               func(r *EnrichmentRow, v float64) { r.MonthlyOrders = &v },
}

// ReadCSV loads enrichment rows from a CSV file. The upstream sheet export
// is UTF-8 with BOM; the BOM is stripped from the first header. Empty cells
// and the NA spellings coerce to missing, matching the source pipeline.
func ReadCSV(path string) ([]EnrichmentRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open training csv: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads enrichment rows from a reader.
func ParseCSV(r io.Reader) ([]EnrichmentRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []EnrichmentRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := EnrichmentRow{Extra: map[string]string{}}
		for j, cell := range rec {
			if j >= len(header) {
				break
			}
			assignCell(&row, header[j], strings.TrimSpace(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func assignCell(row *EnrichmentRow, col, cell string) {
	switch col {
	case DomainColumn:
		row.Domain = cell
		return
	case "platform":
		row.Platform = cell
		return
	case "category":
		row.Category = cell
		return
	}
	if set, ok := numericHeaders[col]; ok {
		if v, ok := parseNumeric(cell); ok {
			set(row, v)
		}
		return
	}
	if cell != "" {
		row.Extra[col] = cell
	}
}

// parseNumeric coerces a cell to float64. Unparsable cells become missing,
// the same behavior as pandas to_numeric(errors="coerce") upstream.
func parseNumeric(cell string) (float64, bool) {
	if cell == "" {
		return 0, false
	}
	switch strings.ToUpper(cell) {
	case "NA", "N/A", "NAN", "NULL", "NONE":
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
