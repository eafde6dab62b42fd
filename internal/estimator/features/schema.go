// =============================
// Feature Schema
// =============================
// Single source of truth for the frozen model input contract: raw and
// derived column order, categorical vocabularies, and the target transform.
// The schema is persisted with every trained model set and is authoritative
// at inference time.

package features

import "github.com/tiendata/ordercast/internal/estimator/dataset"

// TargetTransform names the transform applied to the target before fitting.
const TargetTransform = "log1p"

// ModelBackend names the regressor implementation baked into artifacts.
const ModelBackend = "ordercast-gbm"

// RawFeatureColumns is the ordered raw input column set.
var RawFeatureColumns = []string{
	"platform",
	"category",
	"ig_followers",
	"ig_engagement_rate",
	"ig_size_score",
	"ig_health_score",
	"product_count",
	"avg_price",
	"price_range_min",
	"price_range_max",
	"estimated_monthly_visits",
	"brand_demand_score",
	"number_employes",
}

// CategoricalFeatures are encoded as vocabulary codes at fit time.
var CategoricalFeatures = []string{"platform", "category"}

// DerivedFeatureColumns is the ordered derived column set, appended after
// the raw columns.
var DerivedFeatureColumns = []string{
	"has_catalog",
	"has_instagram",
	"has_employees_data",
	"log_ig_followers",
	"log_monthly_visits",
	"log_product_count",
	"log_avg_price",
	"log_number_employes",
	"price_range_ratio",
}

// AllFeatureColumns is the full ordered model input column set.
var AllFeatureColumns = append(append([]string{}, RawFeatureColumns...), DerivedFeatureColumns...)

// AllowedPlatforms is a soft vocabulary: unknown values remap to "other"
// with a warning.
var AllowedPlatforms = []string{
	"Shopify", "WooCommerce", "VTEX", "Custom", "PrestaShop", "Magento", "other",
}

// AllowedCategories is a hard vocabulary: values outside it fail validation.
// Spanish labels come from the upstream classification step.
var AllowedCategories = []string{
	"Accesorios",
	"Alimentos",
	"Alimentos refrigerados",
	"Autopartes",
	"Bebidas",
	"Cosmeticos-belleza",
	"Deporte",
	"Electrónicos",
	"Farmacéutica",
	"Hogar",
	"Infantiles y Bebés",
	"Joyeria/Bisuteria",
	"Juguetes",
	"Juguetes Sexuales",
	"Libros",
	"Mascotas",
	"Papeleria",
	"Ropa",
	"Salud y Bienestar",
	"Suplementos",
	"Tecnología",
	"Textil Hogar",
	"Zapatos",
}

// metadataColumns are pipeline bookkeeping columns that must never appear as
// model features; the leakage check flags them by name.
var metadataColumns = map[string]bool{
	"signals_used": true,
}

// IsMetadataColumn reports whether a column is pipeline metadata.
func IsMetadataColumn(name string) bool { return metadataColumns[name] }

// PlatformCode maps a platform to its vocabulary index, or -1.
func PlatformCode(platform string) int {
	for i, p := range AllowedPlatforms {
		if p == platform {
			return i
		}
	}
	return -1
}

// CategoryCode maps a category to its vocabulary index, or -1.
func CategoryCode(category string) int {
	for i, c := range AllowedCategories {
		if c == category {
			return i
		}
	}
	return -1
}

// columnMeta returns the per-column categorical flags and vocabulary sizes
// for the full feature column set.
func columnMeta() (categorical []bool, categoryCount []int) {
	categorical = make([]bool, len(AllFeatureColumns))
	categoryCount = make([]int, len(AllFeatureColumns))
	for j, name := range AllFeatureColumns {
		switch name {
		case "platform":
			categorical[j] = true
			categoryCount[j] = len(AllowedPlatforms)
		case "category":
			categorical[j] = true
			categoryCount[j] = len(AllowedCategories)
		}
	}
	return categorical, categoryCount
}

// rawNumericGetters maps raw numeric columns to field accessors, in schema
// order. Validation and matrix assembly iterate this table so the column
// order is defined in exactly one place.
var rawNumericGetters = []struct {
	Name string
	Get  func(*dataset.EnrichmentRow) *float64
}{
	{"ig_followers", func(r *dataset.EnrichmentRow) *float64 { return r.IGFollowers }},
	{"ig_engagement_rate", func(r *dataset.EnrichmentRow) *float64 { return r.IGEngagementRate }},
	{"ig_size_score", func(r *dataset.EnrichmentRow) *float64 { return r.IGSizeScore }},
	{"ig_health_score", func(r *dataset.EnrichmentRow) *float64 { return r.IGHealthScore }},
	{"product_count", func(r *dataset.EnrichmentRow) *float64 { return r.ProductCount }},
	{"avg_price", func(r *dataset.EnrichmentRow) *float64 { return r.AvgPrice }},
	{"price_range_min", func(r *dataset.EnrichmentRow) *float64 { return r.PriceRangeMin }},
	{"price_range_max", func(r *dataset.EnrichmentRow) *float64 { return r.PriceRangeMax }},
	{"estimated_monthly_visits", func(r *dataset.EnrichmentRow) *float64 { return r.EstimatedMonthlyVisits }},
	{"brand_demand_score", func(r *dataset.EnrichmentRow) *float64 { return r.BrandDemandScore }},
	{"number_employes", func(r *dataset.EnrichmentRow) *float64 { return r.NumberEmployees }},
}
