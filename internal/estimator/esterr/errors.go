// Package esterr defines the error and warning taxonomy for the orders
// estimation subsystem.
//
// Two error kinds are fatal and abort a run: SchemaError (the input violates
// the frozen feature contract) and ArtifactMissingError (prediction was
// attempted without a complete trained model set). Everything else that can
// go sideways is surfaced as a Warning value attached to the run's report,
// never raised.
package esterr

import (
	"fmt"
	"strings"
)

// Warning codes.
const (
	WarnUnknownPlatform    = "unknown_platform"
	WarnMissingColumns     = "missing_columns"
	WarnExtraColumns       = "extra_columns"
	WarnCurrencyNormalized = "currency_normalized"
	WarnOverfitting        = "overfitting"
	WarnUnstableCV         = "unstable_cv"
	WarnHighDimensionality = "high_dimensionality"
	WarnLeakage            = "leakage"
	WarnPredictionsCapped  = "predictions_capped"
	WarnZeroPredictions    = "zero_predictions"
)

// Warning is a non-fatal diagnostic produced during validation, evaluation
// or prediction. Runs proceed; the caller decides what to do with these.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Code, w.Message)
}

// Warnf builds a Warning with a formatted message.
func Warnf(code, format string, args ...interface{}) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Messages flattens warnings into plain strings for logging and metadata.
func Messages(ws []Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.String())
	}
	return out
}

// SchemaError reports a violation of the input feature contract: missing
// required columns, an unknown category, or a null target where one is
// required. Fatal for training and evaluation.
type SchemaError struct {
	Field   string   // offending column, if a single one
	Rows    []int    // offending row indices, if known
	Values  []string // offending values, if known
	Message string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Field != "" {
		fmt.Fprintf(&b, " [%s]", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Rows) > 0 {
		fmt.Fprintf(&b, " (rows %v)", e.Rows)
	}
	return b.String()
}

// NewSchemaError builds a SchemaError for a single field.
func NewSchemaError(field, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ArtifactMissingError reports that the persisted model set is incomplete.
// There is no partial-load mode: prediction requires all three quantile
// models plus the frozen feature schema.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("no trained model found at %s: run 'ordercast train' first", e.Path)
}
