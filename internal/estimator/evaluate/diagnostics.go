package evaluate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
	"github.com/tiendata/ordercast/internal/estimator/esterr"
	"github.com/tiendata/ordercast/internal/estimator/features"
)

// Diagnostic thresholds. The 30% figures are deliberately loose: with ~15
// folds on a few hundred rows, tighter bounds fire constantly.
const (
	overfitGapThreshold  = 0.30
	instabilityThreshold = 0.30
	featureSampleRatio   = 5.0
	leakageCorrThreshold = 0.95
	leakageMinValidPairs = 10
)

// CheckOverfitting compares mean training RMSE (log scale) against the
// cross-validated RMSE distribution and the feature-to-sample ratio.
func CheckOverfitting(trainRMSE float64, cvRMSEs []float64, nFeatures, nSamples int) []esterr.Warning {
	var warnings []esterr.Warning

	cvMean := stat.Mean(cvRMSEs, nil)
	cvStd := stat.PopStdDev(cvRMSEs, nil)

	if cvMean > 0 {
		gap := 1 - trainRMSE/cvMean
		if gap > overfitGapThreshold {
			warnings = append(warnings, esterr.Warnf(esterr.WarnOverfitting,
				"train RMSE %.3f vs CV %.3f (gap=%.0f%%)", trainRMSE, cvMean, gap*100))
		}
		if cvStd > instabilityThreshold*cvMean {
			warnings = append(warnings, esterr.Warnf(esterr.WarnUnstableCV,
				"CV RMSE std=%.3f, mean=%.3f (ratio=%.0f%%)", cvStd, cvMean, cvStd/cvMean*100))
		}
	}
	if nFeatures > 0 && float64(nFeatures) > float64(nSamples)/featureSampleRatio {
		warnings = append(warnings, esterr.Warnf(esterr.WarnHighDimensionality,
			"%d features for %d samples (ratio=%.1f:1, recommend >%.0f:1)",
			nFeatures, nSamples, float64(nSamples)/float64(nFeatures), featureSampleRatio))
	}
	return warnings
}

// CheckLeakage flags numeric features whose linear correlation with the
// target is suspiciously high, and pipeline-metadata columns that leaked
// into the feature set. A feature that all but encodes the target would
// make CV numbers look great and production predictions worthless.
func CheckLeakage(x *dataset.Matrix, y []float64) []esterr.Warning {
	var warnings []esterr.Warning

	for j, name := range x.ColumnNames {
		if x.Categorical[j] {
			continue
		}
		var xs, ys []float64
		for i, row := range x.Rows {
			if dataset.IsMissing(row[j]) {
				continue
			}
			xs = append(xs, row[j])
			ys = append(ys, y[i])
		}
		if len(xs) < leakageMinValidPairs {
			continue
		}
		if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
			continue
		}
		corr := stat.Correlation(xs, ys, nil)
		if !math.IsNaN(corr) && math.Abs(corr) > leakageCorrThreshold {
			warnings = append(warnings, esterr.Warnf(esterr.WarnLeakage,
				"%q has Pearson r=%.3f with the target", name, corr))
		}
	}

	for _, name := range x.ColumnNames {
		if features.IsMetadataColumn(name) {
			warnings = append(warnings, esterr.Warnf(esterr.WarnLeakage,
				"%q is pipeline metadata, not a store feature", name))
		}
	}
	return warnings
}
