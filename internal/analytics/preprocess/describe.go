package preprocess

import (
	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
)

const places = 4

func CentralTendency(column string, data []float64) (analytics.Result, error) {
	if len(data) == 0 {
		return nil, apperr.Invalid("No numeric data in column \"%s\"", column)
	}
	return analytics.Result{
		"task":   "Measures of Central Tendency",
		"column": column,
		"mean":   stats.Round(stats.Mean(data), places),
		"median": stats.Round(stats.Median(data), places),
		"mode":   stats.Mode(data),
	}, nil
}

func Dispersion(column string, data []float64) (analytics.Result, error) {
	if len(data) < 2 {
		return nil, apperr.Invalid("Not enough numeric data in column \"%s\"", column)
	}
	return analytics.Result{
		"task":               "Dispersion of Data",
		"column":             column,
		"variance":           stats.Round(stats.Variance(data), places),
		"standard_deviation": stats.Round(stats.StdDev(data), places),
	}, nil
}

// CorrelationCovariance pairs values positionally, so both columns must
// hold the same number of numeric cells.
func CorrelationCovariance(col1, col2 string, x, y []float64) (analytics.Result, error) {
	if len(x) != len(y) {
		return nil, apperr.Invalid("Columns have unequal number of numeric values")
	}
	return analytics.Result{
		"task":                    "Correlation and Covariance",
		"columns":                 col1 + " and " + col2,
		"covariance":              stats.Round(stats.Covariance(x, y), places),
		"correlation_coefficient": stats.Round(stats.Correlation(x, y), places),
	}, nil
}
