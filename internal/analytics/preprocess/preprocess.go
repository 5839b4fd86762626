// Package preprocess implements the descriptive, transformation and
// visualization tasks of the process endpoint.
package preprocess

import (
	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// Task names accepted by Run.
const (
	TaskCentralTendency = "central_tendency"
	TaskDispersion      = "dispersion_of_data"
	TaskCorrelation     = "correlation_covariance"
	TaskMinMax          = "normalize_min_max"
	TaskZScore          = "normalize_z_score"
	TaskDecimalScaling  = "normalize_decimal_scaling"
	TaskBinning         = "discretize_by_binning"
	TaskCleaning        = "data_cleaning"
	TaskChiSquare       = "chi_square_test"
	TaskVisualization   = "visualization"
)

const (
	maxProcessedRows     = 100
	defaultBinningBins   = 5
	defaultHistogramBins = 10

	// MaxBins caps num_bins for binning and histograms.
	MaxBins = 1000
)

// Request carries the column selectors and params of a process call.
type Request struct {
	Task    string
	Column  string
	Column1 string
	Column2 string
	Params  analytics.Params
}

// Run dispatches one task against t. t is never modified.
func Run(t *tabular.Table, req Request) (analytics.Result, error) {
	switch req.Task {
	case TaskCentralTendency, TaskDispersion:
		if req.Column == "" {
			return nil, apperr.Invalid("Missing column name")
		}
		data, err := t.Column(req.Column)
		if err != nil {
			return nil, err
		}
		if req.Task == TaskCentralTendency {
			return CentralTendency(req.Column, data)
		}
		return Dispersion(req.Column, data)

	case TaskCorrelation:
		if req.Column1 == "" || req.Column2 == "" {
			return nil, apperr.Invalid("Missing column1 or column2")
		}
		x, err := t.Column(req.Column1)
		if err != nil {
			return nil, err
		}
		y, err := t.Column(req.Column2)
		if err != nil {
			return nil, err
		}
		return CorrelationCovariance(req.Column1, req.Column2, x, y)

	case TaskMinMax, TaskZScore, TaskDecimalScaling, TaskBinning:
		if req.Column == "" {
			return nil, apperr.Invalid("Missing column name")
		}
		if err := t.Require(req.Column); err != nil {
			return nil, err
		}
		rows := t.Clone().Rows
		switch req.Task {
		case TaskMinMax:
			NormalizeMinMax(rows, req.Column)
		case TaskZScore:
			NormalizeZScore(rows, req.Column)
		case TaskDecimalScaling:
			NormalizeDecimalScaling(rows, req.Column)
		case TaskBinning:
			bins, err := req.Params.IntIn("num_bins", defaultBinningBins, 1, MaxBins)
			if err != nil {
				return nil, err
			}
			DiscretizeByBinning(rows, req.Column, bins)
		}
		return analytics.Result{
			"task":           req.Task,
			"column":         req.Column,
			"processed_data": tabular.Head(rows, maxProcessedRows),
		}, nil

	case TaskCleaning:
		method := req.Params.String("method")
		if method == "" {
			return nil, apperr.Invalid("Missing cleaning method in params")
		}
		if method == MethodFillMean && req.Column == "" {
			return nil, apperr.Invalid("Missing column for fill_mean")
		}
		if req.Column != "" {
			if err := t.Require(req.Column); err != nil {
				return nil, err
			}
		}
		c := t.Clone()
		cleaned, err := HandleMissingValues(c.Rows, c.Header, method, req.Column)
		if err != nil {
			return nil, err
		}
		return analytics.Result{
			"task":           "Data Cleaning",
			"method":         method,
			"rows_before":    len(t.Rows),
			"rows_after":     len(cleaned),
			"processed_data": tabular.Head(cleaned, maxProcessedRows),
		}, nil

	case TaskChiSquare:
		if req.Column1 == "" || req.Column2 == "" {
			return nil, apperr.Invalid("Missing column1 or column2")
		}
		if err := t.Require(req.Column1, req.Column2); err != nil {
			return nil, err
		}
		res := ChiSquare(t.Rows, req.Column1, req.Column2)
		return analytics.Result{
			"task":                 "Chi-square Test",
			"columns":              req.Column1 + " and " + req.Column2,
			"chi_square_statistic": res.Statistic,
			"degrees_of_freedom":   res.DegreesOfFreedom,
			"contingency_table":    res.Table,
		}, nil

	case TaskVisualization:
		return visualize(t, req)
	}
	return nil, apperr.Invalid("Unknown task: %s", req.Task)
}

func visualize(t *tabular.Table, req Request) (analytics.Result, error) {
	chart := req.Params.String("chart_type")
	switch chart {
	case "":
		return nil, apperr.Invalid("Missing chart_type in params")
	case ChartHistogram:
		if req.Column == "" {
			return nil, apperr.Invalid("Missing column for histogram")
		}
		if err := t.Require(req.Column); err != nil {
			return nil, err
		}
		bins, err := req.Params.IntIn("num_bins", defaultHistogramBins, 1, MaxBins)
		if err != nil {
			return nil, err
		}
		return analytics.Result{
			"task":       "Visualization",
			"chart_type": ChartHistogram,
			"chart_data": Histogram(t.Rows, req.Column, bins),
		}, nil
	case ChartScatter:
		if req.Column1 == "" || req.Column2 == "" {
			return nil, apperr.Invalid("Missing column1 or column2 for scatter plot")
		}
		if err := t.Require(req.Column1, req.Column2); err != nil {
			return nil, err
		}
		return analytics.Result{
			"task":       "Visualization",
			"chart_type": ChartScatter,
			"chart_data": Scatter(t.Rows, req.Column1, req.Column2),
		}, nil
	}
	return nil, apperr.Invalid("Unknown chart_type: %s", chart)
}
