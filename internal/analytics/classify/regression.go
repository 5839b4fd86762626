package classify

import (
	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

type LinearModel struct {
	Intercept float64 `json:"B0_intercept"`
	Slope     float64 `json:"B1_slope"`
}

func (m LinearModel) Predict(x float64) float64 { return m.Intercept + m.Slope*x }

// FitLinear fits y = b0 + b1*x by least squares over rows numeric in both
// columns.
func FitLinear(rows []tabular.Row, xCol, yCol string) (LinearModel, error) {
	var xs, ys []float64
	for _, r := range rows {
		x, y := r[xCol], r[yCol]
		if x.IsNum() && y.IsNum() {
			xs = append(xs, x.Float())
			ys = append(ys, y.Float())
		}
	}
	if len(xs) < 2 {
		return LinearModel{}, apperr.Invalid("Columns must have at least 2 matching numeric rows.")
	}
	xMean, yMean := stats.Mean(xs), stats.Mean(ys)
	var num, den float64
	for i := range xs {
		dx := xs[i] - xMean
		num += dx * (ys[i] - yMean)
		den += dx * dx
	}
	if den == 0 {
		return LinearModel{}, apperr.Invalid("Cannot perform regression, independent variable is constant.")
	}
	b1 := num / den
	return LinearModel{Intercept: yMean - b1*xMean, Slope: b1}, nil
}

func linearRegression(t *tabular.Table, p analytics.Params) (analytics.Result, error) {
	x, y := p.String("independent_attribute"), p.String("dependent_attribute")
	if x == "" || y == "" {
		return nil, apperr.Invalid("Missing independent or dependent attribute")
	}
	if err := t.Require(x, y); err != nil {
		return nil, err
	}
	m, err := FitLinear(t.Rows, x, y)
	if err != nil {
		return nil, err
	}
	m.Intercept, m.Slope = stats.Round(m.Intercept, places), stats.Round(m.Slope, places)
	return analytics.Result{"task": "Simple Linear Regression", "params": p, "model": m}, nil
}
