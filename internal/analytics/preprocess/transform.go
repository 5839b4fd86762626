package preprocess

import (
	"fmt"
	"math"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// Cleaning methods.
const (
	MethodRemoveRows = "remove_rows"
	MethodFillMean   = "fill_mean"
)

func numericCells(rows []tabular.Row, column string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v := r[column]; v.IsNum() {
			out = append(out, v.Float())
		}
	}
	return out
}

// mapNumeric rewrites every numeric cell of column in place.
func mapNumeric(rows []tabular.Row, column string, fn func(float64) tabular.Value) {
	for _, r := range rows {
		if v := r[column]; v.IsNum() {
			r[column] = fn(v.Float())
		}
	}
}

// NormalizeMinMax scales into [0,1]; a constant column is left as is.
func NormalizeMinMax(rows []tabular.Row, column string) {
	values := numericCells(rows, column)
	if len(values) == 0 {
		return
	}
	lo, hi := stats.MinMax(values)
	span := hi - lo
	if span == 0 {
		return
	}
	mapNumeric(rows, column, func(f float64) tabular.Value { return tabular.Num((f - lo) / span) })
}

// NormalizeZScore uses the sample standard deviation.
func NormalizeZScore(rows []tabular.Row, column string) {
	values := numericCells(rows, column)
	if len(values) == 0 {
		return
	}
	mean, sd := stats.Mean(values), stats.StdDev(values)
	if sd == 0 {
		return
	}
	mapNumeric(rows, column, func(f float64) tabular.Value { return tabular.Num((f - mean) / sd) })
}

// NormalizeDecimalScaling divides by 10^ceil(log10(max|v|)).
func NormalizeDecimalScaling(rows []tabular.Row, column string) {
	values := numericCells(rows, column)
	if len(values) == 0 {
		return
	}
	maxAbs := 0.0
	for _, v := range values {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 {
		return
	}
	divisor := math.Pow(10, math.Ceil(math.Log10(maxAbs)))
	mapNumeric(rows, column, func(f float64) tabular.Value { return tabular.Num(f / divisor) })
}

// DiscretizeByBinning replaces numeric cells with equal-width bin labels.
// A value sitting on an inner edge belongs to the upper bin.
func DiscretizeByBinning(rows []tabular.Row, column string, numBins int) {
	values := numericCells(rows, column)
	if len(values) == 0 || numBins <= 0 {
		return
	}
	lo, hi := stats.MinMax(values)
	width := (hi - lo) / float64(numBins)
	if width == 0 {
		label := tabular.Text(fmt.Sprintf("Bin 1: (%s)", tabular.FormatFloat(lo)))
		mapNumeric(rows, column, func(float64) tabular.Value { return label })
		return
	}
	edges := make([]float64, numBins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[numBins] = hi
	for _, r := range rows {
		v := r[column]
		if !v.IsNum() {
			continue
		}
		f := v.Float()
		for i := 0; i < numBins; i++ {
			if f < edges[i] || f > edges[i+1] {
				continue
			}
			if i < numBins-1 && f == edges[i+1] {
				continue
			}
			r[column] = tabular.Text(fmt.Sprintf("Bin %d: [%.2f - %.2f]", i+1, edges[i], edges[i+1]))
			break
		}
	}
}

// HandleMissingValues either drops rows with any blank or absent cell or
// fills blank cells of one column with the column mean.
func HandleMissingValues(rows []tabular.Row, header []string, method, column string) ([]tabular.Row, error) {
	switch method {
	case MethodRemoveRows:
		out := make([]tabular.Row, 0, len(rows))
	next:
		for _, r := range rows {
			for _, h := range header {
				if r[h].IsBlank() {
					continue next
				}
			}
			out = append(out, r)
		}
		return out, nil
	case MethodFillMean:
		if column == "" {
			return nil, apperr.Invalid("Column must be specified for 'fill_mean' method.")
		}
		values := numericCells(rows, column)
		if len(values) == 0 {
			return rows, nil
		}
		mean := tabular.Num(stats.Mean(values))
		for _, r := range rows {
			if r[column].IsBlank() {
				r[column] = mean
			}
		}
		return rows, nil
	}
	return nil, apperr.Invalid("Unknown missing value method: %s", method)
}
