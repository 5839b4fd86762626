package preprocess

import (
	"fmt"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// Chart types of the visualization task.
const (
	ChartHistogram = "histogram"
	ChartScatter   = "scatter_plot"
)

type HistogramData struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Histogram bins the numeric cells of column into equal-width buckets; the
// maximum always lands in the last bucket.
func Histogram(rows []tabular.Row, column string, numBins int) HistogramData {
	values := numericCells(rows, column)
	if len(values) == 0 || numBins <= 0 {
		return HistogramData{Labels: []string{}, Counts: []int{}}
	}
	lo, hi := stats.MinMax(values)
	if lo == hi {
		return HistogramData{Labels: []string{fmt.Sprintf("%.2f", lo)}, Counts: []int{len(values)}}
	}
	width := (hi - lo) / float64(numBins)
	labels := make([]string, numBins)
	for i := range labels {
		labels[i] = fmt.Sprintf("[%.2f-%.2f]", lo+float64(i)*width, lo+float64(i+1)*width)
	}
	counts := make([]int, numBins)
	for _, v := range values {
		i := int((v - lo) / width)
		if i > numBins-1 || v == hi {
			i = numBins - 1
		}
		counts[i]++
	}
	return HistogramData{Labels: labels, Counts: counts}
}

// Scatter keeps rows numeric in both columns.
func Scatter(rows []tabular.Row, col1, col2 string) []Point {
	out := make([]Point, 0, len(rows))
	for _, r := range rows {
		x, y := r[col1], r[col2]
		if x.IsNum() && y.IsNum() {
			out = append(out, Point{X: x.Float(), Y: y.Float()})
		}
	}
	return out
}
