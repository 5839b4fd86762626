package preprocess

import (
	"sort"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// ChiSquareResult holds Pearson's statistic for two categorical columns.
// Table is a header row ["", c2...] followed by one [c1, counts...] row
// per category of the first column.
type ChiSquareResult struct {
	Statistic        float64
	DegreesOfFreedom int
	Table            [][]any
}

func categories(rows []tabular.Row, column string) []tabular.Value {
	seen := make(map[tabular.Value]bool)
	var out []tabular.Value
	for _, r := range rows {
		v := r[column]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return tabular.Less(out[i], out[j]) })
	return out
}

func ChiSquare(rows []tabular.Row, col1, col2 string) ChiSquareResult {
	cats1, cats2 := categories(rows, col1), categories(rows, col2)
	idx1 := make(map[tabular.Value]int, len(cats1))
	for i, c := range cats1 {
		idx1[c] = i
	}
	idx2 := make(map[tabular.Value]int, len(cats2))
	for j, c := range cats2 {
		idx2[c] = j
	}

	observed := make([][]int, len(cats1))
	for i := range observed {
		observed[i] = make([]int, len(cats2))
	}
	for _, r := range rows {
		observed[idx1[r[col1]]][idx2[r[col2]]]++
	}

	rowTotals := make([]int, len(cats1))
	colTotals := make([]int, len(cats2))
	grand := 0
	for i := range cats1 {
		for j := range cats2 {
			rowTotals[i] += observed[i][j]
			colTotals[j] += observed[i][j]
			grand += observed[i][j]
		}
	}
	if grand == 0 {
		return ChiSquareResult{Table: [][]any{}}
	}

	chi := 0.0
	for i := range cats1 {
		for j := range cats2 {
			expected := float64(rowTotals[i]*colTotals[j]) / float64(grand)
			if expected == 0 {
				continue
			}
			d := float64(observed[i][j]) - expected
			chi += d * d / expected
		}
	}

	table := make([][]any, 0, len(cats1)+1)
	head := []any{""}
	for _, c := range cats2 {
		head = append(head, c)
	}
	table = append(table, head)
	for i, c := range cats1 {
		line := []any{c}
		for j := range cats2 {
			line = append(line, observed[i][j])
		}
		table = append(table, line)
	}
	return ChiSquareResult{
		Statistic:        stats.Round(chi, places),
		DegreesOfFreedom: (len(cats1) - 1) * (len(cats2) - 1),
		Table:            table,
	}
}
