package classify

import (
	"fmt"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const treeBins = 4

// bin is an equal-width discretisation of one numeric attribute.
type bin struct {
	lo, width float64
	n         int
}

func (b bin) index(f float64) int {
	i := int((f - b.lo) / b.width)
	if i < 0 {
		return 0
	}
	if i > b.n-1 {
		return b.n - 1
	}
	return i
}

func (b bin) label(f float64) tabular.Value {
	i := b.index(f)
	lo := b.lo + float64(i)*b.width
	return tabular.Text(fmt.Sprintf("[%.2f-%.2f]", lo, lo+b.width))
}

// Bins maps numeric attributes to interval labels. Attributes that are not
// numeric, or hold a single numeric value, pass through unchanged.
type Bins map[string]bin

// FitBins learns treeBins equal-width intervals per numeric attribute.
func FitBins(rows []tabular.Row, attributes []string) Bins {
	out := make(Bins)
	for _, a := range attributes {
		var values []float64
		for _, r := range rows {
			if v := r[a]; v.IsNum() {
				values = append(values, v.Float())
			}
		}
		if len(values) == 0 {
			continue
		}
		lo, hi := stats.MinMax(values)
		if lo == hi {
			continue
		}
		out[a] = bin{lo: lo, width: (hi - lo) / treeBins, n: treeBins}
	}
	return out
}

// Apply returns a copy of r with numeric cells replaced by their interval.
// Values outside the fitted range fall into the nearest end interval.
func (b Bins) Apply(r tabular.Row) tabular.Row {
	out := r.Clone()
	for a, bn := range b {
		if v, ok := out[a]; ok && v.IsNum() {
			out[a] = bn.label(v.Float())
		}
	}
	return out
}

func (b Bins) ApplyAll(rows []tabular.Row) []tabular.Row {
	out := make([]tabular.Row, len(rows))
	for i, r := range rows {
		out[i] = b.Apply(r)
	}
	return out
}
