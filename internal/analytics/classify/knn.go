package classify

import (
	"math"
	"sort"

	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

type Neighbor struct {
	Label    tabular.Value
	Distance float64
}

// distance is Euclidean over the attributes numeric in both rows.
func distance(a, b tabular.Row, attributes []string) float64 {
	sum := 0.0
	for _, attr := range attributes {
		x, y := a[attr], b[attr]
		if x.IsNum() && y.IsNum() {
			d := x.Float() - y.Float()
			sum += d * d
		}
	}
	return math.Sqrt(sum)
}

// KNN votes among the k closest training rows. Equal distances keep
// training order.
func KNN(train []tabular.Row, inst tabular.Row, k int, attributes []string, target string) (tabular.Value, []Neighbor) {
	all := make([]Neighbor, len(train))
	for i, r := range train {
		all[i] = Neighbor{Label: r[target], Distance: distance(r, inst, attributes)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Distance < all[j].Distance })
	if k > len(all) {
		k = len(all)
	}
	nearest := all[:k]
	labels := make([]tabular.Value, k)
	for i, n := range nearest {
		labels[i] = n.Label
	}
	return majority(labels), nearest
}
