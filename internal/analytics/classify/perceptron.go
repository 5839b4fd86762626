package classify

import (
	"math/rand"
	"sort"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// Perceptron is a single threshold unit. Weights[0] is the bias.
type Perceptron struct {
	Weights       []float64      `json:"weights"`
	TargetMap     map[string]int `json:"target_map"`
	ErrorPerEpoch []int          `json:"error_per_epoch"`
}

// TrainPerceptron maps the two target labels, in sorted order, to 0 and 1
// and applies the delta rule for the given number of epochs. Blank cells
// read as 0; any other text is rejected.
func TrainPerceptron(rows []tabular.Row, attributes []string, target string, lr float64, epochs int, rng *rand.Rand) (*Perceptron, error) {
	classes := distinct(column(rows, target))
	if len(classes) != 2 {
		return nil, apperr.Invalid("Perceptron requires a binary target attribute.")
	}
	sort.SliceStable(classes, func(i, j int) bool { return tabular.Less(classes[i], classes[j]) })
	classIdx := map[tabular.Value]int{classes[0]: 0, classes[1]: 1}

	inputs := make([][]float64, len(rows))
	for i, r := range rows {
		in := make([]float64, len(attributes))
		for j, a := range attributes {
			v := r[a]
			switch {
			case v.IsNum():
				in[j] = v.Float()
			case v.IsBlank():
			default:
				return nil, apperr.Invalid("Perceptron requires numeric attributes; '%s' has value '%s'", a, v.String())
			}
		}
		inputs[i] = in
	}

	w := make([]float64, len(attributes)+1)
	for i := range w {
		w[i] = rng.Float64() - 0.5
	}
	errs := make([]int, 0, epochs)
	for e := 0; e < epochs; e++ {
		sum := 0
		for i, r := range rows {
			act := w[0]
			for j, x := range inputs[i] {
				act += w[j+1] * x
			}
			pred := 0
			if act >= 0 {
				pred = 1
			}
			diff := classIdx[r[target]] - pred
			sum += diff * diff
			w[0] += lr * float64(diff)
			for j, x := range inputs[i] {
				w[j+1] += lr * float64(diff) * x
			}
		}
		errs = append(errs, sum)
	}

	weights := make([]float64, len(w))
	for i, v := range w {
		weights[i] = stats.Round(v, places)
	}
	return &Perceptron{
		Weights:       weights,
		TargetMap:     map[string]int{classes[0].String(): 0, classes[1].String(): 1},
		ErrorPerEpoch: errs,
	}, nil
}
