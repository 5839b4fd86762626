package classify

import (
	"math"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// minDensity stands in for a zero likelihood so log scores stay finite.
const minDensity = 1e-9

type gaussian struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

func (g gaussian) pdf(x float64) float64 {
	if g.StdDev == 0 {
		if x == g.Mean {
			return 1
		}
		return minDensity
	}
	z := (x - g.Mean) / g.StdDev
	d := math.Exp(-z*z/2) / (math.Sqrt(2*math.Pi) * g.StdDev)
	return math.Max(d, minDensity)
}

// NaiveBayes is a Gaussian model over numeric attributes.
type NaiveBayes struct {
	Classes      []tabular.Value
	Priors       map[tabular.Value]float64
	Conditionals map[string]map[tabular.Value]gaussian
	attributes   []string
}

func TrainNaiveBayes(rows []tabular.Row, attributes []string, target string) *NaiveBayes {
	labels := column(rows, target)
	m := &NaiveBayes{
		Classes:      distinct(labels),
		Priors:       make(map[tabular.Value]float64),
		Conditionals: make(map[string]map[tabular.Value]gaussian, len(attributes)),
		attributes:   attributes,
	}
	c := counts(labels)
	for _, cls := range m.Classes {
		m.Priors[cls] = float64(c[cls]) / float64(len(rows))
	}
	for _, a := range attributes {
		m.Conditionals[a] = make(map[tabular.Value]gaussian, len(m.Classes))
		for _, cls := range m.Classes {
			var values []float64
			for _, r := range rows {
				if r[target] == cls && r[a].IsNum() {
					values = append(values, r[a].Float())
				}
			}
			g := gaussian{}
			if len(values) > 0 {
				g = gaussian{Mean: stats.Mean(values), StdDev: stats.PopStdDev(values)}
			}
			m.Conditionals[a][cls] = g
		}
	}
	return m
}

// Predict returns the class with the highest log posterior. Only numeric
// attributes of inst contribute.
func (m *NaiveBayes) Predict(inst tabular.Row) tabular.Value {
	var best tabular.Value
	bestScore := math.Inf(-1)
	for _, cls := range m.Classes {
		s := math.Log(m.Priors[cls])
		for _, a := range m.attributes {
			if v := inst[a]; v.IsNum() {
				s += math.Log(m.Conditionals[a][cls].pdf(v.Float()))
			}
		}
		if s > bestScore {
			best, bestScore = cls, s
		}
	}
	return best
}
