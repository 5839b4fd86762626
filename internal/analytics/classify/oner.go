package classify

import (
	"math"

	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// Labels returned when a 1R model cannot decide.
var (
	UnknownNoAttribute = tabular.Text("Unknown (Model has no attribute)")
	UnknownMissing     = tabular.Text("Unknown (Attribute missing in test instance)")
	UnknownNoRule      = tabular.Text("Unknown (No rule for this value)")
)

// OneR is a single-attribute rule set. Rules are keyed by the printed
// attribute value, binned for numeric attributes.
type OneR struct {
	Attribute string                   `json:"attribute"`
	Rules     map[string]tabular.Value `json:"rules"`
	ErrorRate float64                  `json:"error_rate"`
	bins      Bins
}

// TrainOneR picks the attribute whose value→majority-label rules make the
// fewest training errors; the first attribute wins a tie.
func TrainOneR(rows []tabular.Row, attributes []string, target string) *OneR {
	bins := FitBins(rows, attributes)
	binned := bins.ApplyAll(rows)

	best := &OneR{Rules: map[string]tabular.Value{}, bins: bins}
	minErr := math.MaxInt
	for _, a := range attributes {
		byValue := make(map[tabular.Value][]tabular.Value)
		var order []tabular.Value
		for _, r := range binned {
			v := r[a]
			if _, ok := byValue[v]; !ok {
				order = append(order, v)
			}
			byValue[v] = append(byValue[v], r[target])
		}
		rules := make(map[tabular.Value]tabular.Value, len(order))
		for _, v := range order {
			rules[v] = majority(byValue[v])
		}
		errs := 0
		for _, r := range binned {
			if rules[r[a]] != r[target] {
				errs++
			}
		}
		if errs < minErr {
			minErr = errs
			best.Attribute = a
			best.Rules = make(map[string]tabular.Value, len(rules))
			for v, label := range rules {
				best.Rules[v.String()] = label
			}
		}
	}
	if best.Attribute != "" && len(rows) > 0 {
		best.ErrorRate = stats.Round(float64(minErr)/float64(len(rows)), places)
	}
	return best
}

func (m *OneR) Predict(inst tabular.Row) tabular.Value {
	if m.Attribute == "" {
		return UnknownNoAttribute
	}
	v, ok := inst[m.Attribute]
	if !ok {
		return UnknownMissing
	}
	v = m.bins.Apply(tabular.Row{m.Attribute: v})[m.Attribute]
	if label, ok := m.Rules[v.String()]; ok {
		return label
	}
	return UnknownNoRule
}
