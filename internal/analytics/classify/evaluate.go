package classify

import (
	"math/rand"
	"sort"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const (
	defaultTestSize = 0.2
	maxSamples      = 10
)

type ConfusionMatrix struct {
	Labels []tabular.Value `json:"labels"`
	Matrix [][]int         `json:"matrix"`
}

// Confusion counts actual (rows) against predicted (columns) labels;
// predictions outside labels are not counted.
func Confusion(pred, actual, labels []tabular.Value) ConfusionMatrix {
	idx := make(map[tabular.Value]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	m := make([][]int, len(labels))
	for i := range m {
		m[i] = make([]int, len(labels))
	}
	for i := range pred {
		a, okA := idx[actual[i]]
		p, okP := idx[pred[i]]
		if okA && okP {
			m[a][p]++
		}
	}
	return ConfusionMatrix{Labels: labels, Matrix: m}
}

// Split shuffles rows with rng and cuts them at (1-testSize).
func Split(rows []tabular.Row, testSize float64, rng *rand.Rand) (train, test []tabular.Row) {
	data := append([]tabular.Row(nil), rows...)
	rng.Shuffle(len(data), func(i, j int) { data[i], data[j] = data[j], data[i] })
	cut := int(float64(len(data)) * (1 - testSize))
	return data[:cut], data[cut:]
}

// Evaluate trains task on a seeded hold-out split and scores it on the rest.
func Evaluate(t *tabular.Table, task string, p analytics.Params) (analytics.Result, error) {
	switch task {
	case TaskDecisionTree, TaskKNN, TaskNaiveBayes, TaskOneR:
	default:
		return nil, apperr.Invalid("Unsupported task: %s", task)
	}
	if len(t.Rows) == 0 {
		return nil, apperr.Invalid("Dataset is empty.")
	}
	target := p.String("target_attribute")
	if target == "" {
		return nil, apperr.Invalid("Target attribute not provided.")
	}
	if err := t.Require(target); err != nil {
		return nil, err
	}
	testSize, err := p.Float("test_size", defaultTestSize)
	if err != nil {
		return nil, err
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, apperr.Invalid("test_size must be between 0 and 1")
	}
	seed, err := p.Seed(1)
	if err != nil {
		return nil, err
	}
	train, test := Split(t.Rows, testSize, rand.New(rand.NewSource(seed)))
	if len(train) == 0 || len(test) == 0 {
		return nil, apperr.Invalid("Not enough rows to split with test_size %.2f", testSize)
	}

	attributes := t.Attributes(target)
	var predict func(tabular.Row) tabular.Value
	switch task {
	case TaskDecisionTree:
		criterion := p.String("split_criterion")
		if criterion == "" {
			criterion = InformationGain
		}
		if err := validCriterion(criterion); err != nil {
			return nil, err
		}
		bins := FitBins(train, attributes)
		tree := BuildTree(bins.ApplyAll(train), attributes, target, criterion)
		predict = func(r tabular.Row) tabular.Value { return tree.Predict(bins.Apply(r)) }
	case TaskKNN:
		k, err := p.Int("k", defaultK)
		if err != nil {
			return nil, err
		}
		if k < 1 {
			return nil, apperr.Invalid("k must be positive")
		}
		predict = func(r tabular.Row) tabular.Value {
			label, _ := KNN(train, r, k, attributes, target)
			return label
		}
	case TaskNaiveBayes:
		predict = TrainNaiveBayes(train, attributes, target).Predict
	case TaskOneR:
		predict = TrainOneR(train, attributes, target).Predict
	}

	preds := make([]tabular.Value, len(test))
	actual := make([]tabular.Value, len(test))
	correct := 0
	for i, r := range test {
		preds[i], actual[i] = predict(r), r[target]
		if preds[i] == actual[i] {
			correct++
		}
	}

	labels := distinct(column(t.Rows, target))
	sort.SliceStable(labels, func(i, j int) bool { return tabular.Less(labels[i], labels[j]) })

	samples := make([][]tabular.Value, 0, maxSamples)
	for i := 0; i < len(preds) && i < maxSamples; i++ {
		samples = append(samples, []tabular.Value{preds[i], actual[i]})
	}
	return analytics.Result{
		"task":               task,
		"accuracy":           stats.Round(float64(correct)/float64(len(test))*100, 2),
		"confusion_matrix":   Confusion(preds, actual, labels),
		"sample_predictions": samples,
	}, nil
}
