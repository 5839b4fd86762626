// Package classify trains and applies the classifiers and the regression
// model served by the classify and evaluate endpoints.
package classify

import (
	"math/rand"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const (
	TaskDecisionTree     = "decision_tree"
	TaskKNN              = "knn"
	TaskNaiveBayes       = "naive_bayes"
	TaskOneR             = "rule_based_1r"
	TaskLinearRegression = "linear_regression"
	TaskPerceptron       = "ann_perceptron"
)

const (
	places              = 4
	defaultK            = 3
	defaultLearningRate = 0.1
	defaultEpochs       = 100
	MaxEpochs           = 100000
)

// Run trains the model named by task on t and, where the task predicts,
// applies it to params.test_instance.
func Run(t *tabular.Table, task string, p analytics.Params) (analytics.Result, error) {
	if task == TaskLinearRegression {
		return linearRegression(t, p)
	}
	switch task {
	case TaskDecisionTree, TaskKNN, TaskNaiveBayes, TaskOneR, TaskPerceptron:
	default:
		return nil, apperr.Invalid("Unknown classification task: %s", task)
	}

	target := p.String("target_attribute")
	if target == "" {
		return nil, apperr.Invalid("Missing target_attribute in params")
	}
	if err := t.Require(target); err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, apperr.Invalid("Dataset is empty.")
	}
	attributes := t.Attributes(target)

	switch task {
	case TaskDecisionTree:
		criterion := p.String("split_criterion")
		if criterion == "" {
			criterion = InformationGain
		}
		if err := validCriterion(criterion); err != nil {
			return nil, err
		}
		bins := FitBins(t.Rows, attributes)
		model := BuildTree(bins.ApplyAll(t.Rows), attributes, target, criterion)
		return analytics.Result{"task": "Decision Tree", "params": p, "model": model}, nil

	case TaskKNN:
		k, err := p.Int("k", defaultK)
		if err != nil {
			return nil, err
		}
		if k < 1 {
			return nil, apperr.Invalid("k must be positive")
		}
		inst, err := testInstance(p, "k-NN")
		if err != nil {
			return nil, err
		}
		pred, neighbors := KNN(t.Rows, inst, k, attributes, target)
		nn := make([][]any, len(neighbors))
		for i, n := range neighbors {
			nn[i] = []any{n.Label, stats.Round(n.Distance, places)}
		}
		return analytics.Result{"task": "k-Nearest Neighbors", "params": p, "prediction": pred, "nearest_neighbors": nn}, nil

	case TaskNaiveBayes:
		inst, err := testInstance(p, "Naive Bayes")
		if err != nil {
			return nil, err
		}
		model := TrainNaiveBayes(t.Rows, attributes, target)
		return analytics.Result{"task": "Naive Bayesian Classifier", "params": p, "prediction": model.Predict(inst)}, nil

	case TaskOneR:
		inst, err := testInstance(p, "1R")
		if err != nil {
			return nil, err
		}
		model := TrainOneR(t.Rows, attributes, target)
		return analytics.Result{"task": "Rule-Based (1R)", "params": p, "model": model, "prediction": model.Predict(inst)}, nil
	}

	lr, err := p.Float("learning_rate", defaultLearningRate)
	if err != nil {
		return nil, err
	}
	epochs, err := p.IntIn("epochs", defaultEpochs, 1, MaxEpochs)
	if err != nil {
		return nil, err
	}
	seed, err := p.Seed(1)
	if err != nil {
		return nil, err
	}
	model, err := TrainPerceptron(t.Rows, attributes, target, lr, epochs, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return analytics.Result{"task": "ANN (Single Perceptron)", "params": p, "model": model}, nil
}

// testInstance decodes params.test_instance, converting numeric strings.
func testInstance(p analytics.Params, name string) (tabular.Row, error) {
	obj := p.Object("test_instance")
	if len(obj) == 0 {
		return nil, apperr.Invalid("Missing test_instance for %s prediction", name)
	}
	r := make(tabular.Row, len(obj))
	for k, v := range obj {
		r[k] = tabular.FromAny(v)
	}
	return r, nil
}

func column(rows []tabular.Row, name string) []tabular.Value {
	out := make([]tabular.Value, len(rows))
	for i, r := range rows {
		out[i] = r[name]
	}
	return out
}

// distinct keeps first-seen order.
func distinct(values []tabular.Value) []tabular.Value {
	seen := make(map[tabular.Value]bool)
	var out []tabular.Value
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func counts(values []tabular.Value) map[tabular.Value]int {
	out := make(map[tabular.Value]int)
	for _, v := range values {
		out[v]++
	}
	return out
}

// majority returns the most frequent value; ties go to the first seen.
func majority(values []tabular.Value) tabular.Value {
	c := counts(values)
	var best tabular.Value
	bestN := 0
	for _, v := range distinct(values) {
		if c[v] > bestN {
			best, bestN = v, c[v]
		}
	}
	return best
}

func filter(rows []tabular.Row, attr string, v tabular.Value) []tabular.Row {
	var out []tabular.Row
	for _, r := range rows {
		if r[attr] == v {
			out = append(out, r)
		}
	}
	return out
}
