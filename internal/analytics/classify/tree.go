package classify

import (
	"encoding/json"
	"math"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

// Split criteria for the decision tree.
const (
	InformationGain = "information_gain"
	GainRatio       = "gain_ratio"
	GiniIndex       = "gini_index"
)

// Node is either a leaf carrying Label or a split on Attribute.
// Majority is the most frequent label of the rows that reached the node.
type Node struct {
	Attribute string
	Branches  map[tabular.Value]*Node
	Label     tabular.Value
	Majority  tabular.Value
}

func (n *Node) Leaf() bool { return n.Branches == nil }

// MarshalJSON renders {attribute: {value: subtree}} with leaves as bare labels.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.Leaf() {
		return json.Marshal(n.Label)
	}
	branches := make(map[string]*Node, len(n.Branches))
	for v, child := range n.Branches {
		branches[v.String()] = child
	}
	return json.Marshal(map[string]map[string]*Node{n.Attribute: branches})
}

// Predict walks the tree; an unseen or missing value stops at the majority
// label of the node where the walk ended.
func (n *Node) Predict(r tabular.Row) tabular.Value {
	for !n.Leaf() {
		v, ok := r[n.Attribute]
		if !ok {
			return n.Majority
		}
		child, ok := n.Branches[v]
		if !ok {
			return n.Majority
		}
		n = child
	}
	return n.Label
}

func validCriterion(c string) error {
	switch c {
	case InformationGain, GainRatio, GiniIndex:
		return nil
	}
	return apperr.Invalid("Unknown split_criterion: %s", c)
}

// BuildTree grows an ID3-style tree over already discretised rows.
func BuildTree(rows []tabular.Row, attributes []string, target, criterion string) *Node {
	labels := column(rows, target)
	maj := majority(labels)
	if len(distinct(labels)) == 1 {
		return &Node{Label: labels[0], Majority: maj}
	}
	if len(attributes) == 0 {
		return &Node{Label: maj, Majority: maj}
	}

	best, bestScore := "", math.Inf(-1)
	for _, a := range attributes {
		if s := score(rows, a, target, criterion); s > bestScore {
			best, bestScore = a, s
		}
	}

	remaining := make([]string, 0, len(attributes)-1)
	for _, a := range attributes {
		if a != best {
			remaining = append(remaining, a)
		}
	}
	node := &Node{Attribute: best, Branches: make(map[tabular.Value]*Node), Majority: maj}
	for _, v := range distinct(column(rows, best)) {
		node.Branches[v] = BuildTree(filter(rows, best, v), remaining, target, criterion)
	}
	return node
}

func score(rows []tabular.Row, attr, target, criterion string) float64 {
	switch criterion {
	case GiniIndex:
		return gain(rows, attr, target, gini)
	case GainRatio:
		split := entropy(column(rows, attr))
		if split == 0 {
			return 0
		}
		return gain(rows, attr, target, entropy) / split
	}
	return gain(rows, attr, target, entropy)
}

// gain is the impurity reduction from splitting rows on attr.
func gain(rows []tabular.Row, attr, target string, impurity func([]tabular.Value) float64) float64 {
	total := impurity(column(rows, target))
	weighted := 0.0
	for _, v := range distinct(column(rows, attr)) {
		subset := filter(rows, attr, v)
		weighted += float64(len(subset)) / float64(len(rows)) * impurity(column(subset, target))
	}
	return total - weighted
}

func entropy(values []tabular.Value) float64 {
	if len(values) == 0 {
		return 0
	}
	h := 0.0
	n := float64(len(values))
	for _, c := range counts(values) {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func gini(values []tabular.Value) float64 {
	if len(values) == 0 {
		return 0
	}
	g := 1.0
	n := float64(len(values))
	for _, c := range counts(values) {
		p := float64(c) / n
		g -= p * p
	}
	return g
}
