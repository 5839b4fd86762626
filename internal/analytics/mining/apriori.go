package mining

import (
	"sort"
	"strings"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const (
	defaultMinSupport    = 0.1
	defaultMinConfidence = 0.6
)

type Itemset struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
}

type Rule struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
}

func apriori(t *tabular.Table, p analytics.Params) (analytics.Result, error) {
	columns := p.Strings("columns")
	if len(columns) == 0 {
		columns = t.Header
	}
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	minSupport, err := p.Float("min_support", defaultMinSupport)
	if err != nil {
		return nil, err
	}
	if minSupport <= 0 || minSupport > 1 {
		return nil, apperr.Invalid("min_support must be in (0, 1]")
	}
	minConfidence, err := p.Float("min_confidence", defaultMinConfidence)
	if err != nil {
		return nil, err
	}
	if minConfidence < 0 || minConfidence > 1 {
		return nil, apperr.Invalid("min_confidence must be in [0, 1]")
	}
	maxLen, err := p.Int("max_len", len(columns))
	if err != nil {
		return nil, err
	}
	if maxLen < 1 {
		return nil, apperr.Invalid("max_len must be positive")
	}

	txs := Transactions(t.Rows, columns)
	if len(txs) == 0 {
		return nil, apperr.Invalid("No transactions")
	}
	sets := FrequentItemsets(txs, minSupport, maxLen)
	rules := AssociationRules(sets, minConfidence)

	for i := range sets {
		sets[i].Support = stats.Round(sets[i].Support, places)
	}
	return analytics.Result{
		"task":              "Apriori",
		"columns":           columns,
		"transactions":      len(txs),
		"min_support":       minSupport,
		"min_confidence":    minConfidence,
		"frequent_itemsets": sets,
		"rules":             rules,
	}, nil
}

// Transactions turns each row into its sorted set of column=value items,
// skipping blank cells.
func Transactions(rows []tabular.Row, columns []string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		tx := make([]string, 0, len(columns))
		for _, c := range columns {
			v := r[c]
			if v.IsBlank() {
				continue
			}
			tx = append(tx, c+"="+strings.TrimSpace(v.String()))
		}
		sort.Strings(tx)
		out = append(out, tx)
	}
	return out
}

func key(items []string) string { return strings.Join(items, "\x00") }

func contains(tx map[string]bool, items []string) bool {
	for _, it := range items {
		if !tx[it] {
			return false
		}
	}
	return true
}

// FrequentItemsets runs level-wise Apriori. The result is ordered by size,
// then lexicographically by items.
func FrequentItemsets(txs [][]string, minSupport float64, maxLen int) []Itemset {
	n := float64(len(txs))
	sets := make([]map[string]bool, len(txs))
	counts := make(map[string]int)
	for i, tx := range txs {
		sets[i] = make(map[string]bool, len(tx))
		for _, it := range tx {
			if !sets[i][it] {
				sets[i][it] = true
				counts[it]++
			}
		}
	}

	var level [][]string
	for it, c := range counts {
		if float64(c)/n >= minSupport {
			level = append(level, []string{it})
		}
	}
	sortItemsets(level)

	var out []Itemset
	frequent := make(map[string]bool)
	for size := 1; len(level) > 0; size++ {
		for _, items := range level {
			frequent[key(items)] = true
			c := 0
			for _, tx := range sets {
				if contains(tx, items) {
					c++
				}
			}
			out = append(out, Itemset{Items: items, Support: float64(c) / n})
		}
		if size >= maxLen {
			break
		}
		level = nextLevel(level, frequent, sets, n, minSupport)
	}
	if out == nil {
		out = []Itemset{}
	}
	return out
}

// nextLevel joins itemsets sharing all but their last item, prunes
// candidates with an infrequent subset and keeps those meeting minSupport.
func nextLevel(level [][]string, frequent map[string]bool, sets []map[string]bool, n, minSupport float64) [][]string {
	var next [][]string
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			a, b := level[i], level[j]
			k := len(a)
			if key(a[:k-1]) != key(b[:k-1]) {
				continue
			}
			cand := append(append([]string(nil), a...), b[k-1])
			sort.Strings(cand)
			if !subsetsFrequent(cand, frequent) {
				continue
			}
			c := 0
			for _, tx := range sets {
				if contains(tx, cand) {
					c++
				}
			}
			if float64(c)/n >= minSupport {
				next = append(next, cand)
			}
		}
	}
	sortItemsets(next)
	return next
}

func subsetsFrequent(cand []string, frequent map[string]bool) bool {
	sub := make([]string, 0, len(cand)-1)
	for skip := range cand {
		sub = sub[:0]
		for i, it := range cand {
			if i != skip {
				sub = append(sub, it)
			}
		}
		if !frequent[key(sub)] {
			return false
		}
	}
	return true
}

func sortItemsets(sets [][]string) {
	sort.Slice(sets, func(i, j int) bool { return key(sets[i]) < key(sets[j]) })
}

// AssociationRules derives every rule X→Y from frequent itemsets of size two
// or more. Rules are ordered by confidence, then lift, descending.
func AssociationRules(sets []Itemset, minConfidence float64) []Rule {
	support := make(map[string]float64, len(sets))
	for _, s := range sets {
		support[key(s.Items)] = s.Support
	}
	rules := []Rule{}
	for _, s := range sets {
		n := len(s.Items)
		if n < 2 {
			continue
		}
		for mask := 1; mask < (1<<n)-1; mask++ {
			var lhs, rhs []string
			for i, it := range s.Items {
				if mask&(1<<i) != 0 {
					lhs = append(lhs, it)
				} else {
					rhs = append(rhs, it)
				}
			}
			supLHS, supRHS := support[key(lhs)], support[key(rhs)]
			if supLHS == 0 || supRHS == 0 {
				continue
			}
			conf := s.Support / supLHS
			if conf < minConfidence {
				continue
			}
			rules = append(rules, Rule{
				Antecedent: lhs,
				Consequent: rhs,
				Support:    stats.Round(s.Support, places),
				Confidence: stats.Round(conf, places),
				Lift:       stats.Round(conf/supRHS, places),
			})
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Lift != b.Lift {
			return a.Lift > b.Lift
		}
		if ka, kb := key(a.Antecedent), key(b.Antecedent); ka != kb {
			return ka < kb
		}
		return key(a.Consequent) < key(b.Consequent)
	})
	return rules
}
