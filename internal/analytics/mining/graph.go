package mining

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const (
	defaultDamping = 0.85
	tolerance      = 1e-6
)

type Ranked struct {
	Node  string  `json:"node"`
	Score float64 `json:"score"`
}

// LinkGraph is a directed graph built from a source and a target column.
type LinkGraph struct {
	G     *simple.DirectedGraph
	Names map[int64]string
	Edges int
}

// BuildGraph adds one edge per row. Blank endpoints, self-loops and
// repeated edges are skipped.
func BuildGraph(rows []tabular.Row, source, target string) *LinkGraph {
	lg := &LinkGraph{G: simple.NewDirectedGraph(), Names: make(map[int64]string)}
	ids := make(map[string]int64)
	node := func(name string) simple.Node {
		id, ok := ids[name]
		if !ok {
			id = int64(len(ids))
			ids[name] = id
			lg.Names[id] = name
			lg.G.AddNode(simple.Node(id))
		}
		return simple.Node(id)
	}
	for _, r := range rows {
		s, t := r[source], r[target]
		if s.IsBlank() || t.IsBlank() {
			continue
		}
		from, to := node(s.String()), node(t.String())
		if from == to || lg.G.HasEdgeFromTo(from.ID(), to.ID()) {
			continue
		}
		lg.G.SetEdge(simple.Edge{F: from, T: to})
		lg.Edges++
	}
	return lg
}

func linkAnalysis(t *tabular.Table, task string, p analytics.Params) (analytics.Result, error) {
	source, target := p.String("source_column"), p.String("target_column")
	if source == "" || target == "" {
		return nil, apperr.Invalid("Missing source_column or target_column")
	}
	if err := t.Require(source, target); err != nil {
		return nil, err
	}
	lg := BuildGraph(t.Rows, source, target)
	if lg.Edges == 0 {
		return nil, apperr.Invalid("No edges between %s and %s", source, target)
	}

	if task == TaskPageRank {
		damping, err := p.Float("damping", defaultDamping)
		if err != nil {
			return nil, err
		}
		if damping <= 0 || damping >= 1 {
			return nil, apperr.Invalid("damping must be in (0, 1)")
		}
		scores := lg.PageRank(damping)
		return analytics.Result{
			"task":    "PageRank",
			"damping": damping,
			"nodes":   len(lg.Names),
			"edges":   lg.Edges,
			"scores":  scores,
			"ranking": rank(scores),
		}, nil
	}

	hubs, authorities := lg.HITS()
	return analytics.Result{
		"task":        "HITS",
		"nodes":       len(lg.Names),
		"edges":       lg.Edges,
		"hubs":        hubs,
		"authorities": authorities,
		"ranking":     rank(authorities),
	}, nil
}

func (lg *LinkGraph) PageRank(damping float64) map[string]float64 {
	raw := network.PageRankSparse(lg.G, damping, tolerance)
	out := make(map[string]float64, len(raw))
	for id, s := range raw {
		out[lg.Names[id]] = stats.Round(s, places)
	}
	return out
}

func (lg *LinkGraph) HITS() (hubs, authorities map[string]float64) {
	raw := network.HITS(lg.G, tolerance)
	hubs = make(map[string]float64, len(raw))
	authorities = make(map[string]float64, len(raw))
	for id, ha := range raw {
		hubs[lg.Names[id]] = stats.Round(ha.Hub, places)
		authorities[lg.Names[id]] = stats.Round(ha.Authority, places)
	}
	return hubs, authorities
}

// rank orders nodes by score descending, then by name.
func rank(scores map[string]float64) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for n, s := range scores {
		out = append(out, Ranked{Node: n, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node < out[j].Node
	})
	return out
}
