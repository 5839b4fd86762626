package mining

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

func load(t *testing.T, csv string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.Load(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func TestSupports(t *testing.T) {
	for _, task := range []string{TaskClustering, TaskApriori, TaskPageRank, TaskHITS} {
		assert.True(t, Supports(task), task)
	}
	assert.False(t, Supports("central_tendency"))
}

const blobs = `x,y,label
0,0,a
0,1,a
1,0,a
10,10,b
10,11,b
11,10,b
`

func TestKMeansSeparatesBlobs(t *testing.T) {
	tbl := load(t, blobs)
	res, err := Run(tbl, TaskClustering, analytics.Params{"k": 2, "columns": []any{"x", "y"}})
	require.NoError(t, err)

	a := res["assignments"].([]int)
	require.Len(t, a, 6)
	assert.Equal(t, a[0], a[1])
	assert.Equal(t, a[0], a[2])
	assert.Equal(t, a[3], a[4])
	assert.Equal(t, a[3], a[5])
	assert.NotEqual(t, a[0], a[3])
	assert.Equal(t, []int{3, 3}, res["cluster_sizes"])
	assert.InDelta(t, 8.0/3, res["cost"].(float64), 1e-3)
	assert.Contains(t, res, "centroids")
}

func TestKMedoidPicksMembers(t *testing.T) {
	points := Points(load(t, blobs).Rows, []string{"x", "y"})
	c := KMedoid(points, 2, 100, rand.New(rand.NewSource(7)))
	for _, m := range c.Centers {
		assert.Contains(t, points, m)
	}
	assert.ElementsMatch(t, []int{3, 3}, c.Sizes)
}

func TestClusteringDefaultsAndErrors(t *testing.T) {
	tbl := load(t, blobs)

	res, err := Run(tbl, TaskClustering, analytics.Params{"k": "2", "algorithm": AlgorithmKMedoid})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, res["columns"])
	assert.Contains(t, res, "medoids")

	_, err = Run(tbl, TaskClustering, analytics.Params{"k": 7})
	assert.EqualError(t, err, "k must be between 1 and 6")

	_, err = Run(tbl, TaskClustering, analytics.Params{"algorithm": "dbscan"})
	assert.EqualError(t, err, "Unknown clustering algorithm: dbscan")
}

func TestSameSeedSameClusters(t *testing.T) {
	points := Points(load(t, blobs).Rows, []string{"x", "y"})
	a := KMeans(points, 3, 100, rand.New(rand.NewSource(3)))
	b := KMeans(points, 3, 100, rand.New(rand.NewSource(3)))
	assert.Equal(t, a, b)
}

const baskets = `bread,milk,eggs
yes,yes,
yes,yes,yes
yes,,yes
yes,yes,
,yes,
`

func TestApriori(t *testing.T) {
	tbl := load(t, baskets)
	res, err := Run(tbl, TaskApriori, analytics.Params{"min_support": 0.4, "min_confidence": 0.7})
	require.NoError(t, err)

	sets := res["frequent_itemsets"].([]Itemset)
	assert.Equal(t, []Itemset{
		{Items: []string{"bread=yes"}, Support: 0.8},
		{Items: []string{"eggs=yes"}, Support: 0.4},
		{Items: []string{"milk=yes"}, Support: 0.8},
		{Items: []string{"bread=yes", "eggs=yes"}, Support: 0.4},
		{Items: []string{"bread=yes", "milk=yes"}, Support: 0.6},
	}, sets)

	rules := res["rules"].([]Rule)
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"eggs=yes"}, rules[0].Antecedent)
	assert.Equal(t, []string{"bread=yes"}, rules[0].Consequent)
	assert.Equal(t, 1.0, rules[0].Confidence)
	assert.Equal(t, 1.25, rules[0].Lift)
	assert.Equal(t, 0.75, rules[1].Confidence)
	assert.Equal(t, 0.75, rules[2].Confidence)
}

func TestAprioriMaxLenAndBounds(t *testing.T) {
	tbl := load(t, baskets)
	res, err := Run(tbl, TaskApriori, analytics.Params{"min_support": 0.4, "max_len": 1})
	require.NoError(t, err)
	assert.Len(t, res["frequent_itemsets"].([]Itemset), 3)
	assert.Empty(t, res["rules"])

	_, err = Run(tbl, TaskApriori, analytics.Params{"min_support": 0})
	assert.Error(t, err)
}

const links = `from,to
a,b
b,c
c,a
d,c
d,c
d,d
`

func TestPageRank(t *testing.T) {
	tbl := load(t, links)
	_, err := Run(tbl, TaskPageRank, analytics.Params{"source_column": "from"})
	assert.EqualError(t, err, "Missing source_column or target_column")

	res, err := Run(tbl, TaskPageRank, analytics.Params{"source_column": "from", "target_column": "to"})
	require.NoError(t, err)
	assert.Equal(t, 4, res["edges"])
	assert.Equal(t, 4, res["nodes"])

	ranking := res["ranking"].([]Ranked)
	require.Len(t, ranking, 4)
	assert.Equal(t, "c", ranking[0].Node)
	assert.Equal(t, "d", ranking[3].Node)
}

func TestHITS(t *testing.T) {
	tbl := load(t, "from,to\nh,x\nh,y\ng,x\n")
	res, err := Run(tbl, TaskHITS, analytics.Params{"source_column": "from", "target_column": "to"})
	require.NoError(t, err)

	auth := res["authorities"].(map[string]float64)
	hubs := res["hubs"].(map[string]float64)
	assert.Greater(t, auth["x"], auth["y"])
	assert.Greater(t, hubs["h"], hubs["g"])
	assert.Equal(t, 0.0, auth["h"])
	assert.Equal(t, "x", res["ranking"].([]Ranked)[0].Node)
}

func TestMaxIterationsBounds(t *testing.T) {
	tbl := load(t, blobs)
	for _, n := range []any{0, 1e13, MaxIterations + 1} {
		_, err := Run(tbl, TaskClustering, analytics.Params{"k": 2, "max_iterations": n})
		assert.EqualError(t, err, "max_iterations must be between 1 and 100000", "%v", n)
	}
	_, err := Run(tbl, TaskClustering, analytics.Params{"k": 2, "max_iterations": MaxIterations})
	assert.NoError(t, err)
}
