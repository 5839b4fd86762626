package mining

import (
	"math"
	"math/rand"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/stats"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const (
	AlgorithmKMeans  = "kmeans"
	AlgorithmKMedoid = "kmedoid"

	defaultK             = 3
	defaultMaxIterations = 100
	MaxIterations        = 100000
)

// Clusters is the outcome of a partitioning run. Centers are centroids for
// k-means and the medoid points for k-medoid.
type Clusters struct {
	Centers     [][]float64
	Assignments []int
	Sizes       []int
	Cost        float64
	Iterations  int
}

func clustering(t *tabular.Table, p analytics.Params) (analytics.Result, error) {
	algorithm := p.String("algorithm")
	if algorithm == "" {
		algorithm = AlgorithmKMeans
	}
	if algorithm != AlgorithmKMeans && algorithm != AlgorithmKMedoid {
		return nil, apperr.Invalid("Unknown clustering algorithm: %s", algorithm)
	}
	columns := p.Strings("columns")
	if len(columns) == 0 {
		columns = numericColumns(t)
	}
	if len(columns) == 0 {
		return nil, apperr.Invalid("No numeric columns to cluster")
	}
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	k, err := p.Int("k", defaultK)
	if err != nil {
		return nil, err
	}
	maxIter, err := p.IntIn("max_iterations", defaultMaxIterations, 1, MaxIterations)
	if err != nil {
		return nil, err
	}
	seed, err := p.Seed(1)
	if err != nil {
		return nil, err
	}

	points := Points(t.Rows, columns)
	if k < 1 || k > len(points) {
		return nil, apperr.Invalid("k must be between 1 and %d", len(points))
	}
	rng := rand.New(rand.NewSource(seed))

	var c Clusters
	centerKey := "centroids"
	if algorithm == AlgorithmKMeans {
		c = KMeans(points, k, maxIter, rng)
	} else {
		c = KMedoid(points, k, maxIter, rng)
		centerKey = "medoids"
	}
	centers := make([][]float64, len(c.Centers))
	for i, ctr := range c.Centers {
		centers[i] = roundAll(ctr)
	}
	return analytics.Result{
		"task":          "Clustering",
		"algorithm":     algorithm,
		"k":             k,
		"columns":       columns,
		centerKey:       centers,
		"assignments":   c.Assignments,
		"cluster_sizes": c.Sizes,
		"cost":          stats.Round(c.Cost, places),
		"iterations":    c.Iterations,
	}, nil
}

func numericColumns(t *tabular.Table) []string {
	var out []string
	for _, h := range t.Header {
		if len(t.Numeric(h)) > 0 {
			out = append(out, h)
		}
	}
	return out
}

// Points keeps rows numeric in every column.
func Points(rows []tabular.Row, columns []string) [][]float64 {
	out := make([][]float64, 0, len(rows))
next:
	for _, r := range rows {
		pt := make([]float64, len(columns))
		for i, c := range columns {
			v := r[c]
			if !v.IsNum() {
				continue next
			}
			pt[i] = v.Float()
		}
		out = append(out, pt)
	}
	return out
}

func roundAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = stats.Round(v, places)
	}
	return out
}

// forgy picks k distinct points as the initial centers.
func forgy(points [][]float64, k int, rng *rand.Rand) []int {
	return rng.Perm(len(points))[:k]
}

// nearest returns the index of the closest center; ties go to the lowest index.
func nearest(pt []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := stats.Euclidean(pt, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func assign(points, centers [][]float64, assignments []int) bool {
	changed := false
	for i, pt := range points {
		j, _ := nearest(pt, centers)
		if assignments[i] != j {
			assignments[i] = j
			changed = true
		}
	}
	return changed
}

func sizes(assignments []int, k int) []int {
	out := make([]int, k)
	for _, a := range assignments {
		out[a]++
	}
	return out
}

func newAssignments(n int) []int {
	a := make([]int, n)
	for i := range a {
		a[i] = -1
	}
	return a
}

// KMeans runs Lloyd's algorithm. An emptied cluster keeps its last centroid.
func KMeans(points [][]float64, k, maxIter int, rng *rand.Rand) Clusters {
	dim := len(points[0])
	centers := make([][]float64, k)
	for i, idx := range forgy(points, k, rng) {
		centers[i] = append([]float64(nil), points[idx]...)
	}
	assignments := newAssignments(len(points))

	iter := 0
	for iter < maxIter {
		iter++
		if !assign(points, centers, assignments) && iter > 1 {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, pt := range points {
			a := assignments[i]
			counts[a]++
			for d, v := range pt {
				sums[a][d] += v
			}
		}
		for i := range centers {
			if counts[i] == 0 {
				continue
			}
			for d := range centers[i] {
				centers[i][d] = sums[i][d] / float64(counts[i])
			}
		}
	}

	cost := 0.0
	for i, pt := range points {
		d := stats.Euclidean(pt, centers[assignments[i]])
		cost += d * d
	}
	return Clusters{Centers: centers, Assignments: assignments, Sizes: sizes(assignments, k), Cost: cost, Iterations: iter}
}

// KMedoid alternates assignment with choosing, per cluster, the member that
// minimises the summed distance to the rest of the cluster.
func KMedoid(points [][]float64, k, maxIter int, rng *rand.Rand) Clusters {
	medoids := forgy(points, k, rng)
	centers := make([][]float64, k)
	setCenters := func() {
		for i, m := range medoids {
			centers[i] = points[m]
		}
	}
	setCenters()
	assignments := newAssignments(len(points))

	iter := 0
	for iter < maxIter {
		iter++
		assign(points, centers, assignments)
		moved := false
		for c := range medoids {
			best, bestCost := medoids[c], math.Inf(1)
			for i := range points {
				if assignments[i] != c {
					continue
				}
				sum := 0.0
				for j := range points {
					if assignments[j] == c {
						sum += stats.Euclidean(points[i], points[j])
					}
				}
				if sum < bestCost {
					best, bestCost = i, sum
				}
			}
			if best != medoids[c] {
				medoids[c] = best
				moved = true
			}
		}
		setCenters()
		if !moved {
			break
		}
	}
	assign(points, centers, assignments)

	cost := 0.0
	for i, pt := range points {
		cost += stats.Euclidean(pt, centers[assignments[i]])
	}
	out := make([][]float64, k)
	for i, c := range centers {
		out[i] = append([]float64(nil), c...)
	}
	return Clusters{Centers: out, Assignments: assignments, Sizes: sizes(assignments, k), Cost: cost, Iterations: iter}
}
