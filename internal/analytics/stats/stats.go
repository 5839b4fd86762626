// Package stats holds the descriptive statistics shared by the analysis tasks.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	mid := n / 2
	if n%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// Mode returns every value sharing the highest count, in first-seen order.
func Mode(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}
	counts := make(map[float64]int, len(x))
	order := make([]float64, 0, len(x))
	best := 0
	for _, v := range x {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
		if counts[v] > best {
			best = counts[v]
		}
	}
	out := make([]float64, 0, 1)
	for _, v := range order {
		if counts[v] == best {
			out = append(out, v)
		}
	}
	return out
}

// Variance is the sample variance; fewer than two values yield 0.
func Variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.Variance(x, nil)
}

func StdDev(x []float64) float64 { return math.Sqrt(Variance(x)) }

// PopStdDev divides by n rather than n-1.
func PopStdDev(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return math.Sqrt(v)
}

// Covariance is the sample covariance; mismatched or short input yields 0.
func Covariance(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Correlation is Pearson's r, or 0 when either side is constant.
func Correlation(x, y []float64) float64 {
	sx, sy := StdDev(x), StdDev(y)
	if sx == 0 || sy == 0 {
		return 0
	}
	return Covariance(x, y) / (sx * sy)
}

// MinMax assumes a non-empty slice.
func MinMax(x []float64) (float64, float64) {
	return floats.Min(x), floats.Max(x)
}

// Euclidean distance between equally sized vectors.
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Round rounds half to even at the given number of decimals.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}
