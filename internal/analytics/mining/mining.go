// Package mining implements the clustering, association-rule and link
// analysis tasks served through the process endpoint.
package mining

import (
	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
)

const (
	TaskClustering = "clustering"
	TaskApriori    = "apriori"
	TaskPageRank   = "pagerank"
	TaskHITS       = "hits"
)

const places = 4

// Supports reports whether task is handled by Run.
func Supports(task string) bool {
	switch task {
	case TaskClustering, TaskApriori, TaskPageRank, TaskHITS:
		return true
	}
	return false
}

// Run executes one mining task against t without modifying it.
func Run(t *tabular.Table, task string, p analytics.Params) (analytics.Result, error) {
	switch task {
	case TaskClustering:
		return clustering(t, p)
	case TaskApriori:
		return apriori(t, p)
	case TaskPageRank, TaskHITS:
		return linkAnalysis(t, task, p)
	}
	return nil, apperr.Invalid("Unknown task: %s", task)
}
