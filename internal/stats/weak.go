package stats

import (
	"sort"

	"github.com/verte-zerg/anzan/internal/model"
)

// RankOperations orders aggregates by lowest accuracy, slower first on ties.
func RankOperations(aggs []model.OperationAggregate) []model.OperationAggregate {
	ranked := make([]model.OperationAggregate, len(aggs))
	copy(ranked, aggs)
	sort.SliceStable(ranked, func(i, j int) bool {
		ai := OperationAccuracy(ranked[i])
		aj := OperationAccuracy(ranked[j])
		if ai == aj {
			ti := OperationAverageSeconds(ranked[i])
			tj := OperationAverageSeconds(ranked[j])
			if ti == tj {
				return ranked[i].Operation < ranked[j].Operation
			}
			return ti > tj
		}
		return ai < aj
	})
	return ranked
}

// WeakestOperation returns the lowest-accuracy operation with at least one answer.
func WeakestOperation(aggs []model.OperationAggregate) (model.Operation, bool) {
	for _, agg := range RankOperations(aggs) {
		if agg.Correct+agg.Incorrect > 0 {
			return agg.Operation, true
		}
	}
	return "", false
}

// OperationAccuracy returns the correct fraction in [0,1]; unanswered counts as 1.
func OperationAccuracy(agg model.OperationAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}

// OperationAverageSeconds returns the mean answer time in seconds.
func OperationAverageSeconds(agg model.OperationAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 0
	}
	return float64(agg.ElapsedSumMs) / float64(total) / 1000.0
}
