package algo

import (
	"sort"

	"github.com/huangsam/cpkwatch/schema"
)

// RankTestRisks sorts results by risk score in descending order and returns
// the top 'limit' results. Ties are broken by level severity then test name.
// If limit is not positive or larger than the number of results, all results
// are returned in sorted order.
func RankTestRisks(results []schema.TestRiskResult, limit int) []schema.TestRiskResult {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Assessment, results[j].Assessment
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Level.Rank() != b.Level.Rank() {
			return a.Level.Rank() > b.Level.Rank()
		}
		return results[i].TestName < results[j].TestName
	})
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
