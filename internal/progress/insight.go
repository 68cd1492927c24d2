package progress

import (
	"fmt"

	"github.com/tugapp/tug/internal/domain"
)

// Fixed insight sentences.
const (
	InsightAddValues = "Add values to see how your time aligns with what matters to you."
	InsightNoData    = "Log some activities to see insights about your values."
)

// GenerateInsight summarizes alignment in one sentence. It names the most
// and least aligned values (smallest and largest difference, first seen
// wins ties) and whether the least aligned one gets less or more time than
// the community average. The output depends only on the inputs.
func GenerateInsight(values []domain.Value, data domain.AggregateMap) string {
	if len(values) == 0 {
		return InsightAddValues
	}

	scored := ValueAlignments(values, data)
	if len(scored) == 0 {
		return InsightNoData
	}

	most, least := scored[0], scored[0]
	for _, a := range scored[1:] {
		if a.Difference < most.Difference {
			most = a
		}
		if a.Difference > least.Difference {
			least = a
		}
	}

	agg := data[least.ValueName]
	if agg.Minutes < agg.CommunityAvg {
		return fmt.Sprintf("You're most aligned with %s. Consider spending more time on %s to better reflect its importance to you.",
			most.ValueName, least.ValueName)
	}
	return fmt.Sprintf("You're most aligned with %s. You're spending more time than average on %s.",
		most.ValueName, least.ValueName)
}
