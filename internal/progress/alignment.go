package progress

import (
	"math"

	"github.com/tugapp/tug/internal/domain"
)

// ValueAlignments scores every value that has an aggregate, in value order.
// Values without an aggregate are skipped.
func ValueAlignments(values []domain.Value, data domain.AggregateMap) []domain.ValueAlignment {
	out := make([]domain.ValueAlignment, 0, len(values))
	for _, v := range values {
		agg, ok := data[v.Name]
		if !ok {
			continue
		}
		out = append(out, alignmentOf(v, agg))
	}
	return out
}

// CalculateAlignment returns the share of values whose actual time is within
// AlignmentThreshold points of their stated importance. Values without an
// aggregate count against the total. An empty value list is unavailable.
func CalculateAlignment(values []domain.Value, data domain.AggregateMap) domain.Alignment {
	if len(values) == 0 {
		return domain.Alignment{}
	}

	aligned := 0
	for _, a := range ValueAlignments(values, data) {
		if a.Aligned {
			aligned++
		}
	}
	pct := int(math.Round(float64(aligned) / float64(len(values)) * 100))
	return domain.Alignment{Available: true, Percent: pct}
}

func alignmentOf(v domain.Value, agg domain.ActivityAggregate) domain.ValueAlignment {
	stated := float64(v.Importance) / domain.MaxImportance * 100

	var actual float64
	if agg.CommunityAvg != 0 {
		actual = float64(agg.Minutes) / float64(agg.CommunityAvg) * 100
	}

	diff := math.Abs(actual - stated)
	return domain.ValueAlignment{
		ValueName:     v.Name,
		StatedPercent: stated,
		ActualPercent: actual,
		Difference:    diff,
		Aligned:       diff <= domain.AlignmentThreshold,
	}
}
