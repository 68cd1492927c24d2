package domain

import "time"

// ActivitySource records where an activity came from.
type ActivitySource string

// Activity sources.
const (
	SourceManual ActivitySource = "manual"
	SourceStrava ActivitySource = "strava"
)

// ActivityRecord is time logged against a value.
type ActivityRecord struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	ValueID    string         `json:"value_id"`
	Name       string         `json:"name"`
	Minutes    int            `json:"duration"`
	OccurredAt time.Time      `json:"date"`
	Notes      string         `json:"notes,omitempty"`
	Source     ActivitySource `json:"source"`
	ExternalID string         `json:"external_id,omitempty"` // Strava activity id for imports
	CreatedAt  time.Time      `json:"created_at"`
}

// ActivityAggregate is the summed time spent on one value within a window,
// alongside the window-scaled community average for values of that name.
type ActivityAggregate struct {
	ValueName    string `json:"name"`
	Minutes      int    `json:"minutes"`
	CommunityAvg int    `json:"community_avg"`
}

// AggregateMap holds aggregates keyed by value name.
//
// Aggregates join to values by name, not ID: two values sharing a name
// collide. Kept as-is until product intent is confirmed.
type AggregateMap map[string]ActivityAggregate

// ZeroAggregates returns a map with a zeroed aggregate for every value.
// Used when remote data is unavailable.
func ZeroAggregates(values []Value) AggregateMap {
	out := make(AggregateMap, len(values))
	for _, v := range values {
		out[v.Name] = ActivityAggregate{ValueName: v.Name}
	}
	return out
}

// ActivitySummary is the per-value summary for a window.
type ActivitySummary struct {
	Values []ActivityAggregate `json:"values"`
}

// ToMap indexes the summary by value name. Later duplicates win.
func (s ActivitySummary) ToMap() AggregateMap {
	out := make(AggregateMap, len(s.Values))
	for _, a := range s.Values {
		out[a.ValueName] = a
	}
	return out
}

// ActivityStatistics holds aggregate counters for a window.
type ActivityStatistics struct {
	TotalActivities int     `json:"total_activities"`
	TotalMinutes    int     `json:"total_minutes"`
	AverageMinutes  float64 `json:"average_minutes"`
}
