package domain

import "strconv"

// AlignmentThreshold is the largest stated/actual percentage gap that still counts as aligned.
const AlignmentThreshold = 30.0

// Alignment is the overall share of values whose time matches their importance.
type Alignment struct {
	Available bool
	Percent   int // 0-100, meaningful only when Available
}

// String renders the alignment as "NN%" or "N/A".
func (a Alignment) String() string {
	if !a.Available {
		return "N/A"
	}
	return strconv.Itoa(a.Percent) + "%"
}

// ValueAlignment compares stated importance with observed time for one value.
type ValueAlignment struct {
	ValueName     string  `json:"name"`
	StatedPercent float64 `json:"stated_percent"`
	ActualPercent float64 `json:"actual_percent"`
	Difference    float64 `json:"difference"`
	Aligned       bool    `json:"aligned"`
}
