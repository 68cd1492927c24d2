package domain

import "time"

// ValueKind distinguishes positive priorities from habits the user wants to reduce.
type ValueKind string

const (
	// KindValue is a life priority the user wants to spend time on.
	KindValue ValueKind = "value"
	// KindVice is a habit the user wants to spend less time on.
	KindVice ValueKind = "vice"
)

// Valid reports whether k is a recognized kind.
func (k ValueKind) Valid() bool {
	return k == KindValue || k == KindVice
}

// Importance bounds. Stated alignment is importance/MaxImportance.
const (
	MinImportance = 1
	MaxImportance = 5
)

// Value is a user-declared life priority with a 1-5 importance rating.
type Value struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Importance  int       `json:"importance"`
	Color       string    `json:"color"` // #RRGGBB
	Description string    `json:"description,omitempty"`
	Kind        ValueKind `json:"kind"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActiveValues returns the active subset of values, preserving order.
func ActiveValues(values []Value) []Value {
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if v.Active {
			out = append(out, v)
		}
	}
	return out
}
