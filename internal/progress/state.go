package progress

import (
	"fmt"

	"github.com/tugapp/tug/internal/domain"
)

// ValuesState is the lifecycle of the values list: ValuesLoading,
// ValuesLoaded or ValuesFailed. The set is closed; use MatchValuesState to
// branch on it.
type ValuesState interface {
	valuesState()
}

// ValuesLoading means a load is in flight and nothing usable is known yet.
type ValuesLoading struct{}

// ValuesLoaded carries the loaded values.
type ValuesLoaded struct {
	Values []domain.Value
}

// ValuesFailed carries a user-facing failure message.
type ValuesFailed struct {
	Message string
}

func (ValuesLoading) valuesState() {}
func (ValuesLoaded) valuesState()  {}
func (ValuesFailed) valuesState()  {}

// MatchValuesState calls the handler for s's variant and returns its result.
// Every variant needs a handler, so adding one breaks every caller until it
// is handled.
func MatchValuesState[T any](
	s ValuesState,
	loading func() T,
	loaded func(values []domain.Value) T,
	failed func(message string) T,
) T {
	switch st := s.(type) {
	case ValuesLoading:
		return loading()
	case ValuesLoaded:
		return loaded(st.Values)
	case ValuesFailed:
		return failed(st.Message)
	case nil:
		return loading()
	default:
		panic(fmt.Sprintf("progress: unknown values state %T", s))
	}
}

// activeValuesOf returns the active values of a loaded state, nil otherwise.
func activeValuesOf(s ValuesState) []domain.Value {
	return MatchValuesState(s,
		func() []domain.Value { return nil },
		domain.ActiveValues,
		func(string) []domain.Value { return nil },
	)
}
