package progress

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tugapp/tug/internal/domain"
)

func describe(s ValuesState) string {
	return MatchValuesState(s,
		func() string { return "loading" },
		func(values []domain.Value) string { return "loaded:" + strconv.Itoa(len(values)) },
		func(msg string) string { return "failed:" + msg },
	)
}

func TestMatchValuesState(t *testing.T) {
	assert.Equal(t, "loading", describe(ValuesLoading{}))
	assert.Equal(t, "loading", describe(nil))
	assert.Equal(t, "loaded:2", describe(ValuesLoaded{Values: []domain.Value{value("a", "A", 1), value("b", "B", 2)}}))
	assert.Equal(t, "failed:boom", describe(ValuesFailed{Message: "boom"}))
}

func TestActiveValuesOf(t *testing.T) {
	inactive := value("b", "B", 2)
	inactive.Active = false

	got := activeValuesOf(ValuesLoaded{Values: []domain.Value{value("a", "A", 1), inactive}})
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)

	assert.Nil(t, activeValuesOf(ValuesLoading{}))
	assert.Nil(t, activeValuesOf(ValuesFailed{Message: "x"}))
}
