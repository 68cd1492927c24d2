package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for range 500 {
		v, err := Generate(PrefixActivity)
		require.NoError(t, err)
		_, dup := seen[v]
		require.False(t, dup, "duplicate id %s", v)
		seen[v] = struct{}{}
	}
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixUser, PrefixValue, PrefixActivity} {
		t.Run(prefix, func(t *testing.T) {
			v := MustGenerate(prefix)
			head, tail, ok := strings.Cut(v, "-")
			require.True(t, ok)
			assert.Equal(t, prefix, head)
			assert.Len(t, tail, 21)
			assert.True(t, HasPrefix(v, prefix))
		})
	}
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("val-abc", PrefixValue))
	assert.False(t, HasPrefix("val-", PrefixValue))
	assert.False(t, HasPrefix("value-abc", PrefixValue))
	assert.False(t, HasPrefix("act-abc", PrefixValue))
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
