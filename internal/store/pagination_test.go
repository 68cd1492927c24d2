package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginationParams_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"valid", 50, 50},
		{"zero defaults", 0, DefaultPageSize},
		{"negative defaults", -10, DefaultPageSize},
		{"capped", 5000, MaxPageSize},
		{"exactly max", MaxPageSize, MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaginationParams{Limit: tt.limit}
			p.Normalize()
			assert.Equal(t, tt.want, p.Limit)
		})
	}
}

func TestCursor_RoundTrip(t *testing.T) {
	assert.Empty(t, EncodeCursor(0))

	offset, err := DecodeCursor(EncodeCursor(250))
	require.NoError(t, err)
	assert.Equal(t, 250, offset)

	offset, err = DecodeCursor("")
	require.NoError(t, err)
	assert.Zero(t, offset)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, c := range []string{"!!!", "YWJj", "LTU"} { // garbage, "abc", "-5"
		_, err := DecodeCursor(c)
		assert.Error(t, err, "cursor %q", c)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	first, err := Paginate(items, PaginationParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, first.Items)
	assert.True(t, first.HasMore)
	assert.Equal(t, 5, first.Total)

	second, err := Paginate(items, PaginationParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, second.Items)

	last, err := Paginate(items, PaginationParams{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, last.Items)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.NextCursor)
}

func TestPaginate_PastEnd(t *testing.T) {
	page, err := Paginate([]string{"a"}, PaginationParams{Cursor: EncodeCursor(10)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasMore)
}
