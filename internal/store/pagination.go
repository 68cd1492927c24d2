package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// Pagination limits.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // items per page; defaults to DefaultPageSize, capped at MaxPageSize
	Cursor string // opaque cursor for the next page; empty for the first page
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // empty on the last page
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total"`
}

// Normalize clamps the limit into range.
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

// EncodeCursor creates an opaque cursor for the given offset.
func EncodeCursor(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// DecodeCursor returns the offset encoded in cursor.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor: %w", err)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid cursor: %q", raw)
	}
	return offset, nil
}

// Paginate slices items according to p. A cursor past the end yields an
// empty last page.
func Paginate[T any](items []T, p PaginationParams) (Page[T], error) {
	p.Normalize()
	offset, err := DecodeCursor(p.Cursor)
	if err != nil {
		return Page[T]{}, err
	}

	total := len(items)
	start := min(offset, total)
	end := min(start+p.Limit, total)

	page := Page[T]{
		Items:   items[start:end],
		HasMore: end < total,
		Total:   total,
	}
	if page.HasMore {
		page.NextCursor = EncodeCursor(end)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}
