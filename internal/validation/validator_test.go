package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/validation"
)

type valueInput struct {
	Name       string `json:"name" validate:"notblank,maxrunes=50"`
	Importance int    `json:"importance" validate:"min=1,max=5"`
	Color      string `json:"color" validate:"required,hexcolor"`
	Kind       string `json:"kind,omitempty" validate:"omitempty,valuekind"`
}

func TestValidator_Accepts(t *testing.T) {
	v := validation.New()
	err := v.Validate(valueInput{Name: "Health", Importance: 5, Color: "#4CAF50", Kind: "value"})
	assert.NoError(t, err)

	// Kind is optional.
	err = v.Validate(valueInput{Name: "Family", Importance: 1, Color: "#fff"})
	assert.NoError(t, err)
}

func TestValidator_Rejects(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		in        valueInput
		wantField string
		wantMsg   string
	}{
		{"blank name", valueInput{Name: "   ", Importance: 3, Color: "#000000"}, "name", "is required"},
		{"long name", valueInput{Name: strings.Repeat("x", 51), Importance: 3, Color: "#000000"}, "name", "must not exceed 50 characters"},
		{"importance low", valueInput{Name: "A", Importance: 0, Color: "#000000"}, "importance", "must be at least 1"},
		{"importance high", valueInput{Name: "A", Importance: 6, Color: "#000000"}, "importance", "must be at most 5"},
		{"bad color", valueInput{Name: "A", Importance: 3, Color: "green"}, "color", "hex color"},
		{"bad kind", valueInput{Name: "A", Importance: 3, Color: "#000000", Kind: "habit"}, "kind", "value vice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			require.Error(t, err)

			var derr *domainerrors.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domainerrors.CodeValidation, derr.Code)
			assert.Equal(t, http.StatusBadRequest, derr.HTTPStatus())

			details, ok := derr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details[tt.wantField], tt.wantMsg)
		})
	}
}

func TestValidator_NameCountsRunes(t *testing.T) {
	v := validation.New()
	// 50 multi-byte characters is within limits even though it exceeds 50 bytes.
	err := v.Validate(valueInput{Name: strings.Repeat("é", 50), Importance: 2, Color: "#123456"})
	assert.NoError(t, err)
}

func TestValidator_MessageUsesJSONNames(t *testing.T) {
	v := validation.New()
	err := v.Validate(valueInput{Importance: 9, Color: "#000000"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "importance")
	assert.Contains(t, err.Error(), "name")
	assert.NotContains(t, err.Error(), "Importance")
}
