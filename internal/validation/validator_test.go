package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/validation"
)

type addRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Type  string `json:"type" validate:"required,rectype"`
	Date  string `json:"date,omitempty" validate:"omitempty,isodate"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

func TestValidator_Valid(t *testing.T) {
	v := validation.New()

	err := v.Validate(addRequest{Title: "Piranesi", Type: "book", Date: "2024-02-29"})
	assert.NoError(t, err)
}

func TestValidator_FieldErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       addRequest
		wantField string
	}{
		{"missing title", addRequest{Type: "book"}, "title"},
		{"unknown type", addRequest{Title: "x", Type: "vinyl"}, "type"},
		{"bad date", addRequest{Title: "x", Type: "tv", Date: "2024-13-01"}, "date"},
		{"bad color", addRequest{Title: "x", Type: "tv", Color: "red"}, "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}
