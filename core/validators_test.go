package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	translator := NewTranslator()
	validate := NewValidator(translator)

	type form struct {
		Username string `json:"username" validate:"required,alphanum_"`
		Title    string `json:"title" validate:"notblank"`
	}

	tests := []struct {
		name string
		data form
		want map[string]string
	}{
		{name: "valid", data: form{Username: "jo_doe", Title: "Intro"}},
		{
			name: "invalid",
			data: form{Username: "jo-doe!", Title: "   "},
			want: map[string]string{
				"username": "only alphanumeric characters and underscores are allowed",
				"title":    "this field cannot be blank",
			},
		},
		{name: "required", data: form{Title: "Intro"}, want: map[string]string{"username": "this field is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
