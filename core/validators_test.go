package core_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sanaa/testutil"
)

type linkForm struct {
	Title string   `json:"title" validate:"required,notblank"`
	Link  string   `json:"link" validate:"omitempty,url,httpurl"`
	Extra []string `json:"extra" validate:"dive,url,httpurl"`
}

func TestInitValidators(t *testing.T) {
	validate, translator := testutil.Validator()

	tests := []struct {
		name    string
		form    linkForm
		wantErr map[string]string
	}{
		{
			name:    "required",
			form:    linkForm{},
			wantErr: map[string]string{"title": "this field is required"},
		},
		{
			name:    "blank",
			form:    linkForm{Title: " \t "},
			wantErr: map[string]string{"title": "this field cannot be blank"},
		},
		{
			name:    "not a url",
			form:    linkForm{Title: "Guernica", Link: "lol"},
			wantErr: map[string]string{"link": "link must be a valid URL"},
		},
		{
			name:    "scheme not allowed",
			form:    linkForm{Title: "Guernica", Link: "javascript:alert(1)"},
			wantErr: map[string]string{"link": "only http and https links are allowed"},
		},
		{
			name:    "scheme not allowed in list",
			form:    linkForm{Title: "Guernica", Extra: []string{"https://a.io/1.png", "ftp://a.io/2.png"}},
			wantErr: map[string]string{"extra[1]": "only http and https links are allowed"},
		},
		{
			name: "valid",
			form: linkForm{
				Title: "Guernica",
				Link:  "https://www.museoreinasofia.es/coleccion/obra/guernica",
				Extra: []string{"http://a.io/1.png"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}
