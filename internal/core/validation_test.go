// AngelaMos | 2026
// validation_test.go

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Name     string `validate:"required,min=1,max=100"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=128,password"`
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		in   signup
		want string
	}{
		{
			name: "missing name",
			in:   signup{Email: "a@b.co", Password: "abcdefg1"},
			want: "name is required",
		},
		{
			name: "bad email",
			in:   signup{Name: "A", Email: "nope", Password: "abcdefg1"},
			want: "invalid email address",
		},
		{
			name: "short password",
			in:   signup{Name: "A", Email: "a@b.co", Password: "ab1"},
			want: "password must be at least 8 characters",
		},
		{
			name: "no digit",
			in:   signup{Name: "A", Email: "a@b.co", Password: "abcdefgh"},
			want: "password must contain at least one letter and one digit",
		},
		{
			name: "no letter",
			in:   signup{Name: "A", Email: "a@b.co", Password: "12345678"},
			want: "password must contain at least one letter and one digit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			assert.Equal(t, tt.want, FormatValidationError(err))
		})
	}

	assert.NoError(t, v.Struct(signup{Name: "A", Email: "a@b.co", Password: "abcdefg1"}))
}

func TestFormatValidationErrorFallback(t *testing.T) {
	assert.Equal(t, "invalid request", FormatValidationError(errors.New("boom")))
}
