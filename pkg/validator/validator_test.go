package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Phone     string   `json:"phone" validate:"required,phone"`
	Schedules []string `json:"schedules" validate:"dive,clock"`
	Start     string   `json:"start_date" validate:"omitempty,isodate"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		in   form
		ok   bool
	}{
		{"valid", form{Phone: "(31) 97322-3898", Schedules: []string{"08:00", "20:30"}, Start: "2026-03-10"}, true},
		{"no start", form{Phone: "31973223898"}, true},
		{"bad phone", form{Phone: "123"}, false},
		{"bad clock", form{Phone: "31973223898", Schedules: []string{"25:00"}}, false},
		{"bad date", form{Phone: "31973223898", Start: "10/03/2026"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	v := New()
	err := v.Struct(form{Phone: "1", Start: "x"})
	require.Error(t, err)
	assert.Equal(t, "phone must be a valid phone number; start_date must be a date in YYYY-MM-DD format", Message(err))

	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestRegisterBindingsIsIdempotent(t *testing.T) {
	require.NoError(t, RegisterBindings())
	require.NoError(t, RegisterBindings())
}
