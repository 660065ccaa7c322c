package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Sup3rSecret!"))

	cases := map[string]string{
		"too short":    "Ab1!",
		"no uppercase": "alllower1!",
		"no digit":     "NoDigitsHere!",
		"no special":   "NoSpecial123",
	}
	for name, pw := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidatePassword(pw)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}
