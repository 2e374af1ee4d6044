package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMRZKeys(t *testing.T) {
	keys, err := NewMRZKeys("AB1234567", "1990-01-31", "2030-06-15")
	require.NoError(t, err)
	require.Equal(t, "AB1234567", keys.DocumentNumber)
	require.Equal(t, "1990-01-31", keys.DateOfBirth)
	require.Equal(t, "2030-06-15", keys.DateOfExpiry)
}

func TestNewMRZKeysRejectsEmptyFields(t *testing.T) {
	cases := []struct {
		name                string
		docNum, dob, expiry string
	}{
		{"empty document number", "", "1990-01-31", "2030-06-15"},
		{"empty date of birth", "AB1234567", "", "2030-06-15"},
		{"empty date of expiry", "AB1234567", "1990-01-31", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewMRZKeys(c.docNum, c.dob, c.expiry)
			require.Error(t, err)
		})
	}
}
