package main

import (
	"testing"

	"go-passport-scanner/models"

	"github.com/stretchr/testify/require"
)

func TestValidateExtractionValidKeys(t *testing.T) {
	parsed := mustParseJSON(t, `{
		"document_number": "75345297",
		"date_of_birth": "1990-03-14",
		"date_of_expiry": "2030-01-02"
	}`)

	result := ValidateExtraction(parsed)

	require.True(t, result.Success())
	require.Nil(t, result.Err)
	require.NotNil(t, result.Mrz)
	require.Equal(t, "75345297", result.Mrz.DocumentNumber)
	require.Equal(t, "1990-03-14", result.Mrz.DateOfBirth)
	require.Equal(t, "2030-01-02", result.Mrz.DateOfExpiry)
	require.Equal(t, parsed, result.Raw)
}

func TestValidateExtractionDeclaredError(t *testing.T) {
	parsed := mustParseJSON(t, `{
		"error": {"code": "MRZ_NOT_FOUND", "message": "no MRZ visible"}
	}`)

	result := ValidateExtraction(parsed)

	require.False(t, result.Success())
	require.Nil(t, result.Mrz)
	require.Equal(t, models.ErrCodeMRZNotFound, result.Err.ErrorCode)
	require.Equal(t, "no MRZ visible", result.Err.Message)
}

func TestValidateExtractionDeclaredErrorWithoutCode(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"empty error object", `{"error": {}}`},
		{"error is a string", `{"error": "boom"}`},
		{"error is null", `{"error": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateExtraction(mustParseJSON(t, tt.fixture))
			require.False(t, result.Success())
			require.Nil(t, result.Mrz)
			require.Equal(t, models.ErrCodeRecognitionFailed, result.Err.ErrorCode)
			require.NotEmpty(t, result.Err.Message)
		})
	}
}

func TestValidateExtractionSchemaMismatch(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"missing field", `{"document_number": "X", "date_of_birth": "1990-01-01"}`},
		{"empty field", `{"document_number": "", "date_of_birth": "1990-01-01", "date_of_expiry": "2030-01-01"}`},
		{"extra field", `{"document_number": "X", "date_of_birth": "1990-01-01", "date_of_expiry": "2030-01-01", "surname": "DOE"}`},
		{"wrong type", `{"document_number": 12345, "date_of_birth": "1990-01-01", "date_of_expiry": "2030-01-01"}`},
		{"not an object", `["document_number"]`},
		{"bare number", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := mustParseJSON(t, tt.fixture)
			result := ValidateExtraction(parsed)

			require.False(t, result.Success())
			require.Nil(t, result.Mrz)
			require.Equal(t, models.ErrCodeSchemaMismatch, result.Err.ErrorCode)
			require.NotEmpty(t, result.Err.Message)

			// The original object survives under a raw wrapper.
			wrapper, ok := result.Raw.(map[string]any)
			require.True(t, ok)
			require.Equal(t, parsed, wrapper["raw"])
		})
	}
}

func TestValidateExtractionIsPure(t *testing.T) {
	parsed := mustParseJSON(t, `{"document_number": "A", "date_of_birth": "B", "date_of_expiry": "C"}`)

	first := ValidateExtraction(parsed)
	second := ValidateExtraction(parsed)

	require.Equal(t, first, second)
}
