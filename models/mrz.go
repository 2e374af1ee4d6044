package models

import "fmt"

// MRZKeys holds the three machine-readable-zone values needed to derive
// NFC access keys (BAC inputs) for a travel document.
type MRZKeys struct {
	DocumentNumber string `json:"document_number"`
	DateOfBirth    string `json:"date_of_birth"`  // YYYY-MM-DD
	DateOfExpiry   string `json:"date_of_expiry"` // YYYY-MM-DD
}

// NewMRZKeys constructs an MRZKeys value. All three fields are mandatory;
// a missing field means the model did not produce a usable extraction.
func NewMRZKeys(documentNumber, dateOfBirth, dateOfExpiry string) (MRZKeys, error) {
	if documentNumber == "" {
		return MRZKeys{}, fmt.Errorf("document_number must not be empty")
	}
	if dateOfBirth == "" {
		return MRZKeys{}, fmt.Errorf("date_of_birth must not be empty")
	}
	if dateOfExpiry == "" {
		return MRZKeys{}, fmt.Errorf("date_of_expiry must not be empty")
	}
	return MRZKeys{
		DocumentNumber: documentNumber,
		DateOfBirth:    dateOfBirth,
		DateOfExpiry:   dateOfExpiry,
	}, nil
}
