package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go-passport-scanner/models"
)

// ExtractionResult is the classified outcome of one model answer: either
// validated MRZ keys or a stable error, plus the object to echo back to
// the caller for diagnostics.
type ExtractionResult struct {
	Mrz *models.MRZKeys
	Err *models.ErrorInfo
	Raw any
}

// Success reports whether the extraction produced usable MRZ keys.
func (r ExtractionResult) Success() bool {
	return r.Err == nil
}

// ValidateExtraction classifies the parsed model output. Decoding is a
// tagged-variant decision, tried in order:
//
//  1. an object with an "error" key is an upstream-declared failure;
//  2. otherwise the object must decode strictly into MRZKeys — exactly
//     the three required fields, all non-empty strings;
//  3. anything else is a SCHEMA_MISMATCH, with the original object
//     preserved under a "raw" wrapper.
//
// The function is pure: no I/O, no clock, no randomness.
func ValidateExtraction(parsed any) ExtractionResult {
	if obj, ok := parsed.(map[string]any); ok {
		if errVal, declared := obj["error"]; declared {
			return ExtractionResult{
				Err: upstreamError(errVal),
				Raw: parsed,
			}
		}
	}

	keys, err := decodeMRZKeys(parsed)
	if err != nil {
		return ExtractionResult{
			Err: &models.ErrorInfo{
				ErrorCode: models.ErrCodeSchemaMismatch,
				Message:   fmt.Sprintf("invalid fields from model: %v", err),
			},
			Raw: map[string]any{
				"error": map[string]any{
					"code":    models.ErrCodeSchemaMismatch,
					"message": "Invalid fields from model",
				},
				"raw": parsed,
			},
		}
	}

	return ExtractionResult{Mrz: &keys, Raw: parsed}
}

// upstreamError extracts code and message from a declared error object,
// falling back to RECOGNITION_FAILED when either is absent.
func upstreamError(errVal any) *models.ErrorInfo {
	info := &models.ErrorInfo{
		ErrorCode: models.ErrCodeRecognitionFailed,
		Message:   "Recognition failed",
	}
	obj, ok := errVal.(map[string]any)
	if !ok {
		return info
	}
	if code, ok := obj["code"].(string); ok && code != "" {
		info.ErrorCode = code
	}
	if message, ok := obj["message"].(string); ok && message != "" {
		info.Message = message
	}
	return info
}

// decodeMRZKeys performs the strict structural decode: unknown fields,
// missing fields and wrong field types all fail construction.
func decodeMRZKeys(parsed any) (models.MRZKeys, error) {
	raw, err := json.Marshal(parsed)
	if err != nil {
		return models.MRZKeys{}, fmt.Errorf("not a JSON object: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var keys models.MRZKeys
	if err := decoder.Decode(&keys); err != nil {
		return models.MRZKeys{}, err
	}

	return models.NewMRZKeys(keys.DocumentNumber, keys.DateOfBirth, keys.DateOfExpiry)
}
