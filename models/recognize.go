package models

// Stable error codes surfaced to API callers.
const (
	ErrCodeMRZNotFound       = "MRZ_NOT_FOUND"
	ErrCodeBadJSON           = "LLM_BAD_JSON"
	ErrCodeSchemaMismatch    = "SCHEMA_MISMATCH"
	ErrCodeRecognitionFailed = "RECOGNITION_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

type ErrorInfo struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// RecognizeResponse is the answer to one recognition attempt. Exactly one
// of Mrz and Error is set; Raw carries the parsed model output for
// diagnostics in both cases.
type RecognizeResponse struct {
	RequestID string         `json:"request_id"`
	Mrz       *MRZKeys       `json:"mrz,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
	Error     *ErrorInfo     `json:"error,omitempty"`
}
