package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-passport-scanner/metrics"
	"go-passport-scanner/models"

	"github.com/google/uuid"
)

// ErrEmptyImage rejects a recognition request with no image content. No
// model call is made for empty input.
var ErrEmptyImage = errors.New("empty image")

// Recognizer orchestrates one recognition attempt: model invocation,
// contract validation and the audit write. Every attempt that reaches the
// model produces exactly one audit entry, whatever the outcome; a failed
// audit write fails the whole call, because the entry is the only source
// of truth for later debugging.
type Recognizer struct {
	client  ModelClient
	audit   AuditLogStore
	metrics *metrics.Metrics
}

func NewRecognizer(client ModelClient, audit AuditLogStore, m *metrics.Metrics) *Recognizer {
	return &Recognizer{client: client, audit: audit, metrics: m}
}

// Recognize runs the full pipeline for one image. Transport and timeout
// failures are converted to an INTERNAL_ERROR response here, so the
// endpoint always returns a structured object.
func (r *Recognizer) Recognize(ctx context.Context, imageBytes []byte) (*models.RecognizeResponse, error) {
	if len(imageBytes) == 0 {
		return nil, ErrEmptyImage
	}

	invocation, invokeErr := r.client.RecognizeImage(ctx, imageBytes)
	if invocation == nil {
		// The request could not even be built; fabricate the identifiers
		// so the attempt is still audited.
		invocation = &Invocation{
			RequestID: uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Model:     "unknown",
		}
	}

	if invokeErr != nil {
		slog.Error("Model invocation failed", "request_id", invocation.RequestID, "error", invokeErr)
		entry := r.buildAuditEntry(invocation, false, invokeErr.Error())
		if err := r.audit.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("audit write failed: %w", err)
		}
		r.metrics.ObserveRecognition(models.ErrCodeInternal)
		return &models.RecognizeResponse{
			RequestID: invocation.RequestID,
			Error: &models.ErrorInfo{
				ErrorCode: models.ErrCodeInternal,
				Message:   invokeErr.Error(),
			},
		}, nil
	}

	result := ValidateExtraction(invocation.Parsed)

	entry := r.buildAuditEntry(invocation, result.Success(), classificationErrorText(result))
	if err := r.audit.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("audit write failed: %w", err)
	}

	response := &models.RecognizeResponse{
		RequestID: invocation.RequestID,
		Raw:       map[string]any{"result": result.Raw},
	}
	if result.Success() {
		slog.Info("Recognition succeeded", "request_id", invocation.RequestID)
		response.Mrz = result.Mrz
		r.metrics.ObserveRecognition("ok")
	} else {
		slog.Info("Recognition failed", "request_id", invocation.RequestID, "error_code", result.Err.ErrorCode)
		response.Error = result.Err
		r.metrics.ObserveRecognition(result.Err.ErrorCode)
	}
	return response, nil
}

func (r *Recognizer) buildAuditEntry(invocation *Invocation, success bool, errorText string) models.AuditLogEntry {
	return models.AuditLogEntry{
		ID:         uuid.NewString(),
		Timestamp:  invocation.Timestamp,
		RequestID:  invocation.RequestID,
		Model:      invocation.Model,
		InputJSON:  marshalForAudit(invocation.InputPayload),
		OutputJSON: marshalForAudit(invocation.RawEnvelope),
		Success:    success,
		Error:      errorText,
	}
}

// classificationErrorText renders the audit error column: the declared
// error object as JSON, or empty on success.
func classificationErrorText(result ExtractionResult) string {
	if result.Success() {
		return ""
	}
	text, err := json.Marshal(result.Err)
	if err != nil {
		return result.Err.Message
	}
	return string(text)
}

// marshalForAudit preserves the payload verbatim as JSON; a nil payload
// (model never reached) stays empty rather than becoming "null".
func marshalForAudit(v any) string {
	if v == nil {
		return ""
	}
	switch payload := v.(type) {
	case *ChatRequest:
		if payload == nil {
			return ""
		}
	case map[string]any:
		if payload == nil {
			return ""
		}
	}
	text, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("marshal failed: %v", err)
	}
	return string(text)
}
