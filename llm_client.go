package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go-passport-scanner/models"

	"github.com/google/uuid"
)

// Invocation is the complete record of one model call. It carries
// everything the audit log needs, so no second round trip is ever
// required to reconstruct what was sent or received.
type Invocation struct {
	RequestID    string
	Timestamp    time.Time
	Model        string
	InputPayload *ChatRequest
	RawEnvelope  map[string]any
	Parsed       any
}

// ModelClient sends a document photo to the vision model service and
// returns the invocation record. A non-nil Invocation is returned even
// when the call fails after the request was built, so the attempt can
// still be audited.
type ModelClient interface {
	RecognizeImage(ctx context.Context, imageBytes []byte) (*Invocation, error)
}

type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ChatOptions struct {
	Temperature float64 `json:"temperature"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
	Options  ChatOptions   `json:"options"`
}

// OllamaClient implements ModelClient against an Ollama chat endpoint.
type OllamaClient struct {
	config     OllamaConfig
	httpClient *http.Client
}

func NewOllamaClient(config OllamaConfig) *OllamaClient {
	return &OllamaClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}
}

// buildExtractionPrompt returns the system instruction for the configured
// language tag. The instruction pins the model to a closed JSON shape:
// either the three MRZ key fields or an error object.
func buildExtractionPrompt(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "ru") {
		return "Ты распознаёшь загранпаспорт (eMRTD). " +
			"Нужно извлечь параметры для NFC (BAC / MRZ keys): " +
			"номер документа, дата рождения, дата окончания срока действия. " +
			"Верни СТРОГО JSON без пояснений по схеме: " +
			`{"document_number":"...","date_of_birth":"YYYY-MM-DD","date_of_expiry":"YYYY-MM-DD"}. ` +
			`Если распознать нельзя, верни JSON: {"error":{"code":"MRZ_NOT_FOUND","message":"..."}}.`
	}
	return "You parse a passport (eMRTD). " +
		"Extract BAC/MRZ key inputs: document number, date of birth, date of expiry. " +
		"Return STRICT JSON only: " +
		`{"document_number":"...","date_of_birth":"YYYY-MM-DD","date_of_expiry":"YYYY-MM-DD"}. ` +
		`If not possible, return: {"error":{"code":"MRZ_NOT_FOUND","message":"..."}}.`
}

func buildUserInstruction(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "ru") {
		return "Распознай по фото."
	}
	return "Read it from the photo."
}

// RecognizeImage sends the image as a single non-streaming multimodal chat
// request. The temperature is fixed low to bias the model toward
// deterministic extraction.
func (c *OllamaClient) RecognizeImage(ctx context.Context, imageBytes []byte) (*Invocation, error) {
	requestID := uuid.NewString()
	imageB64 := base64.StdEncoding.EncodeToString(imageBytes)

	payload := &ChatRequest{
		Model: c.config.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: buildExtractionPrompt(c.config.Language)},
			{Role: "user", Content: buildUserInstruction(c.config.Language), Images: []string{imageB64}},
		},
		Stream:  false,
		Format:  "json",
		Options: ChatOptions{Temperature: 0.1},
	}

	invocation := &Invocation{
		RequestID:    requestID,
		Timestamp:    time.Now().UTC(),
		Model:        c.config.Model,
		InputPayload: payload,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return invocation, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return invocation, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Calling model service", "request_id", requestID, "model", c.config.Model, "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return invocation, fmt.Errorf("failed to execute chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return invocation, fmt.Errorf("model service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return invocation, fmt.Errorf("failed to decode model envelope: %w", err)
	}
	invocation.RawEnvelope = envelope
	invocation.Parsed = parseModelContent(envelope)

	slog.Debug("Model call completed", "request_id", requestID)
	return invocation, nil
}

// parseModelContent extracts the textual answer from the chat envelope and
// decodes it as JSON. Non-JSON content does not fail the call; it becomes
// a sentinel error object that still carries the raw text, so the caller
// can log and respond gracefully.
func parseModelContent(envelope map[string]any) any {
	var content any
	if message, ok := envelope["message"].(map[string]any); ok {
		content = message["content"]
	}

	text, ok := content.(string)
	if !ok {
		return badJSONSentinel(content)
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return badJSONSentinel(text)
	}
	return parsed
}

func badJSONSentinel(raw any) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    models.ErrCodeBadJSON,
			"message": "Model returned non-JSON content",
		},
		"raw": raw,
	}
}
