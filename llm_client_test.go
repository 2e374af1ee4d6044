package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testOllamaConfig(baseURL string) OllamaConfig {
	return OllamaConfig{
		BaseURL:        baseURL,
		Model:          "test-vision-model",
		TimeoutSeconds: 5,
		Language:       "en",
	}
}

func ollamaEnvelope(content any) map[string]any {
	return map[string]any{
		"model":   "test-vision-model",
		"message": map[string]any{"role": "assistant", "content": content},
		"done":    true,
	}
}

func TestOllamaClientSendsChatRequest(t *testing.T) {
	var received ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(ollamaEnvelope(`{"document_number":"X1","date_of_birth":"1990-01-01","date_of_expiry":"2030-01-01"}`))
	}))
	defer server.Close()

	client := NewOllamaClient(testOllamaConfig(server.URL))
	invocation, err := client.RecognizeImage(context.Background(), []byte{0xAA, 0xBB})
	require.NoError(t, err)

	require.Equal(t, "test-vision-model", received.Model)
	require.False(t, received.Stream)
	require.Equal(t, "json", received.Format)
	require.InDelta(t, 0.1, received.Options.Temperature, 0.0001)
	require.Len(t, received.Messages, 2)
	require.Equal(t, "system", received.Messages[0].Role)
	require.Contains(t, received.Messages[0].Content, "document number")
	require.Equal(t, "user", received.Messages[1].Role)
	require.Equal(t, []string{"qrs="}, received.Messages[1].Images)

	require.NotEmpty(t, invocation.RequestID)
	require.Equal(t, "test-vision-model", invocation.Model)
	require.NotNil(t, invocation.InputPayload)
	require.NotNil(t, invocation.RawEnvelope)

	parsed, ok := invocation.Parsed.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "X1", parsed["document_number"])
}

func TestOllamaClientRussianPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var received ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		require.Contains(t, received.Messages[0].Content, "MRZ keys")
		require.Contains(t, received.Messages[0].Content, "загранпаспорт")
		_ = json.NewEncoder(w).Encode(ollamaEnvelope(`{}`))
	}))
	defer server.Close()

	config := testOllamaConfig(server.URL)
	config.Language = "ru"
	client := NewOllamaClient(config)

	_, err := client.RecognizeImage(context.Background(), []byte{0x01})
	require.NoError(t, err)
}

func TestOllamaClientNonJSONContentReturnsSentinel(t *testing.T) {
	const answer = "I could not find a passport in this image, sorry!"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEnvelope(answer))
	}))
	defer server.Close()

	client := NewOllamaClient(testOllamaConfig(server.URL))
	invocation, err := client.RecognizeImage(context.Background(), []byte{0x01})
	require.NoError(t, err)

	parsed, ok := invocation.Parsed.(map[string]any)
	require.True(t, ok)
	errObj, ok := parsed["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "LLM_BAD_JSON", errObj["code"])
	// The original text is preserved unchanged.
	require.Equal(t, answer, parsed["raw"])
}

func TestOllamaClientMissingContentReturnsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"done": true})
	}))
	defer server.Close()

	client := NewOllamaClient(testOllamaConfig(server.URL))
	invocation, err := client.RecognizeImage(context.Background(), []byte{0x01})
	require.NoError(t, err)

	parsed, ok := invocation.Parsed.(map[string]any)
	require.True(t, ok)
	errObj, ok := parsed["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "LLM_BAD_JSON", errObj["code"])
}

func TestOllamaClientDeclaredErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEnvelope(`{"error":{"code":"MRZ_NOT_FOUND","message":"blurry"}}`))
	}))
	defer server.Close()

	client := NewOllamaClient(testOllamaConfig(server.URL))
	invocation, err := client.RecognizeImage(context.Background(), []byte{0x01})
	require.NoError(t, err)

	parsed, ok := invocation.Parsed.(map[string]any)
	require.True(t, ok)
	errObj, ok := parsed["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "MRZ_NOT_FOUND", errObj["code"])
}

func TestOllamaClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewOllamaClient(testOllamaConfig(server.URL))
	invocation, err := client.RecognizeImage(context.Background(), []byte{0x01})

	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
	// The invocation still carries the outbound payload for auditing.
	require.NotNil(t, invocation)
	require.NotNil(t, invocation.InputPayload)
	require.Nil(t, invocation.RawEnvelope)
}

func TestOllamaClientUnreachableService(t *testing.T) {
	client := NewOllamaClient(testOllamaConfig("http://127.0.0.1:1"))
	invocation, err := client.RecognizeImage(context.Background(), []byte{0x01})

	require.Error(t, err)
	require.NotNil(t, invocation)
	require.NotEmpty(t, invocation.RequestID)
}
