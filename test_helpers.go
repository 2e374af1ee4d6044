package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"go-passport-scanner/events"
	"go-passport-scanner/metrics"
	"go-passport-scanner/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:   "localhost",
	Port:   8081,
	UseTls: false,
}

const testBaseURL = "http://localhost:8081"

type testEnv struct {
	server     *Server
	auditStore *InMemoryAuditLogStore
	scanStore  *InMemoryScanStore
	bus        *events.Bus
}

func startTestServer(t *testing.T, client ModelClient) *testEnv {
	t.Helper()

	auditStore := NewInMemoryAuditLogStore()
	scanStore := NewInMemoryScanStore()
	bus := events.NewBus()
	m := metrics.NewWith(prometheus.NewRegistry())

	faceStore, err := NewFaceImageStore(t.TempDir())
	require.NoError(t, err)

	state := &ServerState{
		recognizer: NewRecognizer(client, auditStore, m),
		scanStore:  scanStore,
		faceStore:  faceStore,
		bus:        bus,
		metrics:    m,
	}

	srv, err := NewServer(state, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})

	return &testEnv{server: srv, auditStore: auditStore, scanStore: scanStore, bus: bus}
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var v T
	_ = json.Unmarshal(respBody, &v)

	return resp, respBody, &v
}

// postImage uploads image bytes as the multipart field "image".
func postImage[T any](t *testing.T, url string, image []byte) (*http.Response, []byte, *T) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(url, writer.FormDataContentType(), &buf)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var v T
	_ = json.Unmarshal(respBody, &v)

	return resp, respBody, &v
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// mustParseJSON turns a literal fixture into the decoded form the
// validator consumes.
func mustParseJSON(t *testing.T, fixture string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(fixture), &v))
	return v
}

// test doubles

// fakeModelClient answers every invocation with a fixed parsed object, or
// fails with a fixed error.
type fakeModelClient struct {
	parsed any
	err    error
}

func (f *fakeModelClient) RecognizeImage(_ context.Context, _ []byte) (*Invocation, error) {
	invocation := &Invocation{
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Model:     "fake-model",
		InputPayload: &ChatRequest{
			Model:  "fake-model",
			Stream: false,
			Format: "json",
		},
		RawEnvelope: map[string]any{
			"message": map[string]any{"content": "fake"},
		},
		Parsed: f.parsed,
	}
	if f.err != nil {
		return invocation, f.err
	}
	return invocation, nil
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, models.AuditLogEntry) error {
	return fmt.Errorf("disk full")
}

func (failingAuditStore) Count(context.Context) (int, error) {
	return 0, fmt.Errorf("disk full")
}
