package main

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go-passport-scanner/events"
	"go-passport-scanner/metrics"
	"go-passport-scanner/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_MISSING_IMAGE = "missing image upload"
const ERR_EMPTY_IMAGE = "empty image"
const ERR_INVALID_BODY = "invalid request body"
const ERR_INVALID_FACE_B64 = "invalid face_image_b64"
const ERR_SCAN_NOT_FOUND = "scan not found"

// EventTypeNFCScanSuccess tags the notification published after a scan is
// stored.
const EventTypeNFCScanSuccess = "nfc_scan_success"

// maxImageUploadBytes bounds the multipart form kept in memory.
const maxImageUploadBytes = 32 << 20

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	recognizer *Recognizer
	scanStore  ScanStore
	faceStore  *FaceImageStore
	bus        *events.Bus
	metrics    *metrics.Metrics
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.Use(corsMiddleware)

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		if err := json.NewEncoder(w).Encode(map[string]bool{"ok": true}); err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/passport/recognize", func(w http.ResponseWriter, r *http.Request) {
		handleRecognizePassport(state, w, r)
	})
	router.HandleFunc("/api/passport/nfc", func(w http.ResponseWriter, r *http.Request) {
		handleStoreNFCScan(state, w, r)
	})
	router.HandleFunc("/api/nfc/{scan_id}/face.jpg", func(w http.ResponseWriter, r *http.Request) {
		handleGetFaceImage(state, w, r)
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		handleEventStream(state, w, r)
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/", handleViewerPage).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// The event stream stays open indefinitely, so no write timeout.
		ReadTimeout: 15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

// handleRecognizePassport accepts a multipart image upload and answers
// with a RecognizeResponse. Recoverable failures still answer 200 with an
// error field; only client-input problems get an error status.
func handleRecognizePassport(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received recognition request")

	imageBytes, err := readImageUpload(r)
	if err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, ERR_MISSING_IMAGE, "failed to read image upload", err)
		return
	}

	response, err := state.recognizer.Recognize(r.Context(), imageBytes)
	if errors.Is(err, ErrEmptyImage) {
		respondWithErr(w, http.StatusUnprocessableEntity, ERR_EMPTY_IMAGE, "empty image rejected", err)
		return
	}
	if err != nil {
		// Top-level safety net: the endpoint always returns a structured
		// object for failures past input validation.
		slog.Error("Recognition pipeline failed", "error", err)
		response = &models.RecognizeResponse{
			RequestID: uuid.NewString(),
			Error: &models.ErrorInfo{
				ErrorCode: models.ErrCodeInternal,
				Message:   err.Error(),
			},
		}
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// readImageUpload extracts the uploaded image bytes from the multipart
// form field "image".
func readImageUpload(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}
	return imageBytes, nil
}

// handleStoreNFCScan persists a chip-derived passport payload plus its
// face image and notifies stream observers.
func handleStoreNFCScan(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received NFC scan payload")

	var payload models.NFCPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithErr(w, http.StatusBadRequest, ERR_INVALID_BODY, "failed to decode NFC payload", err)
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(payload.FaceImageB64)
	if err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, ERR_INVALID_FACE_B64, "failed to decode face image", err)
		return
	}

	scanID := uuid.NewString()

	facePath, err := state.faceStore.Save(scanID, imageBytes)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store face image", err)
		return
	}

	// The passport mapping is stored as the JSON document that arrived;
	// its content is the sender's responsibility.
	passportJSON, err := json.Marshal(payload.Passport)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to serialize passport payload", err)
		return
	}

	record := models.ScanRecord{
		ScanID:        scanID,
		Timestamp:     time.Now().UTC(),
		PassportJSON:  string(passportJSON),
		FaceImagePath: facePath,
	}
	if err := state.scanStore.SaveScan(r.Context(), record); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store scan record", err)
		return
	}

	state.bus.Publish(events.Event{
		Type: EventTypeNFCScanSuccess,
		Data: map[string]any{
			"scan_id":        scanID,
			"face_image_url": fmt.Sprintf("/api/nfc/%s/face.jpg", scanID),
		},
	})
	state.metrics.IncrementEventsPublished()
	state.metrics.IncrementNFCScans()

	response := models.NFCStoreResponse{ScanID: scanID, Status: "stored"}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("NFC scan stored", "scan_id", scanID)
}

// handleGetFaceImage serves the stored face image bytes verbatim.
func handleGetFaceImage(state *ServerState, w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["scan_id"]
	slog.Debug("Face image requested", "scan_id", scanID)

	record, err := state.scanStore.GetScan(r.Context(), scanID)
	if errors.Is(err, ErrScanNotFound) {
		respondWithErr(w, http.StatusNotFound, ERR_SCAN_NOT_FOUND, "unknown scan id", err)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to load scan record", err)
		return
	}

	imageBytes, err := state.faceStore.Load(record.FaceImagePath)
	if err != nil {
		respondWithErr(w, http.StatusNotFound, ERR_SCAN_NOT_FOUND, "face image missing on disk", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	if _, err := w.Write(imageBytes); err != nil {
		slog.Error("failed to write face image to http response", "error", err)
	}
}

// handleEventStream pushes bus events to the client as server-sent
// events. A reconnecting viewer immediately receives the most recently
// published event before waiting for new ones.
func handleEventStream(state *ServerState, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "streaming unsupported by connection", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	subscription := state.bus.Subscribe()
	defer subscription.Close()
	state.metrics.AddStreamSubscriber()
	defer state.metrics.RemoveStreamSubscriber()

	slog.Info("Event stream subscriber connected")
	defer slog.Info("Event stream subscriber disconnected")

	for {
		event, err := subscription.Next(r.Context())
		if err != nil {
			// Client went away; stop pulling.
			return
		}

		payload, err := json.Marshal(event.Data)
		if err != nil {
			slog.Error("failed to marshal event payload", "event_type", event.Type, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

//go:embed static/index.html
var viewerPage []byte

// handleViewerPage serves the embedded status viewer.
func handleViewerPage(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Serving viewer page")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(viewerPage); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// corsMiddleware applies the permissive CORS policy of a local demo
// deployment to every route.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// helpers ------------

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(payload); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
	return nil
}
