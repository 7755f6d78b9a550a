package recording

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"diagnosis-decoder/internal/fault"
)

// Handler exposes the recording pipeline over HTTP.
type Handler struct {
	pipeline *Pipeline
}

// NewHandler creates the recording handler.
func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

type uploadResponse struct {
	UploadID string `json:"upload_id"`
}

type transcribeRequest struct {
	UploadID string `json:"upload_id"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
	UploadID   string `json:"upload_id"`
	IsStub     bool   `json:"is_stub"`
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "audio/") {
		http.Error(w, "Expected an audio file", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	handle, err := h.pipeline.Upload(buf.Bytes(), filepath.Ext(header.Filename))
	if err != nil {
		zap.L().Error("upload failed", zap.Error(err))
		http.Error(w, "Upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{UploadID: handle})
}

func (h *Handler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UploadID == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.pipeline.Transcribe(r.Context(), req.UploadID)
	if err != nil {
		switch kind, _ := fault.KindOf(err); kind {
		case fault.UploadFailed:
			http.Error(w, "Upload not found or expired", http.StatusNotFound)
		case fault.TranscriptionTimeout:
			http.Error(w, "Transcription timed out; enter the transcript manually", http.StatusGatewayTimeout)
		default:
			zap.L().Error("transcription failed", zap.String("upload_id", req.UploadID), zap.Error(err))
			http.Error(w, "Transcription failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transcribeResponse{
		Transcript: result.Transcript,
		UploadID:   req.UploadID,
		IsStub:     result.NoTranscript,
	})
}

// RegisterRoutes mounts the recording endpoints.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/record/upload", h.HandleUpload)
	r.Post("/record/transcribe", h.HandleTranscribe)
}
