package inference

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"diagnosis-decoder/internal/edgecase"
	"diagnosis-decoder/internal/fault"
)

// Handler exposes transcript analysis over HTTP.
type Handler struct {
	orch *Orchestrator
}

// NewHandler creates the analysis handler.
func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	PatientID  string `json:"patient_id"`
}

// analyzeResponse extends the merged result with the seeds projected into
// ready-to-edit edge-case entries.
type analyzeResponse struct {
	*AnalysisResult
	EdgeCases []edgecase.EdgeCase `json:"edge_cases"`
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.orch.Analyze(r.Context(), req.Transcript, req.PatientID)
	if err != nil {
		switch kind, _ := fault.KindOf(err); kind {
		case fault.ValidationFailed:
			http.Error(w, "Transcript is required", http.StatusBadRequest)
		case fault.AnalysisFailed:
			zap.L().Error("analysis failed", zap.Error(err))
			http.Error(w, "Analysis failed", http.StatusBadGateway)
		default:
			zap.L().Error("analysis failed", zap.Error(err))
			http.Error(w, "Analysis failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analyzeResponse{
		AnalysisResult: result,
		EdgeCases:      edgecase.Consolidate(result.EdgeCaseSeeds, nil),
	})
}

// RegisterRoutes mounts the analysis endpoint.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/diagnosis/analyze", h.HandleAnalyze)
}
