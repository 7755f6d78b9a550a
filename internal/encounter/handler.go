package encounter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"diagnosis-decoder/internal/auth"
	"diagnosis-decoder/internal/edgecase"
	"diagnosis-decoder/internal/fault"
	"diagnosis-decoder/internal/inference"
)

// ArtifactOpener serves previously generated documents.
type ArtifactOpener interface {
	Open(encounterID string) (string, []byte, bool)
}

// Handler exposes confirmation and the patient read path over HTTP.
type Handler struct {
	svc       *Service
	repo      Repository
	artifacts ArtifactOpener
}

// NewHandler creates the encounter handler.
func NewHandler(svc *Service, repo Repository, artifacts ArtifactOpener) *Handler {
	return &Handler{svc: svc, repo: repo, artifacts: artifacts}
}

type confirmRequest struct {
	PatientEmail   string                          `json:"patient_email"`
	FinalDiagnosis string                          `json:"final_diagnosis"`
	Prescription   Prescription                    `json:"prescription"`
	Symptoms       []inference.SymptomObservation  `json:"symptoms"`
	Predictions    []inference.DiagnosisPrediction `json:"predictions"`
	EdgeCases      []edgecase.EdgeCase             `json:"edge_cases"`
	RiskLevel      string                          `json:"risk_level"`
	Summary        string                          `json:"summary"`
}

type confirmResponse struct {
	Success          bool   `json:"success"`
	EncounterID      string `json:"encounter_id,omitempty"`
	ArtifactFilename string `json:"artifact_filename,omitempty"`
	ArtifactError    string `json:"artifact_error,omitempty"`
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	out, err := h.svc.Confirm(r.Context(), session, ConfirmInput{
		PatientEmail:   req.PatientEmail,
		FinalDiagnosis: req.FinalDiagnosis,
		Prescription:   req.Prescription,
		Symptoms:       req.Symptoms,
		Predictions:    req.Predictions,
		EdgeCases:      req.EdgeCases,
		RiskLevel:      inference.ParseRiskLevel(req.RiskLevel),
		Summary:        req.Summary,
	})
	if err != nil {
		switch kind, _ := fault.KindOf(err); {
		case errors.Is(err, ErrInFlight):
			http.Error(w, "A confirmation is already in progress", http.StatusConflict)
		case kind == fault.ValidationFailed:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case kind == fault.ArtifactFailed:
			// Partial success: the encounter is persisted, only the
			// document is missing.
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(confirmResponse{
				Success:          true,
				EncounterID:      out.Encounter.ID,
				ArtifactFilename: out.ArtifactFilename,
				ArtifactError:    "Document generation failed; regenerate the prescription separately",
			})
		default:
			zap.L().Error("confirm failed", zap.Error(err))
			http.Error(w, "Save failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(confirmResponse{
		Success:          true,
		EncounterID:      out.Encounter.ID,
		ArtifactFilename: out.ArtifactFilename,
	})
}

type patientResponse struct {
	PatientID     string                `json:"patient_id"`
	Diagnoses     []Encounter           `json:"diagnoses"`
	Prescriptions []patientPrescription `json:"prescriptions"`
	Explanation   string                `json:"explanation"`
	EdgeCases     []string              `json:"edge_cases"`
}

type patientPrescription struct {
	EncounterID string `json:"encounter_id"`
	Prescription
}

func (h *Handler) HandlePatientGet(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	patientID := chi.URLParam(r, "patientID")
	if session.Role == auth.RolePatient && session.UserID != patientID {
		http.Error(w, "Can only view own dashboard", http.StatusForbidden)
		return
	}

	encounters, err := h.repo.ListByPatient(r.Context(), patientID)
	if err != nil {
		zap.L().Error("patient load failed", zap.String("patient_id", patientID), zap.Error(err))
		http.Error(w, "Failed to load patient", http.StatusInternalServerError)
		return
	}

	resp := patientResponse{
		PatientID:     patientID,
		Diagnoses:     encounters,
		Prescriptions: make([]patientPrescription, 0, len(encounters)),
		EdgeCases:     []string{},
	}
	for _, e := range encounters {
		resp.Prescriptions = append(resp.Prescriptions, patientPrescription{
			EncounterID:  e.ID,
			Prescription: e.Prescription,
		})
	}
	if len(encounters) > 0 {
		latest := encounters[0]
		resp.Explanation = latest.FinalDiagnosis
		resp.EdgeCases = edgecase.Names(latest.EdgeCases)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	encounterID := chi.URLParam(r, "encounterID")
	enc, err := h.repo.GetByID(r.Context(), encounterID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Encounter not found", http.StatusNotFound)
			return
		}
		zap.L().Error("encounter load failed", zap.String("encounter_id", encounterID), zap.Error(err))
		http.Error(w, "Failed to load encounter", http.StatusInternalServerError)
		return
	}

	if session.Role == auth.RolePatient && session.UserID != enc.PatientID {
		http.Error(w, "Can only download own documents", http.StatusForbidden)
		return
	}

	name, data, ok := h.artifacts.Open(encounterID)
	if !ok {
		http.Error(w, "Document not available; regenerate it first", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Write(data)
}

// RegisterRoutes mounts the encounter endpoints. Confirm requires the
// doctor role and is registered separately by the caller.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/patient/{patientID}", h.HandlePatientGet)
	r.Get("/diagnosis/artifact/{encounterID}", h.HandleArtifactDownload)
}

// RegisterDoctorRoutes mounts the endpoints gated on the doctor role.
func RegisterDoctorRoutes(r chi.Router, h *Handler) {
	r.Post("/diagnosis/confirm", h.HandleConfirm)
}
