package encounter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"diagnosis-decoder/internal/auth"
	"diagnosis-decoder/internal/bus"
	"diagnosis-decoder/internal/edgecase"
	"diagnosis-decoder/internal/fault"
	"diagnosis-decoder/internal/inference"
)

// ErrInFlight marks a confirmation rejected because the same session
// already has one pending. Double submission must not create a duplicate
// encounter.
var ErrInFlight = eris.New("encounter: confirmation already in progress")

// ArtifactGenerator renders the downloadable document for a confirmed
// encounter.
type ArtifactGenerator interface {
	Generate(e *Encounter) ([]byte, error)
}

// ArtifactStore keeps generated documents for later download.
type ArtifactStore interface {
	Save(encounterID, filename string, data []byte) error
}

// ConfirmInput is the finalized data the clinician submits.
type ConfirmInput struct {
	PatientEmail   string
	FinalDiagnosis string
	Prescription   Prescription
	Symptoms       []inference.SymptomObservation
	Predictions    []inference.DiagnosisPrediction
	EdgeCases      []edgecase.EdgeCase
	RiskLevel      inference.RiskLevel
	Summary        string
}

// ConfirmOutput reports the transaction's outcome. Encounter is set whenever
// persistence succeeded, including the partial-success case where only the
// artifact failed.
type ConfirmOutput struct {
	Encounter        *Encounter
	ArtifactFilename string
}

// Service runs the confirmation transaction: validate, persist exactly once,
// generate the artifact, publish the completion notification.
type Service struct {
	repo      Repository
	users     auth.Repository
	generator ArtifactGenerator
	artifacts ArtifactStore
	notify    *bus.Bus[Notification]
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

// NewService creates the confirmation service. now may be nil for the wall
// clock.
func NewService(repo Repository, users auth.Repository, generator ArtifactGenerator, artifacts ArtifactStore, notify *bus.Bus[Notification], now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		users:     users,
		generator: generator,
		artifacts: artifacts,
		notify:    notify,
		now:       now,
		inflight:  make(map[string]bool),
	}
}

// Confirm executes the transaction for the given session. It is
// single-flight per session: a second call while one is pending is rejected
// before any side effect. Sequential calls are not idempotent; confirming
// twice creates two encounters.
func (s *Service) Confirm(ctx context.Context, session auth.Session, in ConfirmInput) (*ConfirmOutput, error) {
	email := strings.TrimSpace(in.PatientEmail)
	diagnosis := strings.TrimSpace(in.FinalDiagnosis)
	if email == "" {
		return nil, fault.New(fault.ValidationFailed, "encounter: patient identifier is required")
	}
	if diagnosis == "" {
		return nil, fault.New(fault.ValidationFailed, "encounter: final diagnosis is required")
	}

	if !s.begin(session.UserID) {
		return nil, fault.Wrap(fault.ValidationFailed, ErrInFlight, "encounter: confirm")
	}
	defer s.end(session.UserID)

	patient, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fault.Wrap(fault.ValidationFailed, err, "encounter: no patient found with that email")
	}

	now := s.now()
	enc := &Encounter{
		ID:               uuid.NewString(),
		PatientID:        patient.ID,
		PatientEmail:     strings.ToLower(email),
		FinalDiagnosis:   diagnosis,
		Prescription:     in.Prescription,
		Symptoms:         in.Symptoms,
		Predictions:      in.Predictions,
		EdgeCases:        in.EdgeCases,
		RiskLevel:        in.RiskLevel,
		NarrativeSummary: in.Summary,
		CreatedAt:        now,
	}

	if err := s.repo.Create(ctx, enc); err != nil {
		return nil, fault.Wrap(fault.PersistFailed, err, "encounter: persist")
	}

	out := &ConfirmOutput{
		Encounter:        enc,
		ArtifactFilename: ArtifactFilename(email, now),
	}

	// The encounter is already persisted; from here a failure degrades to
	// a missing document, never a lost record.
	data, err := s.generator.Generate(enc)
	if err == nil {
		err = s.artifacts.Save(enc.ID, out.ArtifactFilename, data)
	}

	s.publish(enc)

	if err != nil {
		zap.L().Error("artifact generation failed",
			zap.String("encounter_id", enc.ID),
			zap.Error(err))
		return out, fault.Wrap(fault.ArtifactFailed, err, "encounter: generate artifact")
	}

	zap.L().Info("encounter confirmed",
		zap.String("encounter_id", enc.ID),
		zap.String("patient_id", enc.PatientID),
		zap.String("diagnosis", enc.FinalDiagnosis))
	return out, nil
}

// ArtifactFilename derives the deterministic document name from the patient
// identifier's local part and the confirmation date:
// prescription_{localpart}_{yyyy-mm-dd}.pdf
func ArtifactFilename(patientIdentifier string, date time.Time) string {
	local := strings.TrimSpace(patientIdentifier)
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	return fmt.Sprintf("prescription_%s_%s.pdf", local, date.Format("2006-01-02"))
}

func (s *Service) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[sessionID] {
		return false
	}
	s.inflight[sessionID] = true
	return true
}

func (s *Service) end(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, sessionID)
}

// publish emits the completion notification. Best-effort: it never blocks
// and never fails the transaction.
func (s *Service) publish(enc *Encounter) {
	if s.notify == nil {
		return
	}

	symptoms := make([]string, len(enc.Symptoms))
	for i, sym := range enc.Symptoms {
		symptoms[i] = sym.Name
	}

	s.notify.Publish(Notification{
		ID:           enc.ID,
		PatientName:  enc.PatientEmail,
		Date:         enc.CreatedAt.Format("2006-01-02"),
		Time:         enc.CreatedAt.Format("15:04"),
		Diagnosis:    enc.FinalDiagnosis,
		Risk:         string(enc.RiskLevel),
		Status:       "completed",
		Symptoms:     symptoms,
		Predictions:  enc.Predictions,
		Prescription: enc.Prescription,
		Summary:      enc.NarrativeSummary,
	})
}
