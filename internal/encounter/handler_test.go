package encounter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diagnosis-decoder/internal/auth"
	"diagnosis-decoder/internal/edgecase"
	"diagnosis-decoder/internal/inference"
)

type viewRepo struct {
	fakeRepo
	byID    map[string]*Encounter
	list    []Encounter
	listErr error
}

func (v *viewRepo) GetByID(ctx context.Context, id string) (*Encounter, error) {
	if e, ok := v.byID[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (v *viewRepo) ListByPatient(ctx context.Context, patientID string) ([]Encounter, error) {
	return v.list, v.listErr
}

type fakeOpener struct {
	name string
	data []byte
	ok   bool
}

func (f *fakeOpener) Open(encounterID string) (string, []byte, bool) {
	return f.name, f.data, f.ok
}

func patientSession(id string) auth.Session {
	return auth.Session{UserID: id, Email: id + "@example.com", Role: auth.RolePatient}
}

func serveAs(h http.Handler, r *http.Request, session auth.Session) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), session)))
	return w
}

func confirmBody(t *testing.T, mutate func(map[string]any)) *bytes.Reader {
	t.Helper()
	body := map[string]any{
		"patient_email":   "jane.doe@example.com",
		"final_diagnosis": "angina",
		"prescription":    map[string]string{"medication": "nitroglycerin", "dosage": "0.4mg", "instructions": "as needed"},
		"risk_level":      "HIGH",
		"summary":         "Exertional chest pain.",
	}
	if mutate != nil {
		mutate(body)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestHandleConfirmHTTP(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, nil))
	w := serveAs(http.HandlerFunc(h.HandleConfirm), req, doctorSession())

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["encounter_id"])
	assert.Equal(t, "prescription_jane.doe_2026-02-22.pdf", resp["artifact_filename"])
	assert.NotContains(t, resp, "artifact_error")
}

func TestHandleConfirmRejectsBadJSON(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", bytes.NewReader([]byte("{")))
	w := serveAs(http.HandlerFunc(h.HandleConfirm), req, doctorSession())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.repo.count())
}

func TestHandleConfirmValidationStatus(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, func(b map[string]any) {
		b["patient_email"] = "   "
	}))
	w := serveAs(http.HandlerFunc(h.HandleConfirm), req, doctorSession())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.repo.count())
}

func TestHandleConfirmUnauthenticated(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, nil))
	w := httptest.NewRecorder()
	h.HandleConfirm(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleConfirmInFlightStatus(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	entered := make(chan struct{})
	release := make(chan struct{})
	f.repo.onCreate = func() {
		close(entered)
		<-release
	}

	firstReq := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, nil))
	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		firstDone <- serveAs(http.HandlerFunc(h.HandleConfirm), firstReq, doctorSession())
	}()

	<-entered
	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, nil))
	second := serveAs(http.HandlerFunc(h.HandleConfirm), req, doctorSession())
	assert.Equal(t, http.StatusConflict, second.Code)

	close(release)
	first := <-firstDone
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, f.repo.count())
}

func TestHandleConfirmArtifactFailureStatus(t *testing.T) {
	f := newFixture()
	f.generator.err = eris.New("font missing")
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, nil))
	w := serveAs(http.HandlerFunc(h.HandleConfirm), req, doctorSession())

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["encounter_id"])
	assert.NotEmpty(t, resp["artifact_error"])
}

func TestHandleConfirmPersistFailureStatus(t *testing.T) {
	f := newFixture()
	f.repo.createErr = eris.New("connection reset")
	h := NewHandler(f.svc, f.repo, &fakeOpener{})

	req := httptest.NewRequest(http.MethodPost, "/diagnosis/confirm", confirmBody(t, nil))
	w := serveAs(http.HandlerFunc(h.HandleConfirm), req, doctorSession())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func patientEncounters() []Encounter {
	return []Encounter{
		{
			ID:             "enc-2",
			PatientID:      "patient-1",
			FinalDiagnosis: "angina",
			Prescription:   Prescription{Medication: "nitroglycerin", Dosage: "0.4mg"},
			EdgeCases:      []edgecase.EdgeCase{{Name: "silent ischemia", FurtherSteps: "stress test"}},
			RiskLevel:      inference.RiskHigh,
		},
		{
			ID:             "enc-1",
			PatientID:      "patient-1",
			FinalDiagnosis: "reflux",
			Prescription:   Prescription{Medication: "omeprazole", Dosage: "20mg"},
			RiskLevel:      inference.RiskLow,
		},
	}
}

func TestHandlePatientGet(t *testing.T) {
	repo := &viewRepo{list: patientEncounters()}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/patient/patient-1", nil)
	w := serveAs(r, req, patientSession("patient-1"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp patientResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "patient-1", resp.PatientID)
	require.Len(t, resp.Diagnoses, 2)
	require.Len(t, resp.Prescriptions, 2)
	assert.Equal(t, "enc-2", resp.Prescriptions[0].EncounterID)
	assert.Equal(t, "nitroglycerin", resp.Prescriptions[0].Medication)
	assert.Equal(t, "angina", resp.Explanation)
	assert.Equal(t, []string{"silent ischemia"}, resp.EdgeCases)
}

func TestHandlePatientGetEmptyHistory(t *testing.T) {
	repo := &viewRepo{}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/patient/patient-9", nil)
	w := serveAs(r, req, patientSession("patient-9"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp patientResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Diagnoses)
	assert.Empty(t, resp.Explanation)
	assert.NotNil(t, resp.EdgeCases)
}

func TestHandlePatientGetForbiddenForOtherPatient(t *testing.T) {
	repo := &viewRepo{list: patientEncounters()}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/patient/patient-1", nil)
	w := serveAs(r, req, patientSession("patient-2"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandlePatientGetDoctorCanViewAnyPatient(t *testing.T) {
	repo := &viewRepo{list: patientEncounters()}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/patient/patient-1", nil)
	w := serveAs(r, req, doctorSession())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleArtifactDownload(t *testing.T) {
	enc := patientEncounters()[0]
	repo := &viewRepo{byID: map[string]*Encounter{enc.ID: &enc}}
	opener := &fakeOpener{name: "prescription_jane.doe_2026-02-22.pdf", data: []byte("%PDF-fake"), ok: true}
	f := newFixture()
	h := NewHandler(f.svc, repo, opener)

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/diagnosis/artifact/enc-2", nil)
	w := serveAs(r, req, patientSession("patient-1"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="prescription_jane.doe_2026-02-22.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("%PDF-fake"), w.Body.Bytes())
}

func TestHandleArtifactDownloadUnknownEncounter(t *testing.T) {
	repo := &viewRepo{}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/diagnosis/artifact/missing", nil)
	w := serveAs(r, req, doctorSession())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleArtifactDownloadForbiddenForOtherPatient(t *testing.T) {
	enc := patientEncounters()[0]
	repo := &viewRepo{byID: map[string]*Encounter{enc.ID: &enc}}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{ok: true, name: "x.pdf", data: []byte("x")})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/diagnosis/artifact/enc-2", nil)
	w := serveAs(r, req, patientSession("patient-2"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleArtifactDownloadMissingDocument(t *testing.T) {
	enc := patientEncounters()[0]
	repo := &viewRepo{byID: map[string]*Encounter{enc.ID: &enc}}
	f := newFixture()
	h := NewHandler(f.svc, repo, &fakeOpener{ok: false})

	r := chi.NewRouter()
	RegisterRoutes(r, h)

	req := httptest.NewRequest(http.MethodGet, "/diagnosis/artifact/enc-2", nil)
	w := serveAs(r, req, patientSession("patient-1"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
