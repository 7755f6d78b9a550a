package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierClient(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"symptoms": ["fever"], "predictions": [{"disease": "flu", "confidence": 0.8, "is_edge_case": false}], "common": ["flu"], "edge_cases": []}`,
		},
		{
			name:    "server_error",
			status:  http.StatusInternalServerError,
			body:    `{"error": "boom"}`,
			wantErr: "unexpected status 500",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/analyze", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req ClassifierRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "fever for two days", req.Transcript)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClassifierClient(srv.URL)
			resp, err := client.Analyze(context.Background(), ClassifierRequest{Transcript: "fever for two days"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			require.Len(t, resp.Predictions, 1)
			assert.Equal(t, "flu", resp.Predictions[0].Disease)
		})
	}
}

func TestTwinClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/twin", r.URL.Path)

		var req TwinRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p-42", req.PatientID)

		w.Write([]byte(`{
			"extracted_symptoms": [{"symptom": "fever", "confidence": 0.7}],
			"diagnosis_predictions": [{"disease": "flu", "probability": 0.6, "is_edge_case": false}],
			"risk_score": "MEDIUM",
			"patient_story": "A short story."
		}`))
	}))
	defer srv.Close()

	client := NewTwinClient(srv.URL)
	resp, err := client.Synthesize(context.Background(), TwinRequest{Transcript: "fever", PatientID: "p-42"})
	require.NoError(t, err)

	assert.Equal(t, "MEDIUM", resp.RiskScore)
	assert.Equal(t, "A short story.", resp.PatientStory)
	require.Len(t, resp.DiagnosisPredictions, 1)
	assert.InDelta(t, 0.6, resp.DiagnosisPredictions[0].Probability, 1e-9)
}

func TestTwinClientOmitsEmptyPatientID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, present := raw["patient_id"]
		assert.False(t, present)
		w.Write([]byte(`{"extracted_symptoms": [], "diagnosis_predictions": [], "risk_score": "", "patient_story": ""}`))
	}))
	defer srv.Close()

	_, err := NewTwinClient(srv.URL).Synthesize(context.Background(), TwinRequest{Transcript: "x"})
	require.NoError(t, err)
}
