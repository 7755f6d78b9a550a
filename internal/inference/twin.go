package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// TwinClient calls the patient-twin synthesis collaborator (the LLM side).
type TwinClient interface {
	Synthesize(ctx context.Context, req TwinRequest) (*TwinResponse, error)
}

// TwinRequest is the request body for POST /twin.
type TwinRequest struct {
	Transcript string `json:"transcript"`
	PatientID  string `json:"patient_id,omitempty"`
}

// TwinResponse is the patient twin's own response schema. Probability is its
// score field and RiskScore its risk label; the orchestrator normalizes both.
type TwinResponse struct {
	ExtractedSymptoms    []TwinSymptom    `json:"extracted_symptoms"`
	DiagnosisPredictions []TwinPrediction `json:"diagnosis_predictions"`
	RiskScore            string           `json:"risk_score"`
	PatientStory         string           `json:"patient_story"`
}

// TwinSymptom is one symptom the twin extracted, with its confidence.
type TwinSymptom struct {
	Symptom    string  `json:"symptom"`
	Confidence float64 `json:"confidence"`
}

// TwinPrediction is one ranked disease from the twin.
type TwinPrediction struct {
	Disease     string  `json:"disease"`
	Probability float64 `json:"probability"`
	IsEdgeCase  bool    `json:"is_edge_case"`
}

// TwinOption configures the client.
type TwinOption func(*twinClient)

// WithTwinHTTPClient overrides the default http.Client.
func WithTwinHTTPClient(hc *http.Client) TwinOption {
	return func(c *twinClient) {
		c.http = hc
	}
}

type twinClient struct {
	baseURL string
	http    *http.Client
}

// NewTwinClient creates a patient-twin client against baseURL.
func NewTwinClient(baseURL string, opts ...TwinOption) TwinClient {
	c := &twinClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *twinClient) Synthesize(ctx context.Context, req TwinRequest) (*TwinResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "twin: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/twin", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "twin: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "twin: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "twin: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("twin: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result TwinResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "twin: unmarshal response")
	}
	return &result, nil
}
