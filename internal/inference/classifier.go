// Package inference fans a transcript out to the two diagnostic
// collaborators (classifier and patient twin) and joins their differently
// shaped answers into one AnalysisResult. All field mapping between the two
// schemas happens here, at the boundary, never at the point of use.
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

// ClassifierClient calls the symptom/disease classifier collaborator.
type ClassifierClient interface {
	Analyze(ctx context.Context, req ClassifierRequest) (*ClassifierResponse, error)
}

// ClassifierRequest is the request body for POST /analyze.
type ClassifierRequest struct {
	Transcript string `json:"transcript"`
}

// ClassifierResponse is the classifier's own response schema. Confidence is
// its score field; the orchestrator normalizes it.
type ClassifierResponse struct {
	Symptoms    []string               `json:"symptoms"`
	Predictions []ClassifierPrediction `json:"predictions"`
	Common      []string               `json:"common"`
	EdgeCases   []string               `json:"edge_cases"`
}

// ClassifierPrediction is one ranked disease from the classifier.
type ClassifierPrediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
	IsEdgeCase bool    `json:"is_edge_case"`
}

// ClassifierOption configures the client.
type ClassifierOption func(*classifierClient)

// WithClassifierHTTPClient overrides the default http.Client.
func WithClassifierHTTPClient(hc *http.Client) ClassifierOption {
	return func(c *classifierClient) {
		c.http = hc
	}
}

type classifierClient struct {
	baseURL string
	http    *http.Client
}

// NewClassifierClient creates a classifier client against baseURL.
func NewClassifierClient(baseURL string, opts ...ClassifierOption) ClassifierClient {
	c := &classifierClient{
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

func (c *classifierClient) Analyze(ctx context.Context, req ClassifierRequest) (*ClassifierResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "classifier: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "classifier: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "classifier: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "classifier: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("classifier: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ClassifierResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "classifier: unmarshal response")
	}
	return &result, nil
}
