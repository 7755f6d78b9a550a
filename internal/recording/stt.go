package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// STTClient calls the speech-to-text collaborator.
type STTClient interface {
	Transcribe(ctx context.Context, audioData []byte) (*STTResponse, error)
}

// STTResponse is the collaborator's transcription result. IsStub marks the
// sentinel answer a backend without a configured model returns.
type STTResponse struct {
	Transcript string `json:"transcript"`
	IsStub     bool   `json:"is_stub"`
}

// STTOption configures the client.
type STTOption func(*sttClient)

// WithSTTHTTPClient overrides the default http.Client.
func WithSTTHTTPClient(hc *http.Client) STTOption {
	return func(c *sttClient) {
		c.http = hc
	}
}

type sttClient struct {
	baseURL string
	http    *http.Client
}

// NewSTTClient creates a speech-to-text client against baseURL.
func NewSTTClient(baseURL string, opts ...STTOption) STTClient {
	c := &sttClient{
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

func (c *sttClient) Transcribe(ctx context.Context, audioData []byte) (*STTResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.webm")
	if err != nil {
		return nil, eris.Wrap(err, "stt: create form file")
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, eris.Wrap(err, "stt: write form file")
	}
	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "stt: close form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", body)
	if err != nil {
		return nil, eris.Wrap(err, "stt: create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "stt: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, eris.Errorf("stt: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result STTResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, eris.Wrap(err, "stt: decode response")
	}
	return &result, nil
}
