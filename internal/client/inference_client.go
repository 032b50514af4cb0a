package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/simpledj/api/internal/config"
)

// InferenceClient talks to the separation inference service. It implements
// separation.Model: once initialized it is read-only and shared by every
// concurrent job.
type InferenceClient struct {
	httpClient *http.Client
	baseURL    string
	sampleRate int
	sources    []string
}

// modelInfo is the metadata the inference service reports once at load time.
type modelInfo struct {
	SampleRate int      `json:"sample_rate"`
	Sources    []string `json:"sources"`
}

type separateRequest struct {
	SampleRate int         `json:"sample_rate"`
	Chunk      [][]float64 `json:"chunk"`
}

type separateResponse struct {
	Sources map[string][][]float64 `json:"sources"`
}

// NewInferenceClient creates the client without touching the network;
// Init performs the expensive model load on the service side.
func NewInferenceClient(cfg *config.SeparationConfig) *InferenceClient {
	return &InferenceClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Init fetches the model metadata, triggering the service to load its
// weights if it has not already.
func (c *InferenceClient) Init(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/model", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service error: status %d", resp.StatusCode)
	}

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("failed to decode model info: %w", err)
	}
	if info.SampleRate <= 0 || len(info.Sources) == 0 {
		return fmt.Errorf("inference service reported invalid model info")
	}

	c.sampleRate = info.SampleRate
	c.sources = info.Sources
	return nil
}

// Sources returns the stem names the loaded model produces.
func (c *InferenceClient) Sources() []string {
	return c.sources
}

// SampleRate returns the rate the loaded model expects.
func (c *InferenceClient) SampleRate() int {
	return c.sampleRate
}

// Process separates one chunk via the inference service.
func (c *InferenceClient) Process(ctx context.Context, chunk [][]float64) (map[string][][]float64, error) {
	var result separateResponse
	req := separateRequest{SampleRate: c.sampleRate, Chunk: chunk}
	if err := c.post(ctx, "/separate", req, &result); err != nil {
		return nil, err
	}
	return result.Sources, nil
}

// HealthCheck checks if the inference service is available
func (c *InferenceClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// post sends a POST request with JSON body and parses the response
func (c *InferenceClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inference service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *InferenceClient) IsConfigured() bool {
	return c.baseURL != ""
}
