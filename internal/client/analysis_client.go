package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/simpledj/api/internal/config"
	"github.com/simpledj/api/internal/model"
)

// FeatureExtractor defines the interface for audio feature extraction
type FeatureExtractor interface {
	Analyze(ctx context.Context, filename string, contents []byte) (*model.AnalysisResult, error)
	IsConfigured() bool
}

// AnalysisClient implements FeatureExtractor for the feature-extraction
// service (BPM and musical-key estimation).
type AnalysisClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewAnalysisClient(cfg *config.AnalysisConfig) *AnalysisClient {
	return &AnalysisClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Analyze sends the raw upload to the feature-extraction service and returns
// BPM, key, duration and sample rate.
func (c *AnalysisClient) Analyze(ctx context.Context, filename string, contents []byte) (*model.AnalysisResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(contents); err != nil {
		return nil, fmt.Errorf("failed to write multipart form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach analysis service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("analysis service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	result.Filename = filename
	result.SizeBytes = int64(len(contents))
	return &result, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *AnalysisClient) IsConfigured() bool {
	return c.baseURL != ""
}
