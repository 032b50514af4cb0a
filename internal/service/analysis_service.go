package service

import (
	"context"
	"fmt"

	"github.com/simpledj/api/internal/client"
	"github.com/simpledj/api/internal/model"
)

// AnalysisService delegates BPM/key feature extraction to the external
// analysis service.
type AnalysisService struct {
	extractor client.FeatureExtractor
}

func NewAnalysisService(extractor client.FeatureExtractor) *AnalysisService {
	return &AnalysisService{extractor: extractor}
}

// Analyze runs a single-pass feature extraction over the upload.
func (s *AnalysisService) Analyze(ctx context.Context, filename string, contents []byte) (*model.AnalysisResult, error) {
	if s.extractor == nil || !s.extractor.IsConfigured() {
		return nil, fmt.Errorf("analysis service not configured")
	}
	return s.extractor.Analyze(ctx, filename, contents)
}

// IsConfigured reports whether an extractor backend is wired up.
func (s *AnalysisService) IsConfigured() bool {
	return s.extractor != nil && s.extractor.IsConfigured()
}
