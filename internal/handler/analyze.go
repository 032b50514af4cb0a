package handler

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/simpledj/api/internal/service"
	"github.com/simpledj/api/pkg/response"
)

type AnalyzeHandler struct {
	service        *service.AnalysisService
	validator      *validator.Validate
	maxUploadBytes int64
}

func NewAnalyzeHandler(svc *service.AnalysisService, v *validator.Validate, maxUploadMB int) *AnalyzeHandler {
	return &AnalyzeHandler{
		service:        svc,
		validator:      v,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Analyze handles POST /analyze
func (h *AnalyzeHandler) Analyze(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > h.maxUploadBytes {
		return response.PayloadTooLarge(c, fmt.Sprintf("File too large. Maximum size is %dMB", h.maxUploadBytes/(1024*1024)), nil)
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	contents, err := io.ReadAll(f)
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}

	result, err := h.service.Analyze(c.Context(), file.Filename, contents)
	if err != nil {
		return response.AnalysisError(c, err.Error())
	}

	return response.OK(c, result)
}
