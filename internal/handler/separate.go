package handler

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/simpledj/api/internal/service"
	"github.com/simpledj/api/pkg/response"
)

// validAudioTypes lists the upload content types the decoder can handle.
var validAudioTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
}

type SeparateHandler struct {
	service   *service.SeparationService
	validator *validator.Validate
}

func NewSeparateHandler(svc *service.SeparationService, v *validator.Validate) *SeparateHandler {
	return &SeparateHandler{
		service:   svc,
		validator: v,
	}
}

// Separate handles POST /separate
func (h *SeparateHandler) Separate(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > h.service.MaxUploadBytes() {
		return response.PayloadTooLarge(c, fmt.Sprintf("File too large. Maximum size is %dMB", h.service.MaxUploadBytes()/(1024*1024)), map[string]interface{}{
			"maxSize":  h.service.MaxUploadBytes(),
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !validAudioTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: WAV, MP3", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.Submit(c.Context(), file.Filename, f, file.Size)
	if err != nil {
		if errors.Is(err, service.ErrPayloadTooLarge) {
			return response.PayloadTooLarge(c, "File too large", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}
