package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/simpledj/api/internal/service"
	"github.com/simpledj/api/internal/store"
	"github.com/simpledj/api/pkg/response"
)

type JobHandler struct {
	service   *service.SeparationService
	validator *validator.Validate
}

func NewJobHandler(svc *service.SeparationService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Status handles GET /job/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if err := h.validator.Var(jobID, "required,uuid4"); err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}

	result, err := h.service.Status(jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// DownloadStem handles GET /job/:jobId/stems/:stemName
func (h *JobHandler) DownloadStem(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if err := h.validator.Var(jobID, "required,uuid4"); err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}
	stemName := c.Params("stemName")
	if stemName == "" {
		return response.ValidationError(c, "Stem name is required", nil)
	}

	path, filename, err := h.service.StemFile(jobID, stemName)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrNotReady):
			return response.JobNotReady(c, "Job not completed yet")
		case errors.Is(err, service.ErrStemNotFound):
			return response.NotFound(c, "Stem not found")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Download(path, filename)
}

// List handles GET /jobs
func (h *JobHandler) List(c *fiber.Ctx) error {
	return response.OK(c, h.service.List())
}

// Delete handles DELETE /job/:jobId
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if err := h.validator.Var(jobID, "required,uuid4"); err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}

	if err := h.service.Delete(jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}
