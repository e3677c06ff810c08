package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tedris-app/tedris-api/internal/dto"
	"github.com/tedris-app/tedris-api/internal/service"
	"github.com/tedris-app/tedris-api/internal/utils"
)

// AutoGradeHandler exposes the AI grading pipeline to administrators.
type AutoGradeHandler struct {
	service   service.AutoGradeService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAutoGradeHandler builds an auto-grade handler instance.
func NewAutoGradeHandler(service service.AutoGradeService, validate *validator.Validate, logger zerolog.Logger) *AutoGradeHandler {
	return &AutoGradeHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "autograde_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AutoGradeHandler) Register(router fiber.Router) {
	router.Post("/auto", h.runBatch)
	router.Get("/health", h.health)
	router.Post("/test", h.selfTest)
}

func (h *AutoGradeHandler) runBatch(c *fiber.Ctx) error {
	var payload dto.AutoGradeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	batchSize := -1
	if payload.BatchSize != nil {
		batchSize = *payload.BatchSize
	}

	summary, err := h.service.RunBatch(c.Context(), batchSize)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading batch completed", summary)
}

func (h *AutoGradeHandler) health(c *fiber.Ctx) error {
	health, err := h.service.Health(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	if !health.Success {
		return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "grader unreachable", health)
	}

	return utils.SendSuccess(c, "grader reachable", health)
}

func (h *AutoGradeHandler) selfTest(c *fiber.Ctx) error {
	result, err := h.service.SelfTest(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grader self-test completed", result)
}

func (h *AutoGradeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrGraderUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "grader unavailable")
	case errors.As(err, &validationErrors):
		return sendValidationError(c, validationErrors)
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
