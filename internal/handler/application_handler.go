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

// ApplicationHandler manages registration application endpoints.
type ApplicationHandler struct {
	service service.ApplicationService
	logger  zerolog.Logger
}

// NewApplicationHandler builds an application handler instance.
func NewApplicationHandler(service service.ApplicationService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "application_handler").Logger(),
	}
}

// RegisterPublic attaches the unauthenticated submit route.
func (h *ApplicationHandler) RegisterPublic(router fiber.Router) {
	router.Post("", h.submit)
}

// RegisterAdmin attaches the admin listing and decision routes.
func (h *ApplicationHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/decision", h.decide)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	var payload dto.ApplicationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.Submit(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application received", application)
}

func (h *ApplicationHandler) list(c *fiber.Ctx) error {
	var status *string
	if value := c.Query("status"); value != "" {
		status = &value
	}

	applications, err := h.service.List(c.Context(), status)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, applications, "applications retrieved", fiber.Map{"count": len(applications)})
}

func (h *ApplicationHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.Decide(c.Context(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "application decided", application)
}

func (h *ApplicationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrApplicationDecided):
		return utils.SendError(c, fiber.StatusConflict, "application already decided")
	case errors.As(err, &validationErrors):
		return sendValidationError(c, validationErrors)
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
