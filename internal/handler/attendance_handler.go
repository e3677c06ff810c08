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

// AttendanceHandler manages per-class attendance endpoints.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler builds an attendance handler instance.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches the routes to a class-scoped router group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Post("/:classID/attendance", h.mark)
	router.Get("/:classID/attendance", h.list)
	router.Get("/:classID/attendance/lessons", h.lessonRollups)
	router.Get("/:classID/attendance/students", h.studentRollups)
}

func (h *AttendanceHandler) mark(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AttendanceMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	records, err := h.service.MarkLesson(c.Context(), classID, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance recorded", records)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	records, err := h.service.ListRecords(c.Context(), classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, records, "attendance retrieved", fiber.Map{"count": len(records)})
}

func (h *AttendanceHandler) lessonRollups(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rollups, err := h.service.LessonRollups(c.Context(), classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, rollups, "lesson rollups retrieved", fiber.Map{"count": len(rollups)})
}

func (h *AttendanceHandler) studentRollups(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "classID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rollups, err := h.service.StudentRollups(c.Context(), classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.OK(c, rollups, "student rollups retrieved", fiber.Map{"count": len(rollups)})
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "class not found")
	case errors.Is(err, service.ErrInvalidAttendanceStatus):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attendance status")
	case errors.As(err, &validationErrors):
		return sendValidationError(c, validationErrors)
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
