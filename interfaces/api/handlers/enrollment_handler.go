package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eals-backend/domain/services"
	"eals-backend/infrastructure/websocket"
	"eals-backend/pkg/utils"
)

// EnrollmentHandler exposes the three-step enrollment machine and the
// transactional re-enrollment flow.
type EnrollmentHandler struct {
	enrollment services.EnrollmentService
}

func NewEnrollmentHandler(enrollment services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollment: enrollment}
}

// Begin validates the demographics step and opens a session.
func (h *EnrollmentHandler) Begin(c *fiber.Ctx) error {
	var req services.Demographics
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	session, err := h.enrollment.Begin(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmployeeIDTaken),
			errors.Is(err, services.ErrNameTaken),
			errors.Is(err, services.ErrUnderage):
			return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), err)
		default:
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid demographics", err)
		}
	}
	return utils.CreatedResponse(c, "Enrollment session opened", session)
}

// EnrollFingerprint runs the three-capture enrollment for the session.
// Capture progress is streamed over the websocket so the UI can tick.
func (h *EnrollmentHandler) EnrollFingerprint(c *fiber.Ctx) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", err)
	}

	err = h.enrollment.EnrollFingerprint(c.Context(), sessionID, func(capture, total int) {
		websocket.Manager.Broadcast(websocket.EventFingerprintStatus, fiber.Map{
			"text":    "Fingerprint captured",
			"capture": capture,
			"total":   total,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return utils.NotFoundResponse(c, "Enrollment session not found")
		case errors.Is(err, services.ErrDuplicateEnrollment):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Fingerprint already enrolled to another employee", err)
		case errors.Is(err, services.ErrEnrollmentCancelled):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Enrollment cancelled", err)
		case errors.Is(err, services.ErrDeviceBusy):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Fingerprint device is in use", err)
		case errors.Is(err, services.ErrDeviceUnavailable):
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Fingerprint device unavailable", err)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Fingerprint enrollment failed", err)
		}
	}
	return utils.SuccessResponse(c, "Fingerprint enrolled", nil)
}

// FaceTick feeds one camera frame to the six-pose capture loop.
func (h *EnrollmentHandler) FaceTick(c *fiber.Ctx) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", err)
	}
	frame := c.Body()
	if len(frame) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Frame body is required", nil)
	}

	tick, err := h.enrollment.FaceTick(c.Context(), sessionID, frame)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return utils.NotFoundResponse(c, "Enrollment session not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Face capture failed", err)
	}
	return utils.SuccessResponse(c, "Frame processed", tick)
}

// Commit inserts the employee row and activates the captured artifacts.
func (h *EnrollmentHandler) Commit(c *fiber.Ctx) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", err)
	}

	employee, err := h.enrollment.Commit(c.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return utils.NotFoundResponse(c, "Enrollment session not found")
		case errors.Is(err, services.ErrIncompleteEnrollment):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Enrollment steps not completed", err)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Enrollment commit failed", err)
		}
	}
	return utils.CreatedResponse(c, "Employee enrolled", employee)
}

// Cancel aborts the session and removes partial artifacts.
func (h *EnrollmentHandler) Cancel(c *fiber.Ctx) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", err)
	}

	if err := h.enrollment.Cancel(c.Context(), sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return utils.NotFoundResponse(c, "Enrollment session not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Cancel failed", err)
	}
	return utils.SuccessResponse(c, "Enrollment cancelled", nil)
}

// BeginReenrollment opens a staged session for an existing employee.
func (h *EnrollmentHandler) BeginReenrollment(c *fiber.Ctx) error {
	employeeID := c.Params("id")

	session, err := h.enrollment.BeginReenrollment(c.Context(), employeeID)
	if err != nil {
		if errors.Is(err, services.ErrEmployeeNotFound) {
			return utils.NotFoundResponse(c, "Employee not found")
		}
		return utils.ErrorResponse(c, fiber.StatusConflict, "Re-enrollment could not start", err)
	}
	return utils.CreatedResponse(c, "Re-enrollment session opened", session)
}

// CommitReenrollment promotes the staged artifacts over the live ones.
func (h *EnrollmentHandler) CommitReenrollment(c *fiber.Ctx) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", err)
	}

	if err := h.enrollment.CommitReenrollment(c.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			return utils.NotFoundResponse(c, "Enrollment session not found")
		case errors.Is(err, services.ErrIncompleteEnrollment):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Nothing staged to commit", err)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Re-enrollment commit failed", err)
		}
	}
	return utils.SuccessResponse(c, "Re-enrollment committed", nil)
}

// DiscardReenrollment drops the staged artifacts; live data stays as it was.
func (h *EnrollmentHandler) DiscardReenrollment(c *fiber.Ctx) error {
	sessionID, err := h.sessionID(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session id", err)
	}

	if err := h.enrollment.DiscardReenrollment(c.Context(), sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			return utils.NotFoundResponse(c, "Enrollment session not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Discard failed", err)
	}
	return utils.SuccessResponse(c, "Re-enrollment discarded", nil)
}

func (h *EnrollmentHandler) sessionID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("session_id"))
}
