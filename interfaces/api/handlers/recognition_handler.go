package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"eals-backend/domain/services"
	"eals-backend/pkg/utils"
)

// RecognitionHandler exposes the login-screen session to the kiosk UI.
type RecognitionHandler struct {
	recognition services.RecognitionService
}

func NewRecognitionHandler(recognition services.RecognitionService) *RecognitionHandler {
	return &RecognitionHandler{recognition: recognition}
}

// StartSession brings the enabled engines up for the login screen.
func (h *RecognitionHandler) StartSession(c *fiber.Ctx) error {
	state, err := h.recognition.StartSession(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start recognition session", err)
	}
	return utils.SuccessResponse(c, "Session started", state)
}

// StopSession tears the engines down.
func (h *RecognitionHandler) StopSession(c *fiber.Ctx) error {
	if err := h.recognition.StopSession(c.Context()); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to stop recognition session", err)
	}
	return utils.SuccessResponse(c, "Session stopped", nil)
}

// Status reports whether a session is live.
func (h *RecognitionHandler) Status(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "OK", fiber.Map{
		"active": h.recognition.SessionActive(),
	})
}

// HandleFrame feeds one camera frame through the face engine. The body is
// the raw JPEG; the response carries the smoothed boxes and, when a match
// cleared validation, the login result.
func (h *RecognitionHandler) HandleFrame(c *fiber.Ctx) error {
	frame := c.Body()
	if len(frame) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Frame body is required", nil)
	}

	outcome, err := h.recognition.HandleFaceFrame(c.Context(), frame)
	if err != nil {
		if errors.Is(err, services.ErrNoSession) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "No recognition session active", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Frame processing failed", err)
	}
	return utils.SuccessResponse(c, "Frame processed", outcome)
}

type ConfirmLoginRequest struct {
	EmployeeID string `json:"employee_id"`
}

// ConfirmLogin completes a short-shift Clock Out the subject approved on
// the result screen.
func (h *RecognitionHandler) ConfirmLogin(c *fiber.Ctx) error {
	var req ConfirmLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if req.EmployeeID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "employee_id is required", nil)
	}

	login, err := h.recognition.ConfirmLogin(c.Context(), req.EmployeeID)
	if err != nil {
		if errors.Is(err, services.ErrEmployeeNotFound) {
			return utils.NotFoundResponse(c, "Employee not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Confirmation failed", err)
	}
	return utils.SuccessResponse(c, "Login confirmed", login)
}

// RestartScan re-arms the engines after the result screen.
func (h *RecognitionHandler) RestartScan(c *fiber.Ctx) error {
	h.recognition.RestartScan()
	return utils.SuccessResponse(c, "Scan restarting", nil)
}
