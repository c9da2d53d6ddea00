package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"eals-backend/domain/services"
	"eals-backend/pkg/utils"
)

// AttendanceHandler serves the HR console's day listings.
type AttendanceHandler struct {
	attendance services.AttendanceService
}

func NewAttendanceHandler(attendance services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// ListByDate returns every event on a calendar date.
func (h *AttendanceHandler) ListByDate(c *fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Date must be YYYY-MM-DD", err)
	}

	logs, err := h.attendance.ListByDate(c.Context(), date)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list attendance", err)
	}
	return utils.SuccessResponse(c, "OK", fiber.Map{
		"date":   date,
		"events": logs,
	})
}

// ListByEmployee returns one employee's events on a date.
func (h *AttendanceHandler) ListByEmployee(c *fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Date must be YYYY-MM-DD", err)
	}

	logs, err := h.attendance.ListByEmployeeAndDate(c.Context(), c.Params("id"), date)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list attendance", err)
	}
	return utils.SuccessResponse(c, "OK", fiber.Map{
		"employee_id": c.Params("id"),
		"date":        date,
		"events":      logs,
	})
}
