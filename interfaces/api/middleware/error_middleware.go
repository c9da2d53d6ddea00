package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"eals-backend/domain/services"
	"eals-backend/pkg/logger"
	"eals-backend/pkg/utils"
)

// ErrorHandler is the app-level error sink: it maps domain sentinel errors
// that escape a handler to their status codes, so a handler that returns a
// service error unwrapped still answers with something better than a 500.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)

		logger.Error(logger.CategoryAPI, "error_handler", "Request error occurred", err, map[string]interface{}{"status_code": code, "path": c.Path(), "method": c.Method()})

		return utils.ErrorResponse(c, code, "An error occurred", err)
	}
}

func statusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrEmployeeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrEmployeeIDTaken),
		errors.Is(err, services.ErrNameTaken),
		errors.Is(err, services.ErrDuplicateEnrollment),
		errors.Is(err, services.ErrIncompleteEnrollment),
		errors.Is(err, services.ErrSessionNotActive),
		errors.Is(err, services.ErrEnrollmentActive),
		errors.Is(err, services.ErrEnrollmentCancelled),
		errors.Is(err, services.ErrNoSession),
		errors.Is(err, services.ErrDeviceBusy),
		errors.Is(err, services.ErrShiftCapExceeded):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrUnderage),
		errors.Is(err, services.ErrInactiveEmployee),
		errors.Is(err, services.ErrOutsideShift),
		errors.Is(err, services.ErrBiometricsDisabled):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrDeviceUnavailable),
		errors.Is(err, services.ErrFaceEngineTerminated):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
