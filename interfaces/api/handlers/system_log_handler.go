package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/postgres"
	"eals-backend/pkg/utils"
)

// SystemLogHandler serves the per-day attendance aggregates.
type SystemLogHandler struct {
	audit         services.AuditService
	systemLogRepo repositories.SystemLogRepository
}

func NewSystemLogHandler(audit services.AuditService, systemLogRepo repositories.SystemLogRepository) *SystemLogHandler {
	return &SystemLogHandler{audit: audit, systemLogRepo: systemLogRepo}
}

// GetByDate returns the aggregate row for one date.
func (h *SystemLogHandler) GetByDate(c *fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Date must be YYYY-MM-DD", err)
	}

	row, err := h.audit.GetAggregate(c.Context(), date)
	if err != nil {
		if postgres.IsNotFound(err) {
			return utils.NotFoundResponse(c, "No aggregate for this date")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load aggregate", err)
	}
	return utils.SuccessResponse(c, "OK", row)
}

// Recompute rebuilds a date's aggregate from the attendance log.
func (h *SystemLogHandler) Recompute(c *fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Date must be YYYY-MM-DD", err)
	}

	row, err := h.audit.RecomputeAggregate(c.Context(), date)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Recompute failed", err)
	}
	return utils.SuccessResponse(c, "Aggregate recomputed", row)
}

// List pages through historical aggregate rows.
func (h *SystemLogHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 30)
	if limit < 1 || limit > 100 {
		limit = 30
	}

	rows, total, err := h.systemLogRepo.List(c.Context(), (page-1)*limit, limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list aggregates", err)
	}
	return utils.SuccessResponse(c, "OK", fiber.Map{
		"logs":  rows,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
