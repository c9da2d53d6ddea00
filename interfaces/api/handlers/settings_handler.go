package handlers

import (
	"github.com/gofiber/fiber/v2"

	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/pkg/utils"
)

// SettingsHandler manages the singleton configuration row. Toggle changes
// take effect on the next recognition session.
type SettingsHandler struct {
	settingsRepo repositories.SettingsRepository
	audit        services.AuditService
}

func NewSettingsHandler(settingsRepo repositories.SettingsRepository, audit services.AuditService) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo, audit: audit}
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settingsRepo.Get(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}
	return utils.SuccessResponse(c, "OK", settings)
}

type UpdateSettingsRequest struct {
	BackupPolicy    *string `json:"backup_policy"`
	RetentionDays   *int    `json:"retention_days"`
	IsFaceOn        *bool   `json:"is_face_on"`
	IsFingerprintOn *bool   `json:"is_fingerprint_on"`
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	settings, err := h.settingsRepo.Get(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}

	if req.BackupPolicy != nil {
		settings.BackupPolicy = *req.BackupPolicy
	}
	if req.RetentionDays != nil {
		if *req.RetentionDays < 1 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "retention_days must be positive", nil)
		}
		settings.RetentionDays = *req.RetentionDays
	}
	if req.IsFaceOn != nil {
		settings.IsFaceOn = *req.IsFaceOn
	}
	if req.IsFingerprintOn != nil {
		settings.IsFingerprintOn = *req.IsFingerprintOn
	}

	if err := h.settingsRepo.Update(c.Context(), settings); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update settings", err)
	}

	h.audit.Record(c.Context(), "system settings updated")
	return utils.SuccessResponse(c, "Settings updated", settings)
}
