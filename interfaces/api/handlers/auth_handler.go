package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"eals-backend/domain/repositories"
	"eals-backend/pkg/config"
	"eals-backend/pkg/logger"
	"eals-backend/pkg/utils"
)

const adminTokenTTL = 12 * time.Hour

// AuthHandler issues admin tokens for the HR console. Only HR staff can
// log in here; the kiosk itself is unauthenticated.
type AuthHandler struct {
	employeeRepo repositories.EmployeeRepository
	jwtSecret    string
}

func NewAuthHandler(employeeRepo repositories.EmployeeRepository, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		employeeRepo: employeeRepo,
		jwtSecret:    cfg.JWT.Secret,
	}
}

type LoginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token      string `json:"token"`
	EmployeeID string `json:"employee_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MustChange bool   `json:"must_change_password"`
}

// Login authenticates an HR employee and returns a signed token. A freshly
// enrolled account carries the seed credential (the uppercased surname);
// the first successful login upgrades it to a bcrypt hash.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if req.EmployeeID == "" || req.Password == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "employee_id and password are required", nil)
	}

	employee, err := h.employeeRepo.GetByID(c.Context(), req.EmployeeID)
	if err != nil {
		return utils.UnauthorizedResponse(c, "Invalid credentials")
	}
	if !employee.IsHR || !employee.IsActive() {
		logger.Warn(logger.CategoryAuth, "login", "non-HR or inactive login attempt", map[string]interface{}{
			"employee_id": req.EmployeeID,
		})
		return utils.UnauthorizedResponse(c, "Invalid credentials")
	}

	seeded := !strings.HasPrefix(employee.PasswordHash, "$2")
	if seeded {
		if employee.PasswordHash != strings.ToUpper(req.Password) {
			return utils.UnauthorizedResponse(c, "Invalid credentials")
		}
		// Upgrade the seed to a real hash in place.
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr == nil {
			employee.PasswordHash = string(hashed)
			if updErr := h.employeeRepo.Update(c.Context(), employee.ID, employee); updErr != nil {
				logger.Error(logger.CategoryAuth, "login", "seed credential upgrade failed", updErr, map[string]interface{}{
					"employee_id": employee.ID,
				})
			}
		}
	} else if bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password)) != nil {
		return utils.UnauthorizedResponse(c, "Invalid credentials")
	}

	token, err := utils.GenerateToken(employee.ID, employee.Email, "hr", h.jwtSecret, adminTokenTTL)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Token generation failed", err)
	}

	logger.Auth("login", "HR login", map[string]interface{}{"employee_id": employee.ID})
	return utils.SuccessResponse(c, "Login successful", LoginResponse{
		Token:      token,
		EmployeeID: employee.ID,
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
		MustChange: seeded,
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the caller's credential.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	admin, err := utils.GetAdminFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if len(req.NewPassword) < 8 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "New password must be at least 8 characters", nil)
	}

	employee, err := h.employeeRepo.GetByID(c.Context(), admin.EmployeeID)
	if err != nil {
		return utils.UnauthorizedResponse(c, "Not authenticated")
	}

	if strings.HasPrefix(employee.PasswordHash, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return utils.UnauthorizedResponse(c, "Current password is incorrect")
		}
	} else if employee.PasswordHash != strings.ToUpper(req.CurrentPassword) {
		return utils.UnauthorizedResponse(c, "Current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Password hashing failed", err)
	}
	employee.PasswordHash = string(hashed)
	if err := h.employeeRepo.Update(c.Context(), employee.ID, employee); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Password update failed", err)
	}

	logger.Auth("change_password", "credential replaced", map[string]interface{}{"employee_id": employee.ID})
	return utils.SuccessResponse(c, "Password changed", nil)
}

// Me returns the authenticated admin's identity.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	admin, err := utils.GetAdminFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "Not authenticated")
	}

	employee, err := h.employeeRepo.GetByID(c.Context(), admin.EmployeeID)
	if err != nil {
		return utils.NotFoundResponse(c, "Employee not found")
	}
	return utils.SuccessResponse(c, "OK", fiber.Map{
		"employee_id": employee.ID,
		"first_name":  employee.FirstName,
		"last_name":   employee.LastName,
		"email":       employee.Email,
		"department":  employee.Department,
		"position":    employee.Position,
	})
}
