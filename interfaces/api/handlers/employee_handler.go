package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/postgres"
	"eals-backend/infrastructure/templatestore"
	"eals-backend/pkg/shift"
	"eals-backend/pkg/utils"
)

// EmployeeHandler is the HR console's employee management surface.
// Deletion cascades the biometric artifacts and attendance history.
type EmployeeHandler struct {
	employeeRepo    repositories.EmployeeRepository
	fingerprintRepo repositories.FingerprintRepository
	faceRepo        repositories.FaceRepository
	attendanceRepo  repositories.AttendanceRepository
	store           *templatestore.Store
	audit           services.AuditService
}

func NewEmployeeHandler(
	employeeRepo repositories.EmployeeRepository,
	fingerprintRepo repositories.FingerprintRepository,
	faceRepo repositories.FaceRepository,
	attendanceRepo repositories.AttendanceRepository,
	store *templatestore.Store,
	audit services.AuditService,
) *EmployeeHandler {
	return &EmployeeHandler{
		employeeRepo:    employeeRepo,
		fingerprintRepo: fingerprintRepo,
		faceRepo:        faceRepo,
		attendanceRepo:  attendanceRepo,
		store:           store,
		audit:           audit,
	}
}

// List returns a page of employees.
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	employees, total, err := h.employeeRepo.List(c.Context(), (page-1)*limit, limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list employees", err)
	}
	return utils.SuccessResponse(c, "OK", fiber.Map{
		"employees": employees,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Get returns one employee by id.
func (h *EmployeeHandler) Get(c *fiber.Ctx) error {
	employee, err := h.employeeRepo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if postgres.IsNotFound(err) {
			return utils.NotFoundResponse(c, "Employee not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch employee", err)
	}
	return utils.SuccessResponse(c, "OK", employee)
}

type UpdateEmployeeRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	MiddleInitial  string `json:"middle_initial"`
	Birthday       string `json:"birthday"`
	Gender         string `json:"gender"`
	Department     string `json:"department"`
	Position       string `json:"position"`
	Schedule       string `json:"schedule"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profile_picture"`
	Status         string `json:"status"`
}

// Update edits demographics. The employee id and biometric artifacts are
// immutable here; re-enrollment owns the latter.
func (h *EmployeeHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	employee, err := h.employeeRepo.GetByID(c.Context(), id)
	if err != nil {
		if postgres.IsNotFound(err) {
			return utils.NotFoundResponse(c, "Employee not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch employee", err)
	}

	var req UpdateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if req.FirstName != "" {
		employee.FirstName = req.FirstName
	}
	if req.LastName != "" {
		employee.LastName = req.LastName
	}
	if req.MiddleInitial != "" {
		employee.MiddleInitial = req.MiddleInitial
	}
	if req.Birthday != "" {
		birthday, err := time.Parse("2006-01-02", req.Birthday)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid birthday", err)
		}
		employee.Birthday = birthday
	}
	if req.Gender != "" {
		employee.Gender = req.Gender
	}
	if req.Department != "" && !employee.IsHR {
		employee.Department = req.Department
	}
	if req.Position != "" && !employee.IsHR {
		employee.Position = req.Position
	}
	if req.Schedule != "" {
		if _, err := shift.Parse(req.Schedule); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid schedule", err)
		}
		employee.Schedule = req.Schedule
	}
	if req.Email != "" {
		employee.Email = req.Email
	}
	if req.ProfilePicture != "" {
		employee.ProfilePicture = req.ProfilePicture
	}
	if req.Status != "" {
		if req.Status != models.StatusActive && req.Status != models.StatusInactive {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Status must be Active or Inactive", nil)
		}
		employee.Status = req.Status
	}

	if err := h.employeeRepo.Update(c.Context(), id, employee); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update employee", err)
	}

	h.audit.Record(c.Context(), "employee "+id+" updated")
	return utils.SuccessResponse(c, "Employee updated", employee)
}

// Delete removes the employee together with biometric rows, template files
// and attendance history.
func (h *EmployeeHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx := c.Context()

	if _, err := h.employeeRepo.GetByID(ctx, id); err != nil {
		if postgres.IsNotFound(err) {
			return utils.NotFoundResponse(c, "Employee not found")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch employee", err)
	}

	if err := h.fingerprintRepo.DeleteByEmployee(ctx, id); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete fingerprint rows", err)
	}
	if err := h.faceRepo.DeleteByEmployee(ctx, id); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete face rows", err)
	}
	if err := h.faceRepo.DeleteModel(ctx, id); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete face model", err)
	}
	if err := h.attendanceRepo.DeleteByEmployee(ctx, id); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete attendance history", err)
	}
	if err := h.employeeRepo.Delete(ctx, id); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete employee", err)
	}
	if err := h.store.DeleteEmployeeArtifacts(id); err != nil {
		// Rows are gone; orphan files are only a disk-space concern.
		h.audit.Record(ctx, "employee "+id+" deleted (artifact files left behind)")
		return utils.SuccessResponse(c, "Employee deleted, some artifact files could not be removed", nil)
	}

	h.audit.Record(ctx, "employee "+id+" deleted")
	return utils.SuccessResponse(c, "Employee deleted", nil)
}
