package repositories

import (
	"context"

	"eals-backend/domain/models"
)

type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	List(ctx context.Context, offset, limit int) ([]models.Employee, int64, error)
	Update(ctx context.Context, id string, employee *models.Employee) error
	UpdateStatus(ctx context.Context, id string, status string) error

	// Delete removes the employee row; biometric artifact rows and the
	// attendance history cascade with it.
	Delete(ctx context.Context, id string) error

	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, firstName, lastName string) (bool, error)

	// ListActiveNonHR backs the daily aggregate (present/absent/late are
	// computed over active non-HR staff only).
	ListActiveNonHR(ctx context.Context) ([]models.Employee, error)

	// IncrementCounters bumps the cached attendance/late/absent counters.
	IncrementCounters(ctx context.Context, id string, attendance, late, absent int) error
}
