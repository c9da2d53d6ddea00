package handlers

import (
	"gorm.io/gorm"

	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/faceapi"
	"eals-backend/infrastructure/redis"
	"eals-backend/infrastructure/sensor"
	"eals-backend/infrastructure/templatestore"
	"eals-backend/pkg/config"
)

// Services contains all the services needed for handlers
type Services struct {
	RecognitionService services.RecognitionService
	EnrollmentService  services.EnrollmentService
	AttendanceService  services.AttendanceService
	AuditService       services.AuditService
}

// Repositories contains repositories needed for some handlers
type Repositories struct {
	EmployeeRepository    repositories.EmployeeRepository
	FingerprintRepository repositories.FingerprintRepository
	FaceRepository        repositories.FaceRepository
	AttendanceRepository  repositories.AttendanceRepository
	SettingsRepository    repositories.SettingsRepository
	SystemLogRepository   repositories.SystemLogRepository
}

// Infra carries the infrastructure handles the health endpoint probes.
type Infra struct {
	DB           *gorm.DB
	Redis        *redis.RedisClient
	FaceClient   *faceapi.FaceClient
	SensorClient *sensor.SensorClient
	Store        *templatestore.Store
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth        *AuthHandler
	Recognition *RecognitionHandler
	Enrollment  *EnrollmentHandler
	Employee    *EmployeeHandler
	Settings    *SettingsHandler
	Attendance  *AttendanceHandler
	SystemLog   *SystemLogHandler
	Health      *HealthHandler
	Log         *LogHandler
}

// NewHandlers creates a new instance of Handlers with all dependencies
func NewHandlers(svcs *Services, repos *Repositories, infra *Infra, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:        NewAuthHandler(repos.EmployeeRepository, cfg),
		Recognition: NewRecognitionHandler(svcs.RecognitionService),
		Enrollment:  NewEnrollmentHandler(svcs.EnrollmentService),
		Employee: NewEmployeeHandler(
			repos.EmployeeRepository,
			repos.FingerprintRepository,
			repos.FaceRepository,
			repos.AttendanceRepository,
			infra.Store,
			svcs.AuditService,
		),
		Settings:   NewSettingsHandler(repos.SettingsRepository, svcs.AuditService),
		Attendance: NewAttendanceHandler(svcs.AttendanceService),
		SystemLog:  NewSystemLogHandler(svcs.AuditService, repos.SystemLogRepository),
		Health:     NewHealthHandler(infra.DB, infra.Redis, infra.FaceClient, infra.SensorClient),
		Log:        NewLogHandler(cfg),
	}
}
