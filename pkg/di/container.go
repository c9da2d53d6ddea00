package di

import (
	"context"
	"path/filepath"

	"gorm.io/gorm"

	"eals-backend/application/serviceimpl"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	"eals-backend/infrastructure/faceapi"
	"eals-backend/infrastructure/postgres"
	"eals-backend/infrastructure/redis"
	"eals-backend/infrastructure/sensor"
	"eals-backend/infrastructure/templatestore"
	"eals-backend/infrastructure/websocket"
	"eals-backend/infrastructure/worker"
	"eals-backend/interfaces/api/handlers"
	"eals-backend/pkg/config"
	"eals-backend/pkg/logger"
	"eals-backend/pkg/scheduler"
)

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	DB             *gorm.DB
	RedisClient    *redis.RedisClient
	Store          *templatestore.Store
	EventScheduler scheduler.EventScheduler
	SensorClient   *sensor.SensorClient
	FaceClient     *faceapi.FaceClient

	// Repositories
	EmployeeRepository    repositories.EmployeeRepository
	FingerprintRepository repositories.FingerprintRepository
	FaceRepository        repositories.FaceRepository
	AttendanceRepository  repositories.AttendanceRepository
	SessionRepository     repositories.EnrollmentSessionRepository
	SettingsRepository    repositories.SettingsRepository
	SystemLogRepository   repositories.SystemLogRepository

	// Services
	AuditService       services.AuditService
	AttendanceService  services.AttendanceService
	FingerprintService services.FingerprintService
	FaceService        services.FaceService
	EnrollmentService  services.EnrollmentService
	RecognitionService *serviceimpl.RecognitionServiceImpl

	// Workers
	ScanWorker *worker.ScanWorker
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}
	if err := c.initInfrastructure(); err != nil {
		return err
	}
	if err := c.initRepositories(); err != nil {
		return err
	}
	if err := c.initServices(); err != nil {
		return err
	}
	if err := c.initWorkers(); err != nil {
		return err
	}
	return c.initScheduler()
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	logger.Startup("config_loaded", "Configuration loaded", nil)
	return nil
}

func (c *Container) initInfrastructure() error {
	// Database
	dbConfig := postgres.DatabaseConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
	}
	db, err := postgres.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	c.DB = db
	logger.Startup("db_connected", "Database connected", nil)

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Startup("db_migrated", "Database migrated", nil)

	// Redis
	redisConfig := redis.RedisConfig{
		Host:     c.Config.Redis.Host,
		Port:     c.Config.Redis.Port,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
	c.RedisClient = redis.NewRedisClient(redisConfig)
	if err := c.RedisClient.Ping(context.Background()); err != nil {
		logger.StartupWarn("redis_connection_failed", "Redis connection failed", map[string]interface{}{"error": err.Error()})
	} else {
		logger.Startup("redis_connected", "Redis connected", nil)
	}

	// Template store (fingerprint templates, face crops, embeddings)
	store, err := templatestore.NewStore(c.Config.Resources.Root)
	if err != nil {
		return err
	}
	c.Store = store
	logger.Startup("template_store_ready", "Template store ready", map[string]interface{}{
		"root": c.Config.Resources.Root,
	})

	// Biometric bridges
	c.SensorClient = sensor.NewSensorClient(c.Config.Sensor.BaseURL)
	c.FaceClient = faceapi.NewFaceClient(c.Config.FaceAPI.BaseURL)
	return nil
}

func (c *Container) initRepositories() error {
	c.EmployeeRepository = postgres.NewEmployeeRepository(c.DB)
	c.FingerprintRepository = postgres.NewFingerprintRepository(c.DB)
	c.FaceRepository = postgres.NewFaceRepository(c.DB)
	c.AttendanceRepository = postgres.NewAttendanceRepository(c.DB)
	c.SessionRepository = postgres.NewEnrollmentSessionRepository(c.DB)
	c.SettingsRepository = postgres.NewSettingsRepository(c.DB)
	c.SystemLogRepository = postgres.NewSystemLogRepository(c.DB)
	logger.Startup("repositories_initialized", "Repositories initialized", nil)
	return nil
}

func (c *Container) initServices() error {
	c.AuditService = serviceimpl.NewAuditService(
		filepath.Join(c.Config.Resources.Root, "logs"),
		c.EmployeeRepository,
		c.AttendanceRepository,
		c.SystemLogRepository,
		c.RedisClient,
	)

	c.AttendanceService = serviceimpl.NewAttendanceService(
		c.AttendanceRepository,
		c.EmployeeRepository,
		c.AuditService,
	)

	c.FingerprintService = serviceimpl.NewFingerprintService(
		c.SensorClient,
		c.Store,
		c.Config.Biometric,
	)

	c.FaceService = serviceimpl.NewFaceService(
		c.FaceClient,
		c.FaceRepository,
		c.Store,
		c.Config.Biometric,
	)

	c.EnrollmentService = serviceimpl.NewEnrollmentService(
		c.EmployeeRepository,
		c.FingerprintRepository,
		c.FaceRepository,
		c.SessionRepository,
		c.SettingsRepository,
		c.FingerprintService,
		c.FaceService,
		c.Store,
		c.AuditService,
	)

	c.RecognitionService = serviceimpl.NewRecognitionService(
		c.SettingsRepository,
		c.EmployeeRepository,
		c.AttendanceService,
		c.FaceService,
		c.FingerprintService,
		c.AuditService,
		websocket.Manager,
		c.RedisClient,
		c.Config.Biometric,
	)

	logger.Startup("services_initialized", "Services initialized", nil)
	return nil
}

func (c *Container) initWorkers() error {
	// The worker and the dispatcher reference each other; the scanner
	// handle arrives after construction.
	c.ScanWorker = worker.NewScanWorker(c.FingerprintService, c.RecognitionService, websocket.Manager)
	c.RecognitionService.SetScanner(c.ScanWorker)
	c.ScanWorker.Start()
	return nil
}

func (c *Container) initScheduler() error {
	c.EventScheduler = scheduler.NewEventScheduler()

	if err := scheduler.RegisterJobs(
		c.EventScheduler,
		c.AuditService,
		c.EmployeeRepository,
		c.AttendanceRepository,
		c.SettingsRepository,
	); err != nil {
		return err
	}

	c.EventScheduler.Start()
	logger.Startup("scheduler_started", "Event scheduler started", nil)
	return nil
}

func (c *Container) Cleanup() error {
	if c.RecognitionService != nil {
		if err := c.RecognitionService.StopSession(context.Background()); err != nil {
			logger.StartupWarn("session_stop_failed", "Recognition session did not stop cleanly", map[string]interface{}{"error": err.Error()})
		}
	}
	if c.ScanWorker != nil {
		c.ScanWorker.Stop()
	}
	if c.EventScheduler != nil {
		c.EventScheduler.Stop()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.StartupWarn("redis_close_failed", "Redis close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.StartupWarn("db_close_failed", "Database close failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
	return nil
}

func (c *Container) GetConfig() *config.Config {
	return c.Config
}

func (c *Container) GetHandlerServices() *handlers.Services {
	return &handlers.Services{
		RecognitionService: c.RecognitionService,
		EnrollmentService:  c.EnrollmentService,
		AttendanceService:  c.AttendanceService,
		AuditService:       c.AuditService,
	}
}

func (c *Container) GetHandlerRepositories() *handlers.Repositories {
	return &handlers.Repositories{
		EmployeeRepository:    c.EmployeeRepository,
		FingerprintRepository: c.FingerprintRepository,
		FaceRepository:        c.FaceRepository,
		AttendanceRepository:  c.AttendanceRepository,
		SettingsRepository:    c.SettingsRepository,
		SystemLogRepository:   c.SystemLogRepository,
	}
}

func (c *Container) GetHandlerInfra() *handlers.Infra {
	return &handlers.Infra{
		DB:           c.DB,
		Redis:        c.RedisClient,
		FaceClient:   c.FaceClient,
		SensorClient: c.SensorClient,
		Store:        c.Store,
	}
}
