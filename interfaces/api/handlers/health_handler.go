package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"eals-backend/infrastructure/faceapi"
	"eals-backend/infrastructure/redis"
	"eals-backend/infrastructure/sensor"
)

// HealthHandler probes the database, cache and both biometric bridges.
type HealthHandler struct {
	db           *gorm.DB
	redisClient  *redis.RedisClient
	faceClient   *faceapi.FaceClient
	sensorClient *sensor.SensorClient
}

func NewHealthHandler(
	db *gorm.DB,
	redisClient *redis.RedisClient,
	faceClient *faceapi.FaceClient,
	sensorClient *sensor.SensorClient,
) *HealthHandler {
	return &HealthHandler{
		db:           db,
		redisClient:  redisClient,
		faceClient:   faceClient,
		sensorClient: sensorClient,
	}
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse represents detailed health check response
type DetailedHealthResponse struct {
	Status     string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// Health is the basic liveness probe.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

// DetailedHealth checks every dependency. The biometric bridges are
// reported but never fail the overall status; the kiosk degrades to the
// remaining modality (or credentials) when one is down.
func (h *HealthHandler) DetailedHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	response := DetailedHealthResponse{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	allHealthy := true

	// Database
	start := time.Now()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		response.Components["database"] = ComponentHealth{Status: "error", Message: err.Error()}
		allHealthy = false
	} else {
		response.Components["database"] = ComponentHealth{Status: "ok", Latency: time.Since(start).String()}
	}

	// Redis
	start = time.Now()
	if err := h.redisClient.Ping(ctx); err != nil {
		response.Components["redis"] = ComponentHealth{Status: "error", Message: err.Error()}
		allHealthy = false
	} else {
		response.Components["redis"] = ComponentHealth{Status: "ok", Latency: time.Since(start).String()}
	}

	// Face analysis service
	start = time.Now()
	if h.faceClient.IsAvailable(ctx) {
		response.Components["face_api"] = ComponentHealth{Status: "ok", Latency: time.Since(start).String()}
	} else {
		response.Components["face_api"] = ComponentHealth{Status: "unavailable", Message: "face analysis service not responding"}
	}

	// Fingerprint sensor agent
	start = time.Now()
	if h.sensorClient.IsAvailable(ctx) {
		response.Components["sensor_agent"] = ComponentHealth{Status: "ok", Latency: time.Since(start).String()}
	} else {
		response.Components["sensor_agent"] = ComponentHealth{Status: "unavailable", Message: "sensor agent not responding"}
	}

	if allHealthy {
		response.Status = "healthy"
	} else {
		response.Status = "degraded"
	}

	code := fiber.StatusOK
	if response.Status == "unhealthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(response)
}
