package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Sensor    SensorConfig
	FaceAPI   FaceAPIConfig
	Biometric BiometricConfig
	Resources ResourcesConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name string
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type AdminConfig struct {
	Token string // Separate admin token for log access (falls back to JWT secret if not set)
}

// SensorConfig points at the fingerprint sensor agent that wraps the vendor SDK.
type SensorConfig struct {
	BaseURL string
	Enabled bool
}

// FaceAPIConfig points at the face analysis service (detection, landmarks,
// head pose angles and embedding extraction).
type FaceAPIConfig struct {
	BaseURL string
	Enabled bool
}

// BiometricConfig carries the matching thresholds. Defaults follow the
// values the system was tuned with; override per deployment via env.
type BiometricConfig struct {
	FingerprintMatchScore     int     // minimum SDK score for a 1:N identification hit
	FingerprintDuplicateScore int     // score against another employee that blocks enrollment
	FaceAcceptScore           float64 // minimum fused score for recognition
	FaceCandidateScore        float64 // candidate floor before the final acceptance check
	FaceCooldownSeconds       int     // per-subject suppression window after a face match
	DeviceCooldownSeconds     int     // wait between closing and reopening a device
}

type ResourcesConfig struct {
	Root string // base directory for templates, crops, profile pictures and audit logs
}

// RateLimitConfig throttles the credential endpoints.
type RateLimitConfig struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds int
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists (optional for production)
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	config := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "EALS Backend"),
			Port: getEnv("APP_PORT", "3000"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "eals"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""),
		},
		Sensor: SensorConfig{
			BaseURL: getEnv("SENSOR_AGENT_URL", "http://localhost:5100"),
			Enabled: getEnv("SENSOR_AGENT_ENABLED", "true") == "true",
		},
		FaceAPI: FaceAPIConfig{
			BaseURL: getEnv("FACE_API_URL", "http://localhost:5000"),
			Enabled: getEnv("FACE_API_ENABLED", "true") == "true",
		},
		Biometric: BiometricConfig{
			FingerprintMatchScore:     getEnvInt("FP_MATCH_SCORE", 50),
			FingerprintDuplicateScore: getEnvInt("FP_DUPLICATE_SCORE", 35),
			FaceAcceptScore:           getEnvFloat("FACE_ACCEPT_SCORE", 0.65),
			FaceCandidateScore:        getEnvFloat("FACE_CANDIDATE_SCORE", 0.60),
			FaceCooldownSeconds:       getEnvInt("FACE_COOLDOWN_SECONDS", 10),
			DeviceCooldownSeconds:     getEnvInt("DEVICE_COOLDOWN_SECONDS", 1),
		},
		Resources: ResourcesConfig{
			Root: getEnv("RESOURCES_ROOT", "resources"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			MaxRequests:   getEnvInt("RATE_LIMIT_MAX_REQUESTS", 20),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
