package routes

import (
	"github.com/gofiber/fiber/v2"

	"eals-backend/interfaces/api/handlers"
	"eals-backend/interfaces/api/middleware"
	"eals-backend/pkg/config"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, cfg *config.Config) {
	// Health and root routes
	app.Get("/health", h.Health.Health)
	app.Get("/health/detailed", h.Health.DetailedHealth)

	// API version group
	api := app.Group("/api/v1")

	protected := middleware.Protected(cfg.JWT.Secret)

	// Auth (rate-limited; the login screen shares the kiosk's IP)
	auth := api.Group("/auth")
	auth.Post("/login", middleware.AuthRateLimiter(&cfg.RateLimit), h.Auth.Login)
	auth.Post("/password", protected, h.Auth.ChangePassword)
	auth.Get("/me", protected, h.Auth.Me)

	// Recognition session (kiosk, unauthenticated)
	recognition := api.Group("/recognition")
	recognition.Post("/session", h.Recognition.StartSession)
	recognition.Delete("/session", h.Recognition.StopSession)
	recognition.Get("/session", h.Recognition.Status)
	recognition.Post("/frames", h.Recognition.HandleFrame)
	recognition.Post("/confirm", h.Recognition.ConfirmLogin)
	recognition.Post("/restart", h.Recognition.RestartScan)

	// Enrollment (HR console)
	enrollment := api.Group("/enrollment", protected)
	enrollment.Post("/", h.Enrollment.Begin)
	enrollment.Post("/:session_id/fingerprint", h.Enrollment.EnrollFingerprint)
	enrollment.Post("/:session_id/face/frames", h.Enrollment.FaceTick)
	enrollment.Post("/:session_id/commit", h.Enrollment.Commit)
	enrollment.Post("/:session_id/cancel", h.Enrollment.Cancel)
	enrollment.Post("/:session_id/reenroll/commit", h.Enrollment.CommitReenrollment)
	enrollment.Post("/:session_id/reenroll/discard", h.Enrollment.DiscardReenrollment)

	// Employees (HR console)
	employees := api.Group("/employees", protected)
	employees.Get("/", h.Employee.List)
	employees.Get("/:id", h.Employee.Get)
	employees.Put("/:id", h.Employee.Update)
	employees.Delete("/:id", h.Employee.Delete)
	employees.Post("/:id/reenroll", h.Enrollment.BeginReenrollment)
	employees.Get("/:id/attendance/:date", h.Attendance.ListByEmployee)

	// Settings (HR console)
	settings := api.Group("/settings", protected)
	settings.Get("/", h.Settings.Get)
	settings.Put("/", h.Settings.Update)

	// Attendance listings and aggregates (HR console)
	api.Get("/attendance/:date", protected, h.Attendance.ListByDate)
	systemLogs := api.Group("/system-logs", protected)
	systemLogs.Get("/", h.SystemLog.List)
	systemLogs.Get("/:date", h.SystemLog.GetByDate)
	systemLogs.Post("/:date/recompute", h.SystemLog.Recompute)

	// Structured application logs (operator token)
	admin := app.Group("/admin")
	admin.Get("/logs", h.Log.GetLogs)
	admin.Get("/logs/files", h.Log.GetLogFiles)
	admin.Get("/logs/stats", h.Log.GetLogStats)

	SetupWebSocketRoutes(app)
}
