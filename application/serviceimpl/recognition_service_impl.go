package serviceimpl

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
	"eals-backend/domain/services"
	redisinfra "eals-backend/infrastructure/redis"
	"eals-backend/infrastructure/websocket"
	"eals-backend/pkg/config"
	"eals-backend/pkg/logger"
)

const settingsCacheKey = "eals:settings"
const settingsCacheTTL = time.Minute

// restartScanDelay is how long the result screen is shown before the
// engines are brought back up.
const restartScanDelay = 2 * time.Second

// ScanController is the dispatcher's handle on the fingerprint scan worker.
type ScanController interface {
	Arm()
	Disarm()
}

type RecognitionServiceImpl struct {
	settingsRepo   repositories.SettingsRepository
	employeeRepo   repositories.EmployeeRepository
	attendance     services.AttendanceService
	faceSvc        services.FaceService
	fingerprintSvc services.FingerprintService
	audit          services.AuditService
	hub            *websocket.Hub
	cache          *redisinfra.RedisClient
	cfg            config.BiometricConfig

	scanner ScanController

	mu        sync.Mutex
	active    bool
	lastMatch map[string]time.Time

	now func() time.Time
}

func NewRecognitionService(
	settingsRepo repositories.SettingsRepository,
	employeeRepo repositories.EmployeeRepository,
	attendance services.AttendanceService,
	faceSvc services.FaceService,
	fingerprintSvc services.FingerprintService,
	audit services.AuditService,
	hub *websocket.Hub,
	cache *redisinfra.RedisClient,
	cfg config.BiometricConfig,
) *RecognitionServiceImpl {
	return &RecognitionServiceImpl{
		settingsRepo:   settingsRepo,
		employeeRepo:   employeeRepo,
		attendance:     attendance,
		faceSvc:        faceSvc,
		fingerprintSvc: fingerprintSvc,
		audit:          audit,
		hub:            hub,
		cache:          cache,
		cfg:            cfg,
		lastMatch:      make(map[string]time.Time),
		now:            time.Now,
	}
}

// SetScanner wires the fingerprint scan worker in after construction; the
// worker needs the dispatcher first, so the reference arrives late.
func (s *RecognitionServiceImpl) SetScanner(sc ScanController) {
	s.scanner = sc
}

// StartSession reads the modality toggles and brings the enabled engines
// up. When both modalities are off the UI falls back to credentials.
func (s *RecognitionServiceImpl) StartSession(ctx context.Context) (*services.SessionState, error) {
	if s.SessionActive() {
		if err := s.StopSession(ctx); err != nil {
			return nil, err
		}
	}

	settings, err := s.getSettings(ctx)
	if err != nil {
		return nil, err
	}

	state := &services.SessionState{
		FaceEnabled:        settings.IsFaceOn,
		FingerprintEnabled: settings.IsFingerprintOn,
	}

	if state.FingerprintEnabled {
		if err := s.fingerprintSvc.Open(ctx); err != nil {
			logger.FingerprintError("session", "sensor unavailable, disabling modality", err, nil)
			state.FingerprintEnabled = false
		} else if s.scanner != nil {
			s.scanner.Arm()
		}
	}
	if state.FaceEnabled {
		if err := s.faceSvc.Initialize(ctx); err != nil {
			logger.FaceError("session", "face engine unavailable, disabling modality", err, nil)
			state.FaceEnabled = false
		}
	}

	if !state.FaceEnabled && !state.FingerprintEnabled {
		state.CredentialFallback = true
	}

	s.mu.Lock()
	s.active = state.FaceEnabled || state.FingerprintEnabled
	s.lastMatch = make(map[string]time.Time)
	s.mu.Unlock()

	s.hub.Broadcast(websocket.EventSessionState, state)
	logger.Info(logger.CategoryAttendance, "session", "recognition session started", map[string]interface{}{
		"face":        state.FaceEnabled,
		"fingerprint": state.FingerprintEnabled,
		"fallback":    state.CredentialFallback,
	})
	return state, nil
}

func (s *RecognitionServiceImpl) StopSession(ctx context.Context) error {
	if s.scanner != nil {
		s.scanner.Disarm()
	}
	if err := s.fingerprintSvc.Close(ctx); err != nil {
		logger.FingerprintError("session", "sensor close failed", err, nil)
	}
	s.faceSvc.Terminate()

	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	return nil
}

func (s *RecognitionServiceImpl) SessionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// HandleFaceFrame runs one frame through the face engine. A qualifying
// match outside the subject's cooldown window is forwarded to attendance.
func (s *RecognitionServiceImpl) HandleFaceFrame(ctx context.Context, frame []byte) (*services.FrameOutcome, error) {
	if !s.SessionActive() {
		return nil, services.ErrNoSession
	}

	res, err := s.faceSvc.ProcessFrame(ctx, frame)
	if err != nil {
		return nil, err
	}

	out := &services.FrameOutcome{Boxes: res.Boxes}
	s.hub.Broadcast(websocket.EventFaceBoxes, res.Boxes)

	if res.Match != nil && s.takeCooldown(res.Match.EmployeeID) {
		out.Login = s.processMatch(ctx, res.Match.EmployeeID, "face")
		s.finishLogin(ctx, out.Login)
	}
	return out, nil
}

// HandleFingerprintMatch is the scan worker's entry point for a sensor hit.
func (s *RecognitionServiceImpl) HandleFingerprintMatch(ctx context.Context, employeeID string, score int) (*services.LoginResult, error) {
	if !s.SessionActive() {
		return nil, services.ErrNoSession
	}

	login := s.processMatch(ctx, employeeID, "fingerprint")
	s.finishLogin(ctx, login)
	return login, nil
}

// ConfirmLogin re-runs the attendance validation with the short-shift Clock
// Out confirmed by the subject.
func (s *RecognitionServiceImpl) ConfirmLogin(ctx context.Context, employeeID string) (*services.LoginResult, error) {
	employee, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, services.ErrEmployeeNotFound
	}

	login := &services.LoginResult{
		EmployeeID: employee.ID,
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
	}
	decision, err := s.attendance.RecordLogin(ctx, employee, s.now(), true)
	if err != nil {
		login.Reason = err.Error()
		s.audit.Record(ctx, "confirmed login rejected for "+employee.ID+": "+err.Error())
	} else {
		login.Accepted = true
		login.Decision = decision
	}

	s.finishLogin(ctx, login)
	return login, nil
}

// RestartScan brings the engines back up after the result screen.
func (s *RecognitionServiceImpl) RestartScan() {
	go func() {
		time.Sleep(restartScanDelay)
		if _, err := s.StartSession(context.Background()); err != nil {
			logger.Error(logger.CategoryAttendance, "session", "scan restart failed", err, nil)
			return
		}
		s.hub.Broadcast(websocket.EventRestartScan, nil)
	}()
}

// takeCooldown reports whether the subject is outside their suppression
// window and, when so, stamps a fresh one. Repeated hits inside the window
// are dropped so one lingering face does not spam the validator.
func (s *RecognitionServiceImpl) takeCooldown(employeeID string) bool {
	now := s.now()
	cooldown := time.Duration(s.cfg.FaceCooldownSeconds) * time.Second

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastMatch[employeeID]; ok && now.Sub(last) < cooldown {
		return false
	}
	s.lastMatch[employeeID] = now
	return true
}

func (s *RecognitionServiceImpl) processMatch(ctx context.Context, employeeID, source string) *services.LoginResult {
	login := &services.LoginResult{EmployeeID: employeeID}

	employee, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		login.Reason = "employee not found"
		return login
	}
	login.FirstName = employee.FirstName
	login.LastName = employee.LastName

	decision, err := s.attendance.RecordLogin(ctx, employee, s.now(), false)
	if err != nil {
		login.Reason = err.Error()
		s.audit.Record(ctx, source+" login rejected for "+employee.ID+": "+err.Error())
		return login
	}

	login.Decision = decision
	if decision.NeedsConfirmation {
		login.Reason = "confirm short shift clock out"
		return login
	}
	login.Accepted = true
	return login
}

// finishLogin pushes the result to the UI and, on acceptance, tears the
// engines down so the result screen owns the camera.
func (s *RecognitionServiceImpl) finishLogin(ctx context.Context, login *services.LoginResult) {
	s.hub.Broadcast(websocket.EventLoginResult, login)
	if login.Accepted {
		if err := s.StopSession(ctx); err != nil {
			logger.Error(logger.CategoryAttendance, "session", "engine teardown failed", err, nil)
		}
	}
}

func (s *RecognitionServiceImpl) getSettings(ctx context.Context) (*models.SystemSettings, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, settingsCacheKey); err == nil {
			var settings models.SystemSettings
			if json.Unmarshal([]byte(raw), &settings) == nil {
				return &settings, nil
			}
		}
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(settings); err == nil {
			if err := s.cache.Set(ctx, settingsCacheKey, string(b), settingsCacheTTL); err != nil {
				logger.Error(logger.CategoryDB, "cache", "settings cache write failed", err, nil)
			}
		}
	}
	return settings, nil
}
