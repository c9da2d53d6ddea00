package serviceimpl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"eals-backend/domain/services"
	"eals-backend/infrastructure/sensor"
	"eals-backend/infrastructure/templatestore"
	"eals-backend/pkg/config"
	"eals-backend/pkg/logger"
)

// enrollCaptures is how many samples are taken and merged per enrollment.
const enrollCaptures = 3

type FingerprintServiceImpl struct {
	client *sensor.SensorClient
	store  *templatestore.Store
	cfg    config.BiometricConfig

	mu         sync.Mutex
	state      services.DeviceState
	lastClosed time.Time
	cancelled  atomic.Bool
}

func NewFingerprintService(
	client *sensor.SensorClient,
	store *templatestore.Store,
	cfg config.BiometricConfig,
) services.FingerprintService {
	return &FingerprintServiceImpl{
		client: client,
		store:  store,
		cfg:    cfg,
		state:  services.DeviceClosed,
	}
}

// Open brings the sensor up and sets the idle LED. Reopening before the
// close cooldown has elapsed blocks until it has; the vendor SDK wedges the
// device when open follows close too quickly.
func (s *FingerprintServiceImpl) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case services.DeviceOpen:
		return nil
	case services.DeviceClosed:
	default:
		return services.ErrDeviceBusy
	}

	cooldown := time.Duration(s.cfg.DeviceCooldownSeconds) * time.Second
	if since := time.Since(s.lastClosed); since < cooldown {
		time.Sleep(cooldown - since)
	}

	s.state = services.DeviceOpening
	if err := s.client.Open(ctx); err != nil {
		s.state = services.DeviceClosed
		return fmt.Errorf("%w: %v", services.ErrDeviceUnavailable, err)
	}
	if err := s.client.SetLED(ctx, sensor.LedWhite); err != nil {
		logger.FingerprintError("led", "failed to set idle LED", err, nil)
	}
	s.state = services.DeviceOpen

	logger.Fingerprint("open", "sensor opened", nil)
	return nil
}

func (s *FingerprintServiceImpl) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == services.DeviceClosed {
		return nil
	}

	s.state = services.DeviceClosing
	if err := s.client.Close(ctx); err != nil {
		logger.FingerprintError("close", "sensor close failed", err, nil)
	}
	s.lastClosed = time.Now()
	s.state = services.DeviceClosed

	logger.Fingerprint("close", "sensor closed", nil)
	return nil
}

func (s *FingerprintServiceImpl) State() services.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enroll takes three sequential captures, merges them through the sensor
// agent and stores the result. The merged template is matched against every
// other employee's template first; a collision aborts the enrollment.
func (s *FingerprintServiceImpl) Enroll(ctx context.Context, employeeID string, staged bool, onProgress func(capture, total int)) (string, error) {
	if err := s.beginScan(); err != nil {
		return "", err
	}
	defer s.endScan()

	s.cancelled.Store(false)

	templates := make([][]byte, 0, enrollCaptures)
	for i := 0; i < enrollCaptures; i++ {
		if s.cancelled.Load() {
			return "", services.ErrEnrollmentCancelled
		}
		capture, err := s.client.Capture(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", services.ErrCaptureTimeout, err)
		}
		templates = append(templates, capture.Template)
		if onProgress != nil {
			onProgress(i+1, enrollCaptures)
		}
	}
	if s.cancelled.Load() {
		return "", services.ErrEnrollmentCancelled
	}

	merged, err := s.client.Merge(ctx, templates)
	if err != nil {
		return "", fmt.Errorf("template merge failed: %w", err)
	}

	if err := s.checkDuplicate(ctx, employeeID, merged); err != nil {
		return "", err
	}

	var path string
	if staged {
		path, err = s.store.StageFingerprint(employeeID, merged)
	} else {
		path, err = s.store.PutFingerprint(employeeID, merged)
	}
	if err != nil {
		return "", err
	}

	logger.Fingerprint("enroll", "template stored", map[string]interface{}{
		"employee_id": employeeID,
		"staged":      staged,
		"path":        path,
	})
	return path, nil
}

func (s *FingerprintServiceImpl) CancelEnroll() {
	s.cancelled.Store(true)
}

// Identify runs one scan cycle: capture, 1:N match against every stored
// template, LED feedback. A miss is not an error.
func (s *FingerprintServiceImpl) Identify(ctx context.Context, cb services.FingerprintCallbacks) error {
	if err := s.beginScan(); err != nil {
		return err
	}
	defer s.endScan()

	capture, err := s.client.Capture(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrCaptureTimeout, err)
	}

	if cb.OnDisplay != nil {
		cb.OnDisplay(capture.Image)
	}
	if cb.OnStatus != nil {
		cb.OnStatus("Identifying fingerprint...")
	}

	candidates, err := s.storedCandidates("")
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		s.missFeedback(ctx, cb)
		return nil
	}

	scores, err := s.client.Match(ctx, capture.Template, candidates)
	if err != nil {
		return fmt.Errorf("template match failed: %w", err)
	}

	best := sensor.MatchScore{Score: -1}
	for _, sc := range scores {
		if sc.Score > best.Score {
			best = sc
		}
	}

	if best.Score < s.cfg.FingerprintMatchScore {
		s.missFeedback(ctx, cb)
		return nil
	}

	if err := s.client.SetLED(ctx, sensor.LedGreen); err != nil {
		logger.FingerprintError("led", "failed to set match LED", err, nil)
	}
	logger.Fingerprint("identify", "fingerprint matched", map[string]interface{}{
		"employee_id": best.EmployeeID,
		"score":       best.Score,
	})
	if cb.OnMatch != nil {
		cb.OnMatch(best.EmployeeID, best.Score)
	}
	return nil
}

func (s *FingerprintServiceImpl) beginScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != services.DeviceOpen {
		if s.state == services.DeviceScanning {
			return services.ErrDeviceBusy
		}
		return services.ErrDeviceNotOpen
	}
	s.state = services.DeviceScanning
	return nil
}

func (s *FingerprintServiceImpl) endScan() {
	s.mu.Lock()
	if s.state == services.DeviceScanning {
		s.state = services.DeviceOpen
	}
	s.mu.Unlock()
}

// checkDuplicate matches the merged template against every other employee's
// stored template and rejects scores at or above the duplicate threshold.
func (s *FingerprintServiceImpl) checkDuplicate(ctx context.Context, employeeID string, merged []byte) error {
	candidates, err := s.storedCandidates(employeeID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	scores, err := s.client.Match(ctx, merged, candidates)
	if err != nil {
		return fmt.Errorf("duplicate scan failed: %w", err)
	}
	for _, sc := range scores {
		if sc.Score >= s.cfg.FingerprintDuplicateScore {
			logger.Fingerprint("enroll", "duplicate template rejected", map[string]interface{}{
				"employee_id": employeeID,
				"collides":    sc.EmployeeID,
				"score":       sc.Score,
			})
			return services.ErrDuplicateEnrollment
		}
	}
	return nil
}

// storedCandidates loads every live template, optionally excluding one
// employee (the re-enrolling subject must not collide with itself).
func (s *FingerprintServiceImpl) storedCandidates(excludeEmployeeID string) ([]sensor.MatchCandidate, error) {
	entries, err := s.store.IterFingerprints()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate templates: %w", err)
	}
	candidates := make([]sensor.MatchCandidate, 0, len(entries))
	for _, e := range entries {
		if e.EmployeeID == excludeEmployeeID {
			continue
		}
		candidates = append(candidates, sensor.MatchCandidate{
			EmployeeID: e.EmployeeID,
			Template:   e.Template,
		})
	}
	return candidates, nil
}

func (s *FingerprintServiceImpl) missFeedback(ctx context.Context, cb services.FingerprintCallbacks) {
	if err := s.client.SetLED(ctx, sensor.LedRed); err != nil {
		logger.FingerprintError("led", "failed to set miss LED", err, nil)
	}
	if cb.OnStatus != nil {
		cb.OnStatus("No match found")
	}
	if cb.OnMiss != nil {
		cb.OnMiss()
	}
}
