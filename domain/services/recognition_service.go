package services

import (
	"context"
	"errors"
)

// Dispatcher errors
var (
	ErrNoSession          = errors.New("no recognition session active")
	ErrBiometricsDisabled = errors.New("both biometric modalities are disabled")
)

// SessionState describes what the login screen should arm after a session
// starts. CredentialFallback is set when both modalities are off.
type SessionState struct {
	FaceEnabled        bool `json:"face_enabled"`
	FingerprintEnabled bool `json:"fingerprint_enabled"`
	CredentialFallback bool `json:"credential_fallback"`
}

// LoginResult is the dispatcher's outcome for one positive biometric match.
type LoginResult struct {
	EmployeeID string              `json:"employee_id"`
	FirstName  string              `json:"first_name"`
	LastName   string              `json:"last_name"`
	Accepted   bool                `json:"accepted"`
	Reason     string              `json:"reason,omitempty"`
	Decision   *AttendanceDecision `json:"decision,omitempty"`
}

// FrameOutcome is returned for every processed camera frame.
type FrameOutcome struct {
	Boxes []TrackedBox `json:"boxes"`
	Login *LoginResult `json:"login,omitempty"`
}

// RecognitionService multiplexes both engines during the login screen,
// applies the per-subject cooldown and forwards matches to attendance.
type RecognitionService interface {
	StartSession(ctx context.Context) (*SessionState, error)
	StopSession(ctx context.Context) error
	SessionActive() bool

	// HandleFaceFrame feeds one camera frame (~30 ms tick) through the face
	// engine and, on a qualifying match, through attendance validation.
	HandleFaceFrame(ctx context.Context, frame []byte) (*FrameOutcome, error)

	// HandleFingerprintMatch is invoked by the scan worker on a sensor hit.
	HandleFingerprintMatch(ctx context.Context, employeeID string, score int) (*LoginResult, error)

	// ConfirmLogin re-runs attendance validation with the short-shift
	// clock-out confirmed by the operator.
	ConfirmLogin(ctx context.Context, employeeID string) (*LoginResult, error)

	// RestartScan re-arms the fingerprint worker after a result screen.
	RestartScan()
}
