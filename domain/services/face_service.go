package services

import (
	"context"
	"errors"
)

// Pose labels reported by the head pose classifier.
const (
	PoseStraight    = "Straight face"
	PoseFacingLeft  = "Facing Left"
	PoseFacingRight = "Facing Right"
	PoseFacingUp    = "Facing Up"
	PoseFacingDown  = "Facing Down"
)

// Face engine errors
var (
	ErrNoFaceDetected       = errors.New("no face detected in frame")
	ErrFaceEngineTerminated = errors.New("face engine terminated")
	ErrEnrollmentNotActive  = errors.New("no face enrollment in progress")
	ErrEnrollmentActive     = errors.New("face enrollment already in progress")
)

// TrackedBox is one smoothed bounding box with its identity label, as handed
// to the UI for overlay rendering. EmployeeID is empty for unknown faces.
type TrackedBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	EmployeeID string  `json:"employee_id"`
}

// FaceMatch is a positive recognition with its score breakdown.
type FaceMatch struct {
	EmployeeID string  `json:"employee_id"`
	Cosine     float64 `json:"cosine"`
	Structural float64 `json:"structural"`
	Fused      float64 `json:"fused"`
}

// FrameResult is the outcome of processing one camera frame.
type FrameResult struct {
	Boxes []TrackedBox `json:"boxes"`
	Pose  string       `json:"pose"`
	Match *FaceMatch   `json:"match,omitempty"`
}

// EnrollmentTick is the outcome of one capture-loop tick during the six-pose
// enrollment. A pose must hold for the full countdown before capture fires.
type EnrollmentTick struct {
	StepIndex    int      `json:"step_index"`
	RequiredPose string   `json:"required_pose"`
	DetectedPose string   `json:"detected_pose"`
	HoldTicks    int      `json:"hold_ticks"`
	Captured     bool     `json:"captured"`
	Done         bool     `json:"done"`
	Paths        []string `json:"paths,omitempty"` // artifact paths once done
}

// FaceService is the face engine: detection, head pose, embedding
// extraction, box smoothing, fused-score recognition and the six-pose
// enrollment loop.
type FaceService interface {
	// Initialize readies the engine for a new session: verifies the
	// analysis service and resets tracker state. Must follow Terminate.
	Initialize(ctx context.Context) error

	// ProcessFrame runs the per-frame pipeline and 1:N recognition.
	ProcessFrame(ctx context.Context, frame []byte) (*FrameResult, error)

	// StartEnrollment arms the six-pose capture loop for an employee.
	// Staged enrollments write artifacts into the staging area.
	StartEnrollment(ctx context.Context, employeeID string, staged bool) error
	EnrollmentTick(ctx context.Context, frame []byte) (*EnrollmentTick, error)
	CancelEnrollment(ctx context.Context) error
	EnrollmentActive() bool

	// Terminate releases the analysis models and tracker state. The engine
	// must be terminated before a new session re-initializes it.
	Terminate()
}
