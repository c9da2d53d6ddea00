package services

import (
	"context"
	"errors"
)

// Device lifecycle states for the fingerprint sensor.
type DeviceState string

const (
	DeviceClosed   DeviceState = "closed"
	DeviceOpening  DeviceState = "opening"
	DeviceOpen     DeviceState = "open"
	DeviceScanning DeviceState = "scanning"
	DeviceClosing  DeviceState = "closing"
)

// Fingerprint engine errors
var (
	ErrDeviceUnavailable   = errors.New("fingerprint device unavailable")
	ErrDeviceBusy          = errors.New("fingerprint device busy")
	ErrDeviceNotOpen       = errors.New("fingerprint device not open")
	ErrCaptureTimeout      = errors.New("fingerprint capture timed out")
	ErrDuplicateEnrollment = errors.New("fingerprint already enrolled to another employee")
	ErrEnrollmentCancelled = errors.New("fingerprint enrollment cancelled")
)

// FingerprintCallbacks are the engine callbacks surfaced to the login screen.
type FingerprintCallbacks struct {
	OnDisplay func(image []byte)           // raw capture bytes for preview
	OnStatus  func(text string)            // user-visible status line
	OnMatch   func(employeeID string, score int)
	OnMiss    func()
}

// FingerprintService is the fingerprint engine (device lifecycle, capture,
// three-sample merge, 1:N match, duplicate check).
type FingerprintService interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	State() DeviceState

	// Enroll runs three sequential captures, merges them through the vendor
	// SDK, rejects templates that collide with another employee, and writes
	// the merged blob through the template store. The returned path is the
	// stored template file (staged when staged is true). Cancellable at
	// capture boundaries; no partial artifacts survive a failure.
	Enroll(ctx context.Context, employeeID string, staged bool, onProgress func(capture, total int)) (string, error)
	CancelEnroll()

	// Identify runs a single scan cycle against all stored templates.
	Identify(ctx context.Context, cb FingerprintCallbacks) error
}
