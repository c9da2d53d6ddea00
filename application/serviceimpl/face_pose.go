package serviceimpl

import (
	"eals-backend/domain/services"
)

// Head pose thresholds in degrees. Yaw is positive when the head turns to
// the subject's left in the mirrored camera view, so the checks run
// yaw-first and fall through to pitch.
const (
	yawRightThreshold  = -10.0
	yawLeftThreshold   = 10.0
	pitchDownThreshold = -7.0
	pitchUpThreshold   = 10.0
)

// classifyPose maps the solved Euler angles onto the five pose labels.
func classifyPose(yaw, pitch float64) string {
	switch {
	case yaw < yawRightThreshold:
		return services.PoseFacingRight
	case yaw > yawLeftThreshold:
		return services.PoseFacingLeft
	case pitch < pitchDownThreshold:
		return services.PoseFacingDown
	case pitch > pitchUpThreshold:
		return services.PoseFacingUp
	default:
		return services.PoseStraight
	}
}
