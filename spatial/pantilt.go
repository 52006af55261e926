package spatial

import "math"

// Calibration describes how a moving head's DMX pan/tilt bytes map onto
// physical rotation, per spec §4.2: yaw = π*(pan-PanCenter)/PanHalfCircle,
// pitch = π*(tilt-TiltCenter)/TiltHalfCircle.
type Calibration struct {
	PanCenter      float64
	PanHalfCircle  float64
	TiltCenter     float64
	TiltHalfCircle float64
}

// WorldRotation composes the head's fixed rotation with the rotation implied
// by the given DMX pan/tilt bytes and calibration.
func WorldRotation(panByte, tiltByte float64, c Calibration, fixedRotation Mat3) Mat3 {
	yaw := math.Pi * (panByte - c.PanCenter) / c.PanHalfCircle
	pitch := math.Pi * (tiltByte - c.TiltCenter) / c.TiltHalfCircle
	return YawPitch(yaw, pitch).Mul(fixedRotation)
}

// PanTiltToDMX converts a (panAngle, tiltAngle) pair in radians directly to
// DMX pan/tilt bytes using the inverse of the calibration formula, clamping
// to the physical [0,255] byte range if the angle is unreachable.
func PanTiltToDMX(panAngle, tiltAngle float64, c Calibration) (panByte, tiltByte float64) {
	panByte = c.PanCenter + panAngle*c.PanHalfCircle/math.Pi
	tiltByte = c.TiltCenter + tiltAngle*c.TiltHalfCircle/math.Pi
	return clampByte(panByte), clampByte(tiltByte)
}

// DirectionToPanTilt solves for the (panAngle, tiltAngle) in radians, in the
// head's own calibration frame, that bring the head's local forward axis
// (+Z) as close as possible to the given world-space unit direction, given
// the head's fixed rotation. The forward axis can only be steered through
// yaw and pitch, so directions requiring roll around the beam axis are
// unreachable by construction, not merely clamped.
func DirectionToPanTilt(dir Vec3, fixedRotation Mat3) (panAngle, tiltAngle float64) {
	local := fixedRotation.Transpose().MulVec3(dir.Normalize())
	panAngle = math.Atan2(local.X, local.Z)
	tiltAngle = math.Asin(clamp(-local.Y, -1, 1))
	return panAngle, tiltAngle
}

// AimToPanTilt solves for the (panAngle, tiltAngle) that point the head at
// aimPoint from headPosition.
func AimToPanTilt(headPosition, aimPoint Vec3, fixedRotation Mat3) (panAngle, tiltAngle float64) {
	return DirectionToPanTilt(aimPoint.Sub(headPosition), fixedRotation)
}

// ForwardDirection returns the world-space unit vector the head points at
// given DMX pan/tilt bytes and calibration; the inverse of
// DirectionToPanTilt composed with PanTiltToDMX.
func ForwardDirection(panByte, tiltByte float64, c Calibration, fixedRotation Mat3) Vec3 {
	return WorldRotation(panByte, tiltByte, c, fixedRotation).MulVec3(Vec3{0, 0, 1})
}

func clampByte(v float64) float64 {
	return clamp(v, 0, 255)
}
