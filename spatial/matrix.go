package spatial

import "math"

// Mat3 is a 3x3 rotation matrix, row-major.
type Mat3 [3][3]float64

// Identity returns the identity rotation.
func Identity() Mat3 {
	return Mat3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// MulVec3 applies the rotation to v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mul composes m followed by other (other is applied to the result of m, in
// the sense that (m.Mul(other)).MulVec3(v) == other.MulVec3(m.MulVec3(v))).
func (m Mat3) Mul(other Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += other[i][k] * m[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// Transpose returns the transpose of m, which for a pure rotation matrix is
// also its inverse.
func (m Mat3) Transpose() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// YawPitch builds a rotation from a yaw (rotation around Y, the up axis) and
// a pitch (rotation around X, the horizontal axis). Applied to a vector, the
// pitch acts first and the yaw second, so the forward axis +Z maps to
// (sin(yaw)cos(pitch), -sin(pitch), cos(yaw)cos(pitch)), the direction
// DirectionToPanTilt inverts. yaw and pitch are in radians.
func YawPitch(yaw, pitch float64) Mat3 {
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cp, sp := math.Cos(pitch), math.Sin(pitch)

	yawM := Mat3{
		{cy, 0, sy},
		{0, 1, 0},
		{-sy, 0, cy},
	}
	pitchM := Mat3{
		{1, 0, 0},
		{0, cp, -sp},
		{0, sp, cp},
	}
	return pitchM.Mul(yawM)
}
