package math

import "github.com/chewxy/math32"

// Euler is an XYZ Euler rotation in radians. X is applied first, Z last.
type Euler struct {
	X, Y, Z float32
}

// Mat4 returns the rotation matrix Rz * Ry * Rx.
func (e Euler) Mat4() Mat4 {
	return RotateZ(e.Z).Mul(RotateY(e.Y)).Mul(RotateX(e.X))
}

// Degrees returns the angles converted to degrees, for logging.
func (e Euler) Degrees() [3]float32 {
	const k = 180 / math32.Pi
	return [3]float32{e.X * k, e.Y * k, e.Z * k}
}

// EulerDegrees builds an Euler rotation from angles in degrees.
func EulerDegrees(x, y, z float32) Euler {
	const k = math32.Pi / 180
	return Euler{x * k, y * k, z * k}
}
