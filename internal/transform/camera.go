package transform

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/dofdemo/internal/coremath"
)

// Camera clip planes used by the scene and by depth linearization in the
// post effect.
const (
	NearPlane float32 = 1
	FarPlane  float32 = 1000
)

// Camera holds the fixed viewing parameters of the demo.
type Camera struct {
	Position Vec3
	Target   Vec3
	Up       Vec3
	FovY     float32 // radians
	Near     float32
	Far      float32
}

// DefaultCamera returns the demo camera: looking at the origin from
// 0.75·(90, -90, -90) with -Z up and a 45 degree vertical field of view.
func DefaultCamera() Camera {
	return Camera{
		Position: Vec3{0.75 * 90, 0.75 * -90, 0.75 * -90},
		Target:   Vec3{0, 0, 0},
		Up:       Vec3{0, 0, -1},
		FovY:     FieldOfView(45),
		Near:     NearPlane,
		Far:      FarPlane,
	}
}

// FieldOfView converts an angle in degrees to radians through the remap
// helper: 2π·remap(0, 360, deg).
func FieldOfView(deg float32) float32 {
	return 2 * math32.Pi * coremath.Remap(0, 360, deg)
}

// View returns the camera's view matrix.
func (c Camera) View() Mat4 {
	return LookAtLH(c.Position, c.Target, c.Up)
}

// Projection returns the projection matrix for the given aspect ratio.
func (c Camera) Projection(aspect float32) Mat4 {
	return PerspectiveFovLH(c.FovY, aspect, c.Near, c.Far)
}

// ViewProjection returns view·projection for the given aspect ratio.
func (c Camera) ViewProjection(aspect float32) Mat4 {
	return Mul(c.View(), c.Projection(aspect))
}
