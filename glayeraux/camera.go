package glayeraux

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/gleval"
)

// Camera orbits Target at Distance. Yaw and Pitch are in radians.
type Camera struct {
	Target   ms3.Vec
	Distance float32
	Yaw      float32
	Pitch    float32
	// FovY is the vertical field of view in radians.
	FovY      float32
	Near, Far float32
	MinDist   float32
	MaxDist   float32
}

// NewOrbitCamera returns a camera looking at target from dist units away at a 45 degree pitch.
func NewOrbitCamera(target ms3.Vec, dist float32) *Camera {
	return &Camera{
		Target:   target,
		Distance: dist,
		Pitch:    math32.Pi / 4,
		FovY:     mgl32.DegToRad(60),
		Near:     dist * 1e-3,
		Far:      dist * 100,
		MinDist:  dist * 1e-5,
		MaxDist:  dist * 10,
	}
}

const maxPitch = math32.Pi/2 - 0.01

// Rotate adds to yaw and pitch. Pitch is clamped short of the poles.
func (c *Camera) Rotate(dyaw, dpitch float32) {
	c.Yaw += dyaw
	c.Pitch = math32.Max(-maxPitch, math32.Min(maxPitch, c.Pitch+dpitch))
}

// Zoom moves the camera towards the target for positive steps.
func (c *Camera) Zoom(steps float32) {
	c.Distance -= steps * (c.Distance*.1 + .01)
	if c.MinDist > 0 && c.Distance < c.MinDist {
		c.Distance = c.MinDist
	}
	if c.MaxDist > 0 && c.Distance > c.MaxDist {
		c.Distance = c.MaxDist
	}
}

// Position returns the world position of the camera.
func (c *Camera) Position() ms3.Vec {
	sy, cy := math32.Sincos(c.Yaw)
	sp, cp := math32.Sincos(c.Pitch)
	dir := ms3.Vec{X: cp * sy, Y: sp, Z: cp * cy}
	return ms3.Add(c.Target, ms3.Scale(c.Distance, dir))
}

// View implements the interface accepted by [gleval.GetView] so a camera may
// be passed as user data to CPU evaluation.
func (c *Camera) View() gleval.View {
	return gleval.View{CameraPosition: c.Position()}
}

// ViewMatrix returns the world to camera transform.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(toMgl(c.Position()), toMgl(c.Target), mgl32.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective projection for the given width/height ratio.
func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

func toMgl(v ms3.Vec) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }
