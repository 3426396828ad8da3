package components

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/math"
)

const (
	DEFAULT_FOV           float32 = 45
	DEFAULT_NEAR_CLIP     float32 = 0.1
	DEFAULT_DRAW_DISTANCE float32 = 256
	// World units per frame while a movement key is held.
	DEFAULT_MOVE_SPEED float32 = 1.0 / 60
	// Radians per pixel of mouse movement.
	DEFAULT_LOOK_SENSITIVITY float32 = 1.0 / 600
)

// Just short of straight up/down so the view basis never degenerates.
const maxPitch = stdmath.Pi/2 - 0.01

/**
 * @brief A free-flying first person camera. Yaw and pitch are in radians;
 * yaw 0 looks down -Z.
 */
type Camera struct {
	/** @brief The position of this camera. */
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32

	/** @brief Vertical field of view, in degrees. */
	FOV          float32
	Near         float32
	DrawDistance float32

	MoveSpeed       float32
	LookSensitivity float32

	front, right, up mgl32.Vec3
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Position = mgl32.Vec3{0, 0, 5}
	c.Yaw = 0
	c.Pitch = 0
	c.FOV = DEFAULT_FOV
	c.Near = DEFAULT_NEAR_CLIP
	c.DrawDistance = DEFAULT_DRAW_DISTANCE
	c.MoveSpeed = DEFAULT_MOVE_SPEED
	c.LookSensitivity = DEFAULT_LOOK_SENSITIVITY
	c.updateBasis()
}

// Look turns the camera by a mouse delta in pixels. Moving the mouse up
// (negative dy) pitches up.
func (c *Camera) Look(dx, dy float64) {
	c.Yaw = math.WrapAngle(c.Yaw + float32(dx)*c.LookSensitivity)
	c.Pitch = math.Clamp(c.Pitch-float32(dy)*c.LookSensitivity, -maxPitch, maxPitch)
	c.updateBasis()
}

func (c *Camera) MoveForward(steps float32) {
	c.Position = c.Position.Add(c.front.Mul(steps * c.MoveSpeed))
}

func (c *Camera) MoveRight(steps float32) {
	c.Position = c.Position.Add(c.right.Mul(steps * c.MoveSpeed))
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.front
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.right
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.up
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.front), c.up)
}

func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.DrawDistance)
}

// ProjView is projection * view for a viewport of the given aspect ratio.
func (c *Camera) ProjView(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Mul4(c.View())
}

// MouseRay returns the world-space direction under a cursor given in
// normalized device coordinates (-1..1, +Y up).
func (c *Camera) MouseRay(ndcX, ndcY, aspect float32) mgl32.Vec3 {
	inv := c.ProjView(aspect).Inv()
	near := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{ndcX, ndcY, 0, 1})
	return far.Vec3().Mul(1 / far[3]).Sub(near.Vec3().Mul(1 / near[3])).Normalize()
}

func (c *Camera) updateBasis() {
	cp := float32(stdmath.Cos(float64(c.Pitch)))
	c.front = mgl32.Vec3{
		float32(stdmath.Sin(float64(c.Yaw))) * cp,
		float32(stdmath.Sin(float64(c.Pitch))),
		-float32(stdmath.Cos(float64(c.Yaw))) * cp,
	}.Normalize()
	c.right = c.front.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	c.up = c.right.Cross(c.front).Normalize()
}
