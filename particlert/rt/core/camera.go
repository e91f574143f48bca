package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	DragSensitivity  = 0.01
	WheelSensitivity = 0.001
	InitialZoom      = 5
)

// clipDepthRemap maps OpenGL clip depth [-w,w] to the WebGPU range [0,w].
var clipDepthRemap = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// CameraInput is the decoded pointer stream the host window feeds the camera.
// Coordinates are host pixels.
type CameraInput interface {
	DragStart(x, y float64)
	DragEnd()
	DragMove(x, y float64)
	Wheel(deltaY float64)
}

type CameraRotation struct {
	X float32
	Y float32
}

// CameraState is the orbit/zoom camera. Yaw (Rotation.Y) is applied as a
// height offset on Position.Y rather than an orbit. Rotation.X and Zoom are
// tracked but do not feed the view matrix.
type CameraState struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Rotation CameraRotation
	Zoom     float32

	Dragging   bool
	LastMouseX float64
	LastMouseY float64

	FovY    float32 // radians
	Near    float32
	Far     float32
	MinZoom float32
	MaxZoom float32
}

func NewCameraState(cfg Config) *CameraState {
	return &CameraState{
		Position: mgl32.Vec3{5, 0, 0},
		Target:   mgl32.Vec3{0, 0, 0},
		Zoom:     mgl32.Clamp(InitialZoom, cfg.MinZoom, cfg.MaxZoom),
		FovY:     mgl32.DegToRad(cfg.FovYDegrees),
		Near:     cfg.Near,
		Far:      cfg.Far,
		MinZoom:  cfg.MinZoom,
		MaxZoom:  cfg.MaxZoom,
	}
}

func (c *CameraState) DragStart(x, y float64) {
	c.Dragging = true
	c.LastMouseX = x
	c.LastMouseY = y
}

func (c *CameraState) DragEnd() {
	c.Dragging = false
}

func (c *CameraState) DragMove(x, y float64) {
	if !c.Dragging {
		return
	}
	dx := float32(x - c.LastMouseX)
	dy := float32(y - c.LastMouseY)

	c.Rotation.Y += dx * DragSensitivity
	c.Rotation.X += dy * DragSensitivity
	c.Position[1] = c.Rotation.Y

	c.LastMouseX = x
	c.LastMouseY = y
}

func (c *CameraState) Wheel(deltaY float64) {
	if math.IsNaN(deltaY) {
		return
	}
	c.Zoom = mgl32.Clamp(c.Zoom+float32(deltaY)*WheelSensitivity, c.MinZoom, c.MaxZoom)
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) GetProjectionMatrix(aspect float32) mgl32.Mat4 {
	if aspect <= 0 || math.IsNaN(float64(aspect)) || math.IsInf(float64(aspect), 0) {
		aspect = 1
	}
	return clipDepthRemap.Mul4(mgl32.Perspective(c.FovY, aspect, c.Near, c.Far))
}

// ViewProjection returns proj * view for a target of width x height pixels.
func (c *CameraState) ViewProjection(width, height uint32) mgl32.Mat4 {
	var aspect float32 = 1
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return c.GetProjectionMatrix(aspect).Mul4(c.GetViewMatrix())
}

// EyeFromViewProjection recovers the eye position encoded in vp, given the
// projection it was built with.
func EyeFromViewProjection(vp, proj mgl32.Mat4) mgl32.Vec3 {
	view := proj.Inv().Mul4(vp)
	return view.Inv().Col(3).Vec3()
}
