package app

import (
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// WheelPixelsPerNotch converts a GLFW scroll offset into the pixel-style
// wheel delta the camera expects. Scrolling up zooms in.
const WheelPixelsPerNotch = 100

// InputRouter decodes GLFW pointer callbacks into camera deltas.
type InputRouter struct {
	Target  core.CameraInput
	CursorX float64
	CursorY float64
}

func NewInputRouter(target core.CameraInput) *InputRouter {
	return &InputRouter{Target: target}
}

func (r *InputRouter) CursorMoved(x, y float64) {
	r.CursorX, r.CursorY = x, y
	r.Target.DragMove(x, y)
}

func (r *InputRouter) Button(button glfw.MouseButton, action glfw.Action) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		r.Target.DragStart(r.CursorX, r.CursorY)
	case glfw.Release:
		r.Target.DragEnd()
	}
}

func (r *InputRouter) Scrolled(xoff, yoff float64) {
	if yoff == 0 {
		return
	}
	r.Target.Wheel(-yoff * WheelPixelsPerNotch)
}

// Attach installs the router's callbacks on w.
func (r *InputRouter) Attach(w *glfw.Window) {
	r.CursorX, r.CursorY = w.GetCursorPos()
	w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		r.CursorMoved(x, y)
	})
	w.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		r.Button(button, action)
	})
	w.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		r.Scrolled(xoff, yoff)
	})
}
