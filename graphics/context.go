// Package graphics describes the surface the compositor draws to: a GL context plus
// a size, and the input it delivers.
package graphics

import "time"

// Context defines the interface for an OpenGL context.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the back buffer.
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
	IsGLES() bool
	// WaitEvents processes pending input, blocking until an event arrives, Wake is
	// called from another goroutine or timeout elapses.
	WaitEvents(timeout time.Duration)
	// Wake interrupts WaitEvents. It is safe to call from any goroutine.
	Wake()
	// SetInputSink routes the surface's input to sink.
	SetInputSink(sink InputSink)
}

// Recreatable is implemented by contexts that can destroy and rebuild their GL
// context, losing every GPU object.
type Recreatable interface {
	Recreate() error
}

// TouchAction is the phase of a pointer gesture.
type TouchAction int

const (
	TouchDown TouchAction = iota
	TouchMove
	TouchUp
	TouchCancel
)

func (a TouchAction) String() string {
	switch a {
	case TouchDown:
		return "down"
	case TouchMove:
		return "move"
	case TouchUp:
		return "up"
	case TouchCancel:
		return "cancel"
	}
	return "unknown"
}

// TouchEvent is a pointer event. Surfaces report X and Y in framebuffer pixels with
// Y down; the renderer converts them to logical space before nodes see them.
type TouchEvent struct {
	Action TouchAction
	X, Y   float32
}

// InputSink receives input from a surface. Implementations must be safe to call from
// the goroutine that polls events.
type InputSink interface {
	DispatchTouch(ev TouchEvent)
	// Zoom scales the presented image by factor around its center.
	Zoom(factor float32)
	// Pan moves the presented image by (dx, dy) surface pixels.
	Pan(dx, dy float32)
	// Resize reports a new framebuffer size.
	Resize(width, height int)
}
