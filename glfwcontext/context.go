// Package glfwcontext provides a windowed graphics.Context backed by GLFW.
package glfwcontext

import (
	"math"
	"runtime"
	"sync"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/gofacewarp/graphics"

	log "github.com/sirupsen/logrus"
)

// Config describes the window.
type Config struct {
	Width, Height int
	Title         string
	Visible       bool
	// SwapInterval is passed to glfwSwapInterval once the context is current.
	SwapInterval int
}

// ZoomStep is the zoom factor applied per scroll notch.
const ZoomStep = 1.1

// Context tracks the pointer so mouse input can be delivered as touches.
type Context struct {
	cfg    Config
	window *glfw.Window

	mu       sync.Mutex
	sink     graphics.InputSink
	touching bool
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

var _ graphics.Context = (*Context)(nil)

// New creates and initializes a new GLFW window and returns a Context object.
func New(cfg Config) (*Context, error) {
	if cfg.Title == "" {
		cfg.Title = "gofacewarp"
	}
	c := &Context{
		cfg:          cfg,
		keyCallbacks: make(map[glfw.Key]func()),
	}
	if err := c.createWindow(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) createWindow() error {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if c.cfg.Visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(c.cfg.Width, c.cfg.Height, c.cfg.Title, nil, nil)
	if err != nil {
		return err
	}
	c.window = win
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetMouseButtonCallback(c.glfwMouseButtonCallback)
	win.SetCursorPosCallback(c.glfwCursorPosCallback)
	win.SetScrollCallback(c.glfwScrollCallback)
	win.SetFramebufferSizeCallback(c.glfwFramebufferSizeCallback)
	win.MakeContextCurrent()
	glfw.SwapInterval(c.cfg.SwapInterval)
	return nil
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

// glfwKeyCallback dispatches to the registered callbacks.
func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

// SetInputSink routes pointer, scroll and resize events to sink.
func (c *Context) SetInputSink(sink graphics.InputSink) {
	c.mu.Lock()
	c.sink = sink
	c.touching = false
	c.mu.Unlock()
}

func (c *Context) inputSink() graphics.InputSink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink
}

// cursor returns the pointer in framebuffer pixels with y down.
func (c *Context) cursor(w *glfw.Window) (float32, float32) {
	fbWidth, fbHeight := w.GetFramebufferSize()
	winWidth, winHeight := w.GetSize()
	var scaleX, scaleY float64 = 1.0, 1.0
	if winWidth > 0 && winHeight > 0 {
		scaleX = float64(fbWidth) / float64(winWidth)
		scaleY = float64(fbHeight) / float64(winHeight)
	}
	x, y := w.GetCursorPos()
	return float32(x * scaleX), float32(y * scaleY)
}

func (c *Context) glfwMouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	sink := c.inputSink()
	if sink == nil {
		return
	}
	x, y := c.cursor(w)
	c.mu.Lock()
	switch action {
	case glfw.Press:
		c.touching = true
	case glfw.Release:
		if !c.touching {
			c.mu.Unlock()
			return
		}
		c.touching = false
	}
	c.mu.Unlock()

	ev := graphics.TouchEvent{Action: graphics.TouchDown, X: x, Y: y}
	if action == glfw.Release {
		ev.Action = graphics.TouchUp
	}
	sink.DispatchTouch(ev)
}

func (c *Context) glfwCursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	c.mu.Lock()
	sink, touching := c.sink, c.touching
	c.mu.Unlock()
	if sink == nil || !touching {
		return
	}
	x, y := c.cursor(w)
	sink.DispatchTouch(graphics.TouchEvent{Action: graphics.TouchMove, X: x, Y: y})
}

func (c *Context) glfwScrollCallback(w *glfw.Window, xoff, yoff float64) {
	if sink := c.inputSink(); sink != nil && yoff != 0 {
		sink.Zoom(float32(math.Pow(ZoomStep, yoff)))
	}
}

func (c *Context) glfwFramebufferSizeCallback(w *glfw.Window, width, height int) {
	if sink := c.inputSink(); sink != nil {
		sink.Resize(width, height)
	}
}

// DetachCurrent makes no context current on the calling thread.
func (c *Context) DetachCurrent() {
	glfw.DetachCurrentContext()
}

func (c *Context) IsGLES() bool {
	// GLFW does not provide a direct way to check if the context is GLES.
	return false
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown destroys the window.
func (c *Context) Shutdown() {
	if c.window != nil {
		c.window.Destroy()
		c.window = nil
	}
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
}

// WaitEvents processes events, sleeping until one arrives or timeout elapses.
func (c *Context) WaitEvents(timeout time.Duration) {
	if timeout <= 0 {
		glfw.PollEvents()
		return
	}
	glfw.WaitEventsTimeout(timeout.Seconds())
}

// Wake posts an empty event so a blocked WaitEvents returns.
func (c *Context) Wake() {
	glfw.PostEmptyEvent()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// Recreate destroys the window with its GL context and opens a new one, keeping the
// window size the user chose.
func (c *Context) Recreate() error {
	if c.window != nil {
		c.cfg.Width, c.cfg.Height = c.window.GetSize()
		c.window.Destroy()
		c.window = nil
	}
	c.mu.Lock()
	c.touching = false
	c.mu.Unlock()
	if err := c.createWindow(); err != nil {
		return err
	}
	log.Infof("glfw: recreated %dx%d window", c.cfg.Width, c.cfg.Height)
	return nil
}

// Window returns the underlying *glfw.Window.
func (c *Context) Window() *glfw.Window {
	return c.window
}

// InitGraphics initializes the main graphics subsystem (GLFW). Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Infof("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down the graphics subsystem. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Infof("GLFW Terminated")
}
