// Package renderer composes the scene graph: it owns the node list, the program pool
// and the framebuffer chain, follows the lifecycle of the graphics context and
// presents each composed frame to the visible surface.
package renderer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/landmark"
	"github.com/richinsley/gofacewarp/node"
	"github.com/richinsley/gofacewarp/program"
	"github.com/richinsley/gofacewarp/texture"

	log "github.com/sirupsen/logrus"
)

// ErrNotReady is returned by OnDrawFrame while the surface has no usable context.
var ErrNotReady = errors.New("surface is not ready")

// ErrGPU wraps the error codes polled after a frame.
var ErrGPU = errors.New("gpu reported errors")

// State is the lifecycle state of a Surface.
type State int32

const (
	// Uninitialized: no context has been created yet.
	Uninitialized State = iota
	// Ready: every node has its GPU resources and frames can be drawn.
	Ready
	// Invalidated: the context is gone; every GPU handle is forgotten.
	Invalidated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Invalidated:
		return "invalidated"
	}
	return "unknown"
}

// Options configures a Surface.
type Options struct {
	// Width and Height are the logical scene size. Zero uses the first surface size.
	Width, Height int
	// Background is the color around the presented scene.
	Background mgl32.Vec4
	IsGLES     bool
	// MinZoom and MaxZoom bound pinch zoom relative to the fitted scene.
	MinZoom, MaxZoom float32
	// Clock returns the scene time in seconds. Nil measures from NewSurface.
	Clock func() float64
}

// DefaultOptions is a white background with zoom between 1x and 4x.
var DefaultOptions = Options{
	Background: mgl32.Vec4{1, 1, 1, 1},
	MinZoom:    1,
	MaxZoom:    4,
}

// Surface is the scene graph bound to one drawable surface. OnSurfaceCreated,
// OnSurfaceChanged, OnDrawFrame, OnSurfaceDestroyed and Release serialize on the
// frame lock. AddNode, RemoveNode and Nodes must run on the render goroutine, either
// between frames or inside RunInRender.
type Surface struct {
	frameMu sync.Mutex
	state   atomic.Int32

	dev       gpu.Device
	opts      Options
	pool      *program.Pool
	chain     *texture.FramebufferChain
	nodes     []node.Node
	landmarks *landmark.Slot

	logicalW, logicalH int
	surfaceW, surfaceH int
	mvp                mgl32.Mat4
	presentMVP         mgl32.Mat4
	fitted             geometry.Rect
	display            geometry.Rect
	zoom               float32
	gesture            gesture

	pending chan struct{}
	tasksMu sync.Mutex
	tasks   []func(*Surface)
	waker   atomic.Pointer[func()]

	released bool
	frames   atomic.Uint64
	errors   atomic.Uint64
}

// NewSurface returns an uninitialized surface drawing on dev. landmarks may be nil
// when nothing consumes detections.
func NewSurface(dev gpu.Device, landmarks *landmark.Slot, opts Options) *Surface {
	if opts.MinZoom <= 0 {
		opts.MinZoom = DefaultOptions.MinZoom
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = opts.MinZoom
	}
	if opts.Clock == nil {
		start := time.Now()
		opts.Clock = func() float64 { return time.Since(start).Seconds() }
	}
	if landmarks == nil {
		landmarks = landmark.NewSlot(landmark.Mapper{})
	}
	return &Surface{
		dev:       dev,
		opts:      opts,
		pool:      program.NewPool(dev, opts.IsGLES),
		chain:     texture.NewFramebufferChain(dev),
		landmarks: landmarks,
		logicalW:  opts.Width,
		logicalH:  opts.Height,
		zoom:      1,
		mvp:       mgl32.Ortho2D(0, float32(opts.Width), 0, float32(opts.Height)),
		pending:   make(chan struct{}, 1),
	}
}

// State returns the lifecycle state.
func (s *Surface) State() State { return State(s.state.Load()) }

func (s *Surface) setState(st State) {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		log.Debugf("renderer: surface %s -> %s", old, st)
	}
}

// Programs exposes the program pool.
func (s *Surface) Programs() *program.Pool { return s.pool }

// Chain exposes the framebuffer chain.
func (s *Surface) Chain() *texture.FramebufferChain { return s.chain }

// LogicalSize is the size of the scene space.
func (s *Surface) LogicalSize() (int, int) { return s.logicalW, s.logicalH }

// Display is where the scene is presented, in surface pixels with y down.
func (s *Surface) Display() geometry.Rect { return s.display }

// Frames counts composed frames.
func (s *Surface) Frames() uint64 { return s.frames.Load() }

// GPUErrors counts error codes polled since the surface was created.
func (s *Surface) GPUErrors() uint64 { return s.errors.Load() }

func (s *Surface) frame() *node.Frame {
	return &node.Frame{
		Device:    s.dev,
		Programs:  s.pool,
		Chain:     s.chain,
		MVP:       s.mvp,
		Width:     float32(s.logicalW),
		Height:    float32(s.logicalH),
		Landmarks: s.landmarks.Load(),
		Time:      s.opts.Clock(),
	}
}

// AddNode appends n on top of the scene. On a ready surface the node acquires its
// resources right away.
func (s *Surface) AddNode(n node.Node) {
	s.nodes = append(s.nodes, n)
	if s.State() == Ready {
		if err := n.Recreate(s.frame()); err != nil {
			log.Warnf("renderer: node %T: %v", n, err)
		}
	}
	s.RequestRender()
}

// RemoveNode takes n out of the scene and releases it.
func (s *Surface) RemoveNode(n node.Node) bool {
	for i, m := range s.nodes {
		if m == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			n.Release(s.dev)
			s.RequestRender()
			return true
		}
	}
	return false
}

// Nodes returns the scene in draw order.
func (s *Surface) Nodes() []node.Node {
	return append([]node.Node(nil), s.nodes...)
}

// invalidateAll forgets every GPU handle; none of them is deleted.
func (s *Surface) invalidateAll() {
	s.pool.Invalidate()
	for _, n := range s.nodes {
		n.Invalidate()
	}
	s.chain.Invalidate()
}

// OnSurfaceCreated rebuilds every context bound resource after a context was
// created, whether for the first time or after a loss.
func (s *Surface) OnSurfaceCreated() error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.released {
		return ErrNotReady
	}

	s.invalidateAll()
	if err := s.dev.Reset(); err != nil {
		s.setState(Invalidated)
		return err
	}
	if s.logicalW > 0 && s.logicalH > 0 {
		if err := s.chain.Resize(s.logicalW, s.logicalH); err != nil {
			log.Warnf("renderer: %v", err)
		}
	}
	f := s.frame()
	for _, n := range s.nodes {
		if err := n.Recreate(f); err != nil {
			log.Warnf("renderer: node %T: %v", n, err)
		}
	}
	s.setState(Ready)
	s.RequestRender()
	return nil
}

// OnSurfaceChanged records a new surface size, fits the scene into it and sizes the
// framebuffer chain to the logical scene.
func (s *Surface) OnSurfaceChanged(width, height int) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.resize(width, height)
}

func (s *Surface) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.surfaceW, s.surfaceH = width, height
	if s.logicalW <= 0 || s.logicalH <= 0 {
		s.logicalW, s.logicalH = width, height
	}
	s.mvp = mgl32.Ortho2D(0, float32(s.logicalW), 0, float32(s.logicalH))
	s.presentMVP = mgl32.Ortho2D(0, float32(width), 0, float32(height))
	s.fitted = geometry.FitCenter(float32(s.logicalW), float32(s.logicalH),
		geometry.Rect{W: float32(width), H: float32(height)})
	s.display = s.fitted
	s.zoom = 1

	if s.State() == Ready {
		if err := s.chain.Resize(s.logicalW, s.logicalH); err != nil {
			log.Warnf("renderer: %v", err)
		}
	}
	log.Debugf("renderer: surface %dx%d, scene %dx%d shown at %+v", width, height, s.logicalW, s.logicalH, s.display)
	s.RequestRender()
}

// OnSurfaceDestroyed waits for an in-flight frame and forgets every GPU handle.
// Nothing is drawn until OnSurfaceCreated.
func (s *Surface) OnSurfaceDestroyed() {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.invalidateAll()
	s.setState(Invalidated)
}

// Release deletes every resource. Nodes are released exactly once. The context
// must still be current.
func (s *Surface) Release() {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.released {
		return
	}
	s.released = true
	if s.State() != Ready {
		s.invalidateAll()
	}
	for _, n := range s.nodes {
		n.Release(s.dev)
	}
	s.nodes = nil
	s.pool.Clear()
	s.chain.Release()
	s.setState(Invalidated)
}

// SetWaker registers a function that wakes the render loop, called after each
// RequestRender.
func (s *Surface) SetWaker(fn func()) {
	if fn == nil {
		s.waker.Store(nil)
		return
	}
	s.waker.Store(&fn)
}

// RequestRender asks for a frame. Requests made while one is pending are merged. It
// is safe to call from any goroutine.
func (s *Surface) RequestRender() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
	if fn := s.waker.Load(); fn != nil {
		(*fn)()
	}
}

// RenderRequested consumes a pending request.
func (s *Surface) RenderRequested() bool {
	select {
	case <-s.pending:
		return true
	default:
		return false
	}
}

// RunInRender queues fn to run on the render goroutine at the start of the next
// frame and requests that frame. It is safe to call from any goroutine.
func (s *Surface) RunInRender(fn func(*Surface)) {
	s.tasksMu.Lock()
	s.tasks = append(s.tasks, fn)
	s.tasksMu.Unlock()
	s.RequestRender()
}

func (s *Surface) runTasks() {
	s.tasksMu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.tasksMu.Unlock()
	for _, fn := range tasks {
		fn(s)
	}
}
