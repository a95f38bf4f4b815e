// Package node implements the drawable, touchable units of the scene graph. Every
// node draws in the graph's logical space: y up, origin at the bottom-left.
package node

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/graphics"
	"github.com/richinsley/gofacewarp/landmark"
	"github.com/richinsley/gofacewarp/program"
	"github.com/richinsley/gofacewarp/texture"

	log "github.com/sirupsen/logrus"
)

// Frame is what a node sees while drawing or handling touch. It is only valid on the
// render goroutine for the duration of the call.
type Frame struct {
	Device   gpu.Device
	Programs *program.Pool
	Chain    *texture.FramebufferChain
	// MVP maps logical space to clip space.
	MVP mgl32.Mat4
	// Width and Height are the logical size of the scene.
	Width, Height float32
	// Landmarks is the detection for this frame; never nil.
	Landmarks *landmark.Snapshot
	Time      float64
}

// Bounds is the whole logical scene.
func (f *Frame) Bounds() geometry.Rect {
	return geometry.Rect{W: f.Width, H: f.Height}
}

// Program returns the pooled program of the given kind, or nil when it failed to
// build. The failure was already logged by the pool.
func (f *Frame) Program(kind program.Kind) *program.Program {
	p, err := f.Programs.Get(kind)
	if err != nil {
		return nil
	}
	return p
}

// CopyThrough draws t over the whole scene unchanged.
func (f *Frame) CopyThrough(t texture.Texture) {
	prog := f.Program(program.KindTexture)
	if prog == nil || t == nil || !t.Valid() {
		return
	}
	pos := geometry.Position(0, 0, f.Width, f.Height)
	prog.Draw(t.ID(), pos[:], geometry.UnitQuad[:], f.MVP)
}

// Node is one element of the scene graph.
type Node interface {
	Rect() geometry.Rect
	// Invalidate forgets every GPU handle after the context was lost.
	Invalidate()
	// Recreate reacquires GPU resources. It is idempotent and safe to call before the
	// first Render.
	Recreate(f *Frame) error
	// Render issues the node's draw calls. Compositing nodes read the previous pass
	// by swapping f.Chain.
	Render(f *Frame)
	// OnTouch handles an event in logical coordinates and reports whether the node
	// claimed it.
	OnTouch(f *Frame, ev graphics.TouchEvent) bool
	// Release frees the node's own GPU resources. It is called exactly once.
	Release(dev gpu.Device)
}

// Base carries the geometry shared by every node.
type Base struct {
	rect     geometry.Rect
	position geometry.Quad
}

func newBase(r geometry.Rect) Base {
	b := Base{}
	b.SetRect(r)
	return b
}

func (b *Base) Rect() geometry.Rect { return b.rect }

// Position is the strip-ordered quad of Rect.
func (b *Base) Position() geometry.Quad { return b.position }

// SetRect moves or resizes the node and keeps its vertex buffer in step.
func (b *Base) SetRect(r geometry.Rect) {
	b.rect = r
	b.position = geometry.Position(r.X, r.Y, r.W, r.H)
}

// coversScene reports whether the node's rectangle hides the whole scene. Passes that
// draw less must copy the previous pass through first.
func (b *Base) coversScene(f *Frame) bool {
	return b.rect.X <= 0 && b.rect.Y <= 0 && b.rect.Right() >= f.Width && b.rect.Top() >= f.Height
}

func (b *Base) Invalidate()                                   {}
func (b *Base) Recreate(f *Frame) error                       { return nil }
func (b *Base) OnTouch(f *Frame, ev graphics.TouchEvent) bool { return false }
func (b *Base) Release(dev gpu.Device)                        {}

// warnOnce logs a resource failure the first time it happens for a node.
type warnOnce struct {
	warned bool
}

func (w *warnOnce) warn(format string, args ...interface{}) {
	if w.warned {
		return
	}
	w.warned = true
	log.Warnf(format, args...)
}

func (w *warnOnce) reset() { w.warned = false }
