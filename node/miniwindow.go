package node

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/graphics"
	"github.com/richinsley/gofacewarp/program"
)

// DefaultCropScale is the crop window size as a fraction of the mini window size.
const DefaultCropScale = 0.5

// MiniWindow is a picture-in-picture magnifier: it redraws the previous pass and
// shows an enlarged crop around the last touch in its own rectangle. Touches that
// start inside the window drag the window instead.
type MiniWindow struct {
	Base
	CropScale float32

	focus    mgl32.Vec2
	dragging bool
	tracking bool
	grab     mgl32.Vec2
}

// NewMiniWindow returns a magnifier drawn at r.
func NewMiniWindow(r geometry.Rect, cropScale float32) *MiniWindow {
	if cropScale <= 0 {
		cropScale = DefaultCropScale
	}
	cx, cy := r.Center()
	return &MiniWindow{Base: newBase(r), CropScale: cropScale, focus: mgl32.Vec2{cx, cy}}
}

// Focus is the point the crop is centered on, in logical coordinates.
func (n *MiniWindow) Focus() mgl32.Vec2 { return n.focus }

// CropCoordinates returns the texture coordinates of the crop window inside a scene
// of the given size.
func (n *MiniWindow) CropCoordinates(sceneW, sceneH float32) geometry.Quad {
	return geometry.CropTexture(sceneW, sceneH, n.rect.W*n.CropScale, n.rect.H*n.CropScale, n.focus[0], n.focus[1])
}

func (n *MiniWindow) Render(f *Frame) {
	if f.Chain == nil || !f.Chain.Ready() {
		return
	}
	before := f.Chain.Swap()
	f.CopyThrough(before)

	prog := f.Program(program.KindTexture)
	if prog == nil {
		return
	}
	crop := n.CropCoordinates(f.Width, f.Height)
	prog.Draw(before.ID(), n.position[:], crop[:], f.MVP)
}

func (n *MiniWindow) OnTouch(f *Frame, ev graphics.TouchEvent) bool {
	p := mgl32.Vec2{ev.X, ev.Y}
	switch ev.Action {
	case graphics.TouchDown:
		n.tracking = true
		n.dragging = n.rect.Contains(ev.X, ev.Y)
		if n.dragging {
			n.grab = p.Sub(mgl32.Vec2{n.rect.X, n.rect.Y})
			return true
		}
	case graphics.TouchMove:
		if !n.tracking {
			return false
		}
		if n.dragging {
			n.moveTo(f, p.Sub(n.grab))
			return true
		}
	case graphics.TouchUp, graphics.TouchCancel:
		if !n.tracking {
			return false
		}
		n.tracking = false
		if n.dragging {
			n.dragging = false
			return true
		}
	}
	n.focus = mgl32.Vec2{
		mgl32.Clamp(p[0], 0, f.Width),
		mgl32.Clamp(p[1], 0, f.Height),
	}
	return true
}

// moveTo places the window's bottom-left corner at p, keeping it inside the scene.
func (n *MiniWindow) moveTo(f *Frame, p mgl32.Vec2) {
	r := n.rect
	r.X = mgl32.Clamp(p[0], 0, max(0, f.Width-r.W))
	r.Y = mgl32.Clamp(p[1], 0, max(0, f.Height-r.H))
	n.SetRect(r)
}
