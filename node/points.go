package node

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/graphics"
	"github.com/richinsley/gofacewarp/landmark"
	"github.com/richinsley/gofacewarp/program"
)

// PointsStyle configures how a Points node draws and hit-tests.
type PointsStyle struct {
	// Tolerance is the hit-test half extent in logical pixels.
	Tolerance   float32
	PointSize   float32
	Color       mgl32.Vec4
	MarkerSize  float32
	MarkerColor mgl32.Vec4
}

// DefaultPointsStyle matches the overlay of the face detector preview.
var DefaultPointsStyle = PointsStyle{
	Tolerance:   30,
	PointSize:   8,
	Color:       mgl32.Vec4{1, 0, 0, 1},
	MarkerSize:  24,
	MarkerColor: mgl32.Vec4{0, 1, 0, 0.8},
}

// Points overlays the current landmarks. Each point can be dragged; the drag is kept
// as an offset added to every later detection.
type Points struct {
	Base
	Style PointsStyle

	offsets  []mgl32.Vec2
	claimed  bool
	selected int
	grab     mgl32.Vec2
	touch    mgl32.Vec2
}

// NewPoints returns an overlay covering r.
func NewPoints(r geometry.Rect, style PointsStyle) *Points {
	return &Points{
		Base:     newBase(r),
		Style:    style,
		offsets:  make([]mgl32.Vec2, landmark.Count),
		selected: -1,
	}
}

// Offset returns the drag offset of point i.
func (n *Points) Offset(i int) mgl32.Vec2 {
	if i < 0 || i >= len(n.offsets) {
		return mgl32.Vec2{}
	}
	return n.offsets[i]
}

// Claimed reports whether a touch is being tracked.
func (n *Points) Claimed() bool { return n.claimed }

// Selected is the index of the dragged point, or -1.
func (n *Points) Selected() int { return n.selected }

func (n *Points) positions(snap *landmark.Snapshot) []float32 {
	if !snap.Present {
		return nil
	}
	if len(snap.Points) > len(n.offsets) {
		n.offsets = append(n.offsets, make([]mgl32.Vec2, len(snap.Points)-len(n.offsets))...)
	}
	out := make([]float32, 0, len(snap.Points)*2)
	for i, p := range snap.Points {
		p = p.Add(n.offsets[i])
		out = append(out, p[0], p[1])
	}
	return out
}

func (n *Points) Render(f *Frame) {
	prog := f.Program(program.KindPrimitive)
	if prog == nil {
		return
	}
	prog.Mode = gpu.Points
	prog.Round = true
	if pts := n.positions(f.Landmarks); len(pts) > 0 {
		prog.PointSize = n.Style.PointSize
		prog.Color = n.Style.Color
		prog.Draw(0, pts, nil, f.MVP)
	}
	if n.claimed {
		prog.PointSize = n.Style.MarkerSize
		prog.Color = n.Style.MarkerColor
		prog.Draw(0, n.touch[:], nil, f.MVP)
	}
}

func (n *Points) clampToRect(x, y float32) mgl32.Vec2 {
	r := n.rect
	return mgl32.Vec2{
		mgl32.Clamp(x, r.Left(), r.Right()),
		mgl32.Clamp(y, r.Bottom(), r.Top()),
	}
}

// OnTouch picks the first point within Tolerance on down and drags it on move.
func (n *Points) OnTouch(f *Frame, ev graphics.TouchEvent) bool {
	switch ev.Action {
	case graphics.TouchDown:
		n.claimed = false
		n.selected = -1
		pts := n.positions(f.Landmarks)
		tol := n.Style.Tolerance
		for i := 0; i+1 < len(pts); i += 2 {
			dx, dy := ev.X-pts[i], ev.Y-pts[i+1]
			if abs(dx) < tol && abs(dy) < tol {
				n.claimed = true
				n.selected = i / 2
				n.grab = mgl32.Vec2{ev.X, ev.Y}.Sub(n.offsets[n.selected])
				n.touch = mgl32.Vec2{ev.X, ev.Y}
				break
			}
		}
		return n.claimed
	case graphics.TouchMove:
		if !n.claimed {
			return false
		}
		n.touch = n.clampToRect(ev.X, ev.Y)
		n.offsets[n.selected] = n.touch.Sub(n.grab)
		return true
	case graphics.TouchUp, graphics.TouchCancel:
		if !n.claimed {
			return false
		}
		n.claimed = false
		n.selected = -1
		return true
	}
	return false
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
