package node

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/program"
)

// ShapeOptions configures the face warp.
type ShapeOptions struct {
	Grid geometry.Grid
	Mode geometry.DistortionMode
	// Landmark is the index of the point the warp is centered on.
	Landmark int
	// TargetLandmark is the point a stretch pulls towards.
	TargetLandmark int
	Intensity      float32
	Radius         float32
	Curve          float32
	// Wireframe draws the mesh vertices on top of the result.
	Wireframe bool
}

// DefaultShapeOptions pinches around the nose tip.
var DefaultShapeOptions = ShapeOptions{
	Grid:           geometry.Grid{Rows: 3, Cols: 3},
	Mode:           geometry.Pinch,
	Landmark:       10,
	TargetLandmark: 10,
	Intensity:      0.3,
	Radius:         0.19,
	Curve:          2,
}

// Shape is a compositing pass that warps the previous pass around a landmark.
type Shape struct {
	Base
	Options ShapeOptions

	mesh     []float32
	texMesh  []float32
	meshFor  mgl32.Vec2
	meshGrid geometry.Grid
}

// NewShape returns a warp covering r.
func NewShape(r geometry.Rect, opts ShapeOptions) *Shape {
	if !opts.Grid.Valid() {
		opts.Grid = geometry.DefaultGrid
	}
	return &Shape{Base: newBase(r), Options: opts}
}

// buildMesh lays the grid over the node and over the matching region of the scene
// texture. It is rebuilt when the scene size or the grid changes.
func (n *Shape) buildMesh(f *Frame) {
	size := mgl32.Vec2{f.Width, f.Height}
	if n.mesh != nil && n.meshFor == size && n.meshGrid == n.Options.Grid {
		return
	}
	g := n.Options.Grid
	r := n.rect
	n.mesh = geometry.Mesh(r, g)
	n.texMesh = geometry.Mesh(geometry.Rect{
		X: r.X / f.Width,
		Y: r.Y / f.Height,
		W: r.W / f.Width,
		H: r.H / f.Height,
	}, g)
	n.meshFor = size
	n.meshGrid = g
}

func (n *Shape) SetRect(r geometry.Rect) {
	n.Base.SetRect(r)
	n.mesh = nil
}

// distortion returns the warp parameters for a detection in scene texture space, and
// false when the landmark is missing.
func (n *Shape) distortion(f *Frame) (geometry.Distortion, bool) {
	origin, ok := f.Landmarks.Point(n.Options.Landmark)
	if !ok || f.Width <= 0 || f.Height <= 0 {
		return geometry.Distortion{}, false
	}
	target, ok := f.Landmarks.Point(n.Options.TargetLandmark)
	if !ok {
		target = origin
	}
	toTex := func(p mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{p[0] / f.Width, p[1] / f.Height} }
	return geometry.Distortion{
		Mode:      n.Options.Mode,
		Origin:    toTex(origin),
		Target:    toTex(target),
		Radius:    n.Options.Radius,
		Intensity: n.Options.Intensity,
		Curve:     n.Options.Curve,
	}, true
}

func (n *Shape) Render(f *Frame) {
	if f.Chain == nil || !f.Chain.Ready() {
		return
	}
	before := f.Chain.Swap()
	n.buildMesh(f)
	if !n.coversScene(f) {
		f.CopyThrough(before)
	}

	g := n.Options.Grid
	if tex := f.Program(program.KindTexture); tex != nil {
		tex.SetGrid(g.Rows, g.Cols)
		tex.Draw(before.ID(), n.mesh, n.texMesh, f.MVP)
		tex.ResetGrid()
	}

	if d, ok := n.distortion(f); ok {
		if prog := f.Program(program.KindDistortion); prog != nil {
			prog.Distortion = d
			prog.SetGrid(g.Rows, g.Cols)
			prog.Draw(before.ID(), n.mesh, n.texMesh, f.MVP)
			prog.ResetGrid()
		}
	}

	if n.Options.Wireframe {
		if prim := f.Program(program.KindPrimitive); prim != nil {
			prim.Mode = gpu.Points
			prim.Round = true
			prim.PointSize = 6
			prim.Color = mgl32.Vec4{1, 1, 0, 1}
			prim.Draw(0, n.mesh, nil, f.MVP)
		}
	}
}
