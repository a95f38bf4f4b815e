// Package program owns the compositor's shader programs: one Program per Kind,
// compiled on first use and cached in a Pool until the graphics context goes away.
package program

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/shader"
)

// ErrCompile wraps every compile or link failure reported by the pool.
var ErrCompile = errors.New("shader program failed to build")

// Kind is the closed set of programs the compositor uses.
type Kind int

const (
	KindTexture Kind = iota
	KindVideo
	KindPrimitive
	KindDistortion
	KindPresent
	numKinds
)

var kindNames = [numKinds]string{"texture", "video", "primitive", "distortion", "present"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every program kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

type factory func(isGLES bool) (vertex, fragment string)

// factories is indexed by Kind.
var factories = [numKinds]factory{
	KindTexture:    func(g bool) (string, string) { return shader.Vertex(g), shader.Texture(g) },
	KindVideo:      func(g bool) (string, string) { return shader.Vertex(g), shader.Video(g) },
	KindPrimitive:  func(g bool) (string, string) { return shader.Vertex(g), shader.Primitive(g) },
	KindDistortion: func(g bool) (string, string) { return shader.Vertex(g), shader.Distortion(g) },
	KindPresent:    func(g bool) (string, string) { return shader.Vertex(g), shader.Texture(g) },
}

// Locations are resolved once, right after linking. -1 means the program does not
// use the variable.
type Locations struct {
	Position  int32
	TexCoord  int32
	MVP       int32
	Texture   int32
	PointSize int32

	Color int32
	Round int32

	Origin    int32
	Target    int32
	Mode      int32
	Intensity int32
	Radius    int32
	Curve     int32
}

func resolve(dev gpu.Device, handle uint32) Locations {
	u := func(name string) int32 { return dev.UniformLocation(handle, name) }
	return Locations{
		Position:  dev.AttribLocation(handle, shader.AttribPosition),
		TexCoord:  dev.AttribLocation(handle, shader.AttribTexCoord),
		MVP:       u(shader.UniformMVP),
		Texture:   u(shader.UniformTexture),
		PointSize: u("pointSize"),
		Color:     u("color"),
		Round:     u("roundPoints"),
		Origin:    u("originalPoint"),
		Target:    u("targetPoint"),
		Mode:      u("faceDistortion"),
		Intensity: u("intensity"),
		Radius:    u("radius"),
		Curve:     u("curve"),
	}
}

// Program is a linked shader program of one Kind. Per-kind parameters are plain
// fields set by the caller before Draw.
type Program struct {
	kind     Kind
	dev      gpu.Device
	handle   uint32
	loc      Locations
	grid     geometry.Grid
	released bool

	// Primitive programs.
	Mode      gpu.Primitive
	PointSize float32
	Color     mgl32.Vec4
	Round     bool

	// Distortion programs, in texture space.
	Distortion geometry.Distortion
}

func newProgram(dev gpu.Device, kind Kind, isGLES bool) (*Program, error) {
	vs, fs := factories[kind](isGLES)
	handle, err := dev.NewProgram(vs, fs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, kind, err)
	}
	p := &Program{
		kind:      kind,
		dev:       dev,
		handle:    handle,
		loc:       resolve(dev, handle),
		grid:      geometry.DefaultGrid,
		Mode:      gpu.Points,
		PointSize: 8,
		Color:     mgl32.Vec4{1, 0, 0, 1},
		Round:     true,
		Distortion: geometry.Distortion{
			Radius:    0.19,
			Intensity: 0.3,
			Curve:     2,
		},
	}
	return p, nil
}

func (p *Program) Kind() Kind           { return p.kind }
func (p *Program) Handle() uint32       { return p.handle }
func (p *Program) Locations() Locations { return p.loc }
func (p *Program) Released() bool       { return p.released }

// Grid returns the mesh textured passes draw with.
func (p *Program) Grid() geometry.Grid { return p.grid }

// SetGrid switches the program to a rows x cols vertex mesh. Invalid grids fall back
// to a single quad.
func (p *Program) SetGrid(rows, cols int) {
	g := geometry.Grid{Rows: rows, Cols: cols}
	if !g.Valid() {
		g = geometry.DefaultGrid
	}
	p.grid = g
}

// ResetGrid restores the single-quad mesh.
func (p *Program) ResetGrid() { p.grid = geometry.DefaultGrid }

func (p *Program) textured() bool {
	return p.kind != KindPrimitive
}

// Draw issues the program's draw calls. positions and texCoords hold 2D vertices;
// textured kinds expect them laid out as the current grid (see geometry.Mesh) and
// ignore texture 0. A released program draws nothing.
func (p *Program) Draw(texture uint32, positions, texCoords []float32, mvp mgl32.Mat4) {
	if p.released || p.handle == 0 || len(positions) < 2 {
		return
	}
	if p.textured() && texture == 0 {
		return
	}
	d := p.dev
	d.UseProgram(p.handle)
	d.VertexAttrib(p.loc.Position, 2, positions)
	if p.loc.TexCoord >= 0 && texCoords != nil {
		d.VertexAttrib(p.loc.TexCoord, 2, texCoords)
	}
	d.UniformMatrix4(p.loc.MVP, mvp)
	d.Uniform1f(p.loc.PointSize, p.PointSize)

	switch p.kind {
	case KindPrimitive:
		d.Uniform4f(p.loc.Color, p.Color)
		round := int32(0)
		if p.Round && p.Mode == gpu.Points {
			round = 1
		}
		d.Uniform1i(p.loc.Round, round)
		d.DrawArrays(p.Mode, 0, len(positions)/2)
	case KindDistortion:
		dist := p.Distortion
		d.Uniform2f(p.loc.Origin, dist.Origin[0], dist.Origin[1])
		d.Uniform2f(p.loc.Target, dist.Target[0], dist.Target[1])
		d.Uniform1i(p.loc.Mode, int32(dist.Mode))
		d.Uniform1f(p.loc.Intensity, dist.Intensity)
		d.Uniform1f(p.loc.Radius, dist.Radius)
		d.Uniform1f(p.loc.Curve, dist.Curve)
		p.drawTextured(texture, len(positions)/2)
	default:
		p.drawTextured(texture, len(positions)/2)
	}

	d.DisableAttrib(p.loc.Position)
	if p.loc.TexCoord >= 0 {
		d.DisableAttrib(p.loc.TexCoord)
	}
	if p.textured() {
		d.BindTexture(0, 0)
	}
	d.UseProgram(0)
}

func (p *Program) drawTextured(texture uint32, vertices int) {
	p.dev.BindTexture(0, texture)
	p.dev.Uniform1i(p.loc.Texture, 0)
	if p.grid == geometry.DefaultGrid || vertices < p.grid.Vertices() {
		p.dev.DrawArrays(gpu.TriangleStrip, 0, min(vertices, 4))
		return
	}
	n := p.grid.StripLen()
	for strip := 0; strip < p.grid.Strips(); strip++ {
		p.dev.DrawArrays(gpu.TriangleStrip, strip*n, n)
	}
}

// release deletes the GPU program. It is idempotent.
func (p *Program) release() {
	if p.released {
		return
	}
	p.released = true
	if p.handle != 0 {
		p.dev.DeleteProgram(p.handle)
	}
	p.handle = 0
}

// abandon forgets the handle without deleting it; the context that owned it is gone.
func (p *Program) abandon() {
	p.released = true
	p.handle = 0
}
