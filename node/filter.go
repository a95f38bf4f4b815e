package node

import (
	"fmt"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/shader"
	"github.com/richinsley/gofacewarp/translator"
)

// Filter is a compositing pass running user supplied fragment code over the previous
// pass. The code defines vec4 filter(vec2 uv) and may use the inputTexture,
// resolution and time uniforms.
type Filter struct {
	Base
	code       string
	translator translator.Translator

	handle  uint32
	loc     filterLocations
	failure warnOnce
	err     error
}

type filterLocations struct {
	position   int32
	mvp        int32
	texture    int32
	resolution int32
	time       int32
}

// NewFilter returns a pass applying code over the whole scene.
func NewFilter(r geometry.Rect, code string, tr translator.Translator) *Filter {
	return &Filter{Base: newBase(r), code: code, translator: tr}
}

// Err is the last build error, if any.
func (n *Filter) Err() error { return n.err }

func (n *Filter) Invalidate() {
	n.handle = 0
}

func (n *Filter) Recreate(f *Frame) error {
	if n.handle != 0 {
		return nil
	}
	n.failure.reset()
	n.err = n.build(f.Device, f.Programs.IsGLES())
	return n.err
}

func (n *Filter) build(dev gpu.Device, isGLES bool) error {
	fs, err := n.translator.Translate(shader.Filter(n.code), "fragment", isGLES)
	if err != nil {
		return fmt.Errorf("failed to translate filter: %w", err)
	}
	handle, err := dev.NewProgram(shader.Vertex(isGLES), fs.Code)
	if err != nil {
		return fmt.Errorf("failed to build filter: %w", err)
	}
	n.handle = handle
	n.loc = filterLocations{
		position:   dev.AttribLocation(handle, shader.AttribPosition),
		mvp:        dev.UniformLocation(handle, shader.UniformMVP),
		texture:    dev.UniformLocation(handle, fs.Name(shader.UniformTexture)),
		resolution: dev.UniformLocation(handle, fs.Name("resolution")),
		time:       dev.UniformLocation(handle, fs.Name("time")),
	}
	return nil
}

func (n *Filter) Render(f *Frame) {
	if f.Chain == nil || !f.Chain.Ready() {
		return
	}
	before := f.Chain.Swap()
	if n.handle == 0 {
		// Keep the chain intact when the filter cannot run.
		f.CopyThrough(before)
		if n.err != nil {
			n.failure.warn("filter node: %v", n.err)
		}
		return
	}
	if !n.coversScene(f) {
		f.CopyThrough(before)
	}
	w, h := f.Chain.Size()
	pos := n.position

	d := f.Device
	d.UseProgram(n.handle)
	d.VertexAttrib(n.loc.position, 2, pos[:])
	d.UniformMatrix4(n.loc.mvp, f.MVP)
	d.BindTexture(0, before.ID())
	d.Uniform1i(n.loc.texture, 0)
	d.Uniform2f(n.loc.resolution, float32(w), float32(h))
	d.Uniform1f(n.loc.time, float32(f.Time))
	d.DrawArrays(gpu.TriangleStrip, 0, 4)
	d.DisableAttrib(n.loc.position)
	d.BindTexture(0, 0)
	d.UseProgram(0)
}

func (n *Filter) Release(dev gpu.Device) {
	if n.handle != 0 {
		dev.DeleteProgram(n.handle)
	}
	n.handle = 0
}
