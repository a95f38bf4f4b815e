// Package gpu defines the narrow set of graphics calls the compositor issues and
// provides an OpenGL implementation of it.
package gpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// Primitive selects how DrawArrays assembles vertices.
type Primitive int

const (
	TriangleStrip Primitive = iota
	Points
	LineStrip
)

func (p Primitive) String() string {
	switch p {
	case TriangleStrip:
		return "triangle_strip"
	case Points:
		return "points"
	case LineStrip:
		return "line_strip"
	}
	return "unknown"
}

// Sampler holds the filter and wrap modes applied to a texture on creation.
// Values follow the strings used by the scene configuration ("linear", "nearest",
// "mipmap", "clamp", "repeat").
type Sampler struct {
	Filter string
	Wrap   string
}

// DefaultSampler is linear filtering clamped to the edge, which every pass of the
// compositor relies on when sampling outside [0,1].
var DefaultSampler = Sampler{Filter: "linear", Wrap: "clamp"}

// ErrIncompleteFramebuffer is returned when a render target cannot be attached.
var ErrIncompleteFramebuffer = errors.New("framebuffer is not complete")

// Device is everything the compositor needs from a graphics context. All methods must
// be called from the goroutine that owns the context.
type Device interface {
	// Reset drops every handle owned by the device itself (vertex arrays and streaming
	// buffers). It is called after the underlying context was recreated.
	Reset() error

	NewTexture(width, height int, pix []byte, sampler Sampler) (uint32, error)
	UploadTexture(id uint32, width, height int, pix []byte)
	DeleteTexture(id uint32)

	NewFramebuffer(texture uint32) (uint32, error)
	DeleteFramebuffer(id uint32)
	// BindFramebuffer makes id the render target. Zero is the visible surface.
	BindFramebuffer(id uint32)
	Viewport(x, y, width, height int)
	Clear(color mgl32.Vec4)
	SetBlend(enabled bool)

	NewProgram(vertexSource, fragmentSource string) (uint32, error)
	DeleteProgram(id uint32)
	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32
	UseProgram(id uint32)
	UniformMatrix4(location int32, m mgl32.Mat4)
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, x, y float32)
	Uniform4f(location int32, v mgl32.Vec4)
	BindTexture(unit int, id uint32)
	VertexAttrib(location int32, size int, data []float32)
	DisableAttrib(location int32)
	DrawArrays(mode Primitive, first, count int)

	// ReadPixels copies an RGBA8 rectangle of the bound render target into dst.
	ReadPixels(x, y, width, height int, dst []byte)
	// Error returns the first pending error code, or zero.
	Error() uint32
}
