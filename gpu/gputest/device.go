// Package gputest provides a recording gpu.Device for tests that run without a
// graphics context.
package gputest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/gpu"
)

// Draw is one recorded DrawArrays call together with the state it was issued under.
type Draw struct {
	Program     uint32
	Framebuffer uint32
	Texture     uint32
	Mode        gpu.Primitive
	First       int
	Count       int
	Attribs     map[int32][]float32
}

// Device records every call and hands out increasing handles. Handles are never
// reused, so a test can tell a recreated object from the original.
type Device struct {
	mu sync.Mutex

	next uint32

	Textures     map[uint32][2]int
	Framebuffers map[uint32]uint32
	Programs     map[uint32]string
	Deleted      []uint32

	// FailPrograms makes NewProgram fail for fragment sources containing the key.
	FailPrograms map[string]bool
	// FailFramebuffers makes every NewFramebuffer call fail.
	FailFramebuffers bool

	Draws     []Draw
	Clears    []mgl32.Vec4
	Viewports [][4]int
	Resets    int
	Uniforms  map[int32][]float32
	Blend     bool
	Pending   []uint32

	boundFBO     uint32
	boundProgram uint32
	boundTexture map[int]uint32
	attribs      map[int32][]float32
	locations    map[string]int32
}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{
		next:         1,
		Textures:     make(map[uint32][2]int),
		Framebuffers: make(map[uint32]uint32),
		Programs:     make(map[uint32]string),
		FailPrograms: make(map[string]bool),
		Uniforms:     make(map[int32][]float32),
		boundTexture: make(map[int]uint32),
		attribs:      make(map[int32][]float32),
		locations:    make(map[string]int32),
	}
}

var _ gpu.Device = (*Device)(nil)

func (d *Device) handle() uint32 {
	h := d.next
	d.next++
	return h
}

// ResetDraws forgets the recorded draws and clears.
func (d *Device) ResetDraws() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Draws = nil
	d.Clears = nil
}

// DrawsWith returns the draws issued with the given program.
func (d *Device) DrawsWith(program uint32) []Draw {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Draw
	for _, dr := range d.Draws {
		if dr.Program == program {
			out = append(out, dr)
		}
	}
	return out
}

// BoundFramebuffer reports the current render target.
func (d *Device) BoundFramebuffer() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boundFBO
}

// LoseContext forgets every object without recording deletions, as a destroyed
// context would.
func (d *Device) LoseContext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Textures = make(map[uint32][2]int)
	d.Framebuffers = make(map[uint32]uint32)
	d.Programs = make(map[uint32]string)
	d.boundFBO = 0
	d.boundProgram = 0
	d.boundTexture = make(map[int]uint32)
	d.attribs = make(map[int32][]float32)
}

func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Resets++
	d.attribs = make(map[int32][]float32)
	return nil
}

func (d *Device) NewTexture(width, height int, pix []byte, sampler gpu.Sampler) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	if pix != nil && len(pix) < width*height*4 {
		return 0, fmt.Errorf("texture data too short")
	}
	h := d.handle()
	d.Textures[h] = [2]int{width, height}
	return h, nil
}

func (d *Device) UploadTexture(id uint32, width, height int, pix []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Textures[id]; ok {
		d.Textures[id] = [2]int{width, height}
	}
}

func (d *Device) DeleteTexture(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Textures, id)
	d.Deleted = append(d.Deleted, id)
}

func (d *Device) NewFramebuffer(texture uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailFramebuffers {
		return 0, gpu.ErrIncompleteFramebuffer
	}
	h := d.handle()
	d.Framebuffers[h] = texture
	return h, nil
}

func (d *Device) DeleteFramebuffer(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Framebuffers, id)
	d.Deleted = append(d.Deleted, id)
}

func (d *Device) BindFramebuffer(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Framebuffers[id]; id != 0 && !ok {
		d.Pending = append(d.Pending, 0x0506) // GL_INVALID_FRAMEBUFFER_OPERATION
	}
	d.boundFBO = id
}

func (d *Device) Viewport(x, y, width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Viewports = append(d.Viewports, [4]int{x, y, width, height})
}

func (d *Device) Clear(color mgl32.Vec4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clears = append(d.Clears, color)
}

func (d *Device) SetBlend(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Blend = enabled
}

func (d *Device) NewProgram(vertexSource, fragmentSource string) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.FailPrograms {
		if strings.Contains(fragmentSource, key) {
			return 0, fmt.Errorf("failed to compile shader: forced failure for %q", key)
		}
	}
	h := d.handle()
	d.Programs[h] = fragmentSource
	return h, nil
}

func (d *Device) DeleteProgram(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Programs, id)
	d.Deleted = append(d.Deleted, id)
}

// AttribLocation and UniformLocation hand out a stable location per name. Uniforms
// live above 100 so they never alias an attribute.
func (d *Device) AttribLocation(program uint32, name string) int32 {
	return d.location("a:"+name, 0)
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return d.location("u:"+name, 100)
}

func (d *Device) location(key string, base int32) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if loc, ok := d.locations[key]; ok {
		return loc
	}
	loc := base + int32(len(d.locations))
	d.locations[key] = loc
	return loc
}

func (d *Device) UseProgram(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Programs[id]; id != 0 && !ok {
		d.Pending = append(d.Pending, 0x0501) // GL_INVALID_VALUE
	}
	d.boundProgram = id
}

func (d *Device) setUniform(location int32, v ...float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Uniforms[location] = v
}

func (d *Device) UniformMatrix4(location int32, m mgl32.Mat4) { d.setUniform(location, m[:]...) }
func (d *Device) Uniform1i(location int32, v int32)           { d.setUniform(location, float32(v)) }
func (d *Device) Uniform1f(location int32, v float32)         { d.setUniform(location, v) }
func (d *Device) Uniform2f(location int32, x, y float32)      { d.setUniform(location, x, y) }
func (d *Device) Uniform4f(location int32, v mgl32.Vec4)      { d.setUniform(location, v[:]...) }

func (d *Device) BindTexture(unit int, id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Textures[id]; id != 0 && !ok {
		d.Pending = append(d.Pending, 0x0501)
	}
	d.boundTexture[unit] = id
}

func (d *Device) VertexAttrib(location int32, size int, data []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attribs[location] = append([]float32(nil), data...)
}

func (d *Device) DisableAttrib(location int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.attribs, location)
}

func (d *Device) DrawArrays(mode gpu.Primitive, first, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.boundProgram == 0 {
		d.Pending = append(d.Pending, 0x0502) // GL_INVALID_OPERATION
	}
	attribs := make(map[int32][]float32, len(d.attribs))
	for k, v := range d.attribs {
		attribs[k] = v
	}
	var tex uint32
	for unit := 0; unit < 4 && tex == 0; unit++ {
		tex = d.boundTexture[unit]
	}
	d.Draws = append(d.Draws, Draw{
		Program:     d.boundProgram,
		Framebuffer: d.boundFBO,
		Texture:     tex,
		Mode:        mode,
		First:       first,
		Count:       count,
		Attribs:     attribs,
	})
}

func (d *Device) ReadPixels(x, y, width, height int, dst []byte) {
	for i := range dst {
		dst[i] = byte(i)
	}
}

func (d *Device) Error() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Pending) == 0 {
		return 0
	}
	code := d.Pending[0]
	d.Pending = d.Pending[1:]
	return code
}
