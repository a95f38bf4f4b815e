package gpu

import (
	"fmt"
	"strings"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

var glInitOnce sync.Once

// GL implements Device on top of go-gl. Vertex data is streamed through one buffer
// object per attribute location, all recorded in a single vertex array.
type GL struct {
	gles bool
	vao  uint32
	vbos map[int32]uint32
}

// NewGL loads the OpenGL function pointers (once per process) and prepares the vertex
// array used by every draw. The context must be current on the calling thread.
func NewGL(gles bool) (*GL, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	d := &GL{gles: gles}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	log.Printf("OpenGL %s initialized", gl.GoStr(gl.GetString(gl.VERSION)))
	return d, nil
}

func (d *GL) Reset() error {
	d.vbos = make(map[int32]uint32)
	gl.GenVertexArrays(1, &d.vao)
	if d.vao == 0 {
		return fmt.Errorf("failed to create vertex array")
	}
	gl.BindVertexArray(d.vao)
	if !d.gles {
		// Desktop core profiles ignore gl_PointSize unless asked.
		gl.Enable(gl.PROGRAM_POINT_SIZE)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	return nil
}

func (d *GL) NewTexture(width, height int, pix []byte, sampler Sampler) (uint32, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	if pix != nil && len(pix) < width*height*4 {
		return 0, fmt.Errorf("texture data too short: %d bytes for %dx%d", len(pix), width, height)
	}
	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, getWrapMode(sampler.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, getWrapMode(sampler.Wrap))
	minFilter, magFilter := getFilterMode(sampler.Filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)

	var ptr = gl.Ptr(nil)
	if pix != nil {
		ptr = gl.Ptr(pix)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	if pix != nil && sampler.Filter == "mipmap" {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &textureID)
		return 0, fmt.Errorf("texture upload failed: gl error 0x%x", code)
	}
	return textureID, nil
}

func (d *GL) UploadTexture(id uint32, width, height int, pix []byte) {
	if id == 0 || len(pix) < width*height*4 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *GL) DeleteTexture(id uint32) {
	if id != 0 {
		gl.DeleteTextures(1, &id)
	}
}

func (d *GL) NewFramebuffer(texture uint32) (uint32, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, texture, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("%w: status 0x%x", ErrIncompleteFramebuffer, status)
	}
	return fbo, nil
}

func (d *GL) DeleteFramebuffer(id uint32) {
	if id != 0 {
		gl.DeleteFramebuffers(1, &id)
	}
}

func (d *GL) BindFramebuffer(id uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, id)
}

func (d *GL) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *GL) Clear(color mgl32.Vec4) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *GL) SetBlend(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		return
	}
	gl.Disable(gl.BLEND)
}

func (d *GL) NewProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", logText)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}

func (d *GL) DeleteProgram(id uint32) {
	if id != 0 {
		gl.DeleteProgram(id)
	}
}

func (d *GL) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (d *GL) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *GL) UseProgram(id uint32) {
	gl.UseProgram(id)
}

func (d *GL) UniformMatrix4(location int32, m mgl32.Mat4) {
	if location >= 0 {
		gl.UniformMatrix4fv(location, 1, false, &m[0])
	}
}

func (d *GL) Uniform1i(location int32, v int32) {
	if location >= 0 {
		gl.Uniform1i(location, v)
	}
}

func (d *GL) Uniform1f(location int32, v float32) {
	if location >= 0 {
		gl.Uniform1f(location, v)
	}
}

func (d *GL) Uniform2f(location int32, x, y float32) {
	if location >= 0 {
		gl.Uniform2f(location, x, y)
	}
}

func (d *GL) Uniform4f(location int32, v mgl32.Vec4) {
	if location >= 0 {
		gl.Uniform4f(location, v[0], v[1], v[2], v[3])
	}
}

func (d *GL) BindTexture(unit int, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, id)
}

func (d *GL) VertexAttrib(location int32, size int, data []float32) {
	if location < 0 || len(data) == 0 {
		return
	}
	vbo, ok := d.vbos[location]
	if !ok {
		gl.GenBuffers(1, &vbo)
		d.vbos[location] = vbo
	}
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STREAM_DRAW)
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointer(uint32(location), int32(size), gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *GL) DisableAttrib(location int32) {
	if location >= 0 {
		gl.DisableVertexAttribArray(uint32(location))
	}
}

func (d *GL) DrawArrays(mode Primitive, first, count int) {
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(glPrimitive(mode), int32(first), int32(count))
}

func (d *GL) ReadPixels(x, y, width, height int, dst []byte) {
	if len(dst) < width*height*4 {
		return
	}
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
}

func (d *GL) Error() uint32 {
	return gl.GetError()
}

func glPrimitive(p Primitive) uint32 {
	switch p {
	case Points:
		return gl.POINTS
	case LineStrip:
		return gl.LINE_STRIP
	default:
		return gl.TRIANGLE_STRIP
	}
}

// Helper to convert the configured wrap string to an OpenGL constant.
func getWrapMode(wrap string) int32 {
	switch wrap {
	case "repeat":
		return gl.REPEAT
	case "clamp":
		return gl.CLAMP_TO_EDGE
	default:
		return gl.CLAMP_TO_EDGE
	}
}

// Helper to convert the configured filter string to OpenGL constants.
func getFilterMode(filter string) (minFilter, magFilter int32) {
	switch filter {
	case "mipmap":
		return gl.LINEAR_MIPMAP_LINEAR, gl.LINEAR
	case "nearest":
		return gl.NEAREST, gl.NEAREST
	default:
		return gl.LINEAR, gl.LINEAR
	}
}
