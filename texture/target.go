package texture

import (
	"fmt"

	"github.com/richinsley/gofacewarp/gpu"
)

// RenderTarget is a texture with a framebuffer attached, one slot of a
// FramebufferChain.
type RenderTarget struct {
	info
	fbo uint32
}

// NewRenderTarget returns an unallocated target of the given size.
func NewRenderTarget(width, height int) *RenderTarget {
	return &RenderTarget{info: info{width: width, height: height}}
}

// Framebuffer returns the framebuffer handle, zero when not allocated.
func (t *RenderTarget) Framebuffer() uint32 {
	if t.released {
		return 0
	}
	return t.fbo
}

func (t *RenderTarget) Valid() bool {
	return t.info.Valid() && t.fbo != 0
}

func (t *RenderTarget) Invalidate() {
	t.info.Invalidate()
	t.fbo = 0
}

func (t *RenderTarget) Recreate(dev gpu.Device) error {
	if t.released || t.Valid() {
		return nil
	}
	texture, err := dev.NewTexture(t.width, t.height, nil, gpu.DefaultSampler)
	if err != nil {
		return fmt.Errorf("%w: render target %dx%d: %v", ErrIncomplete, t.width, t.height, err)
	}
	fbo, err := dev.NewFramebuffer(texture)
	if err != nil {
		dev.DeleteTexture(texture)
		return fmt.Errorf("%w: render target %dx%d: %v", ErrIncomplete, t.width, t.height, err)
	}
	t.id, t.fbo = texture, fbo
	return nil
}

func (t *RenderTarget) Release(dev gpu.Device) {
	if !t.released && t.fbo != 0 {
		dev.DeleteFramebuffer(t.fbo)
	}
	t.fbo = 0
	t.info.Release(dev)
}

// Bind makes the target the current render target and sets the viewport to its size.
func (t *RenderTarget) Bind(dev gpu.Device) {
	dev.BindFramebuffer(t.Framebuffer())
	dev.Viewport(0, 0, t.width, t.height)
}
