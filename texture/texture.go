// Package texture holds the GPU textures the compositor samples: decoded images,
// streamed video frames and the offscreen render targets of the framebuffer chain.
package texture

import (
	"errors"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
)

// ErrIncomplete is returned when a texture or render target cannot be allocated.
var ErrIncomplete = errors.New("texture is not complete")

// Texture is a 2D RGBA texture owned by exactly one node or chain.
type Texture interface {
	// ID is the GPU handle, or zero when the texture is released or not allocated.
	ID() uint32
	Width() int
	Height() int
	Rotation() geometry.Rotation
	Mirror() geometry.Mirror
	// Valid reports whether ID may be bound.
	Valid() bool
	Released() bool
	// Invalidate forgets the handle after the context that owned it was lost.
	Invalidate()
	// Recreate allocates the texture again on dev. It is a no-op once released.
	Recreate(dev gpu.Device) error
	// Release deletes the texture. Later calls are no-ops.
	Release(dev gpu.Device)
}

type info struct {
	id       uint32
	width    int
	height   int
	rotation geometry.Rotation
	mirror   geometry.Mirror
	released bool
}

func (i *info) ID() uint32 {
	if i.released {
		return 0
	}
	return i.id
}

func (i *info) Width() int                  { return i.width }
func (i *info) Height() int                 { return i.height }
func (i *info) Rotation() geometry.Rotation { return i.rotation }
func (i *info) Mirror() geometry.Mirror     { return i.mirror }
func (i *info) Valid() bool                 { return !i.released && i.id != 0 }
func (i *info) Released() bool              { return i.released }
func (i *info) Invalidate()                 { i.id = 0 }

func (i *info) Release(dev gpu.Device) {
	if i.released {
		return
	}
	i.released = true
	if i.id != 0 {
		dev.DeleteTexture(i.id)
	}
	i.id = 0
}
