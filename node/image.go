package node

import (
	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/program"
	"github.com/richinsley/gofacewarp/texture"
)

// Image draws a static texture, blended when it has transparent pixels.
type Image struct {
	Base
	tex      *texture.Image
	texCoord geometry.Quad
}

// NewImage lays tex onto r with the given scale type.
func NewImage(r geometry.Rect, tex *texture.Image, scaleType geometry.ScaleType) *Image {
	return &Image{
		Base: newBase(r),
		tex:  tex,
		texCoord: geometry.TextureCoordinates(geometry.Mapping{
			ViewportW: r.W,
			ViewportH: r.H,
			TextureW:  float32(tex.Width()),
			TextureH:  float32(tex.Height()),
			Rotation:  tex.Rotation(),
			Mirror:    tex.Mirror(),
			ScaleType: scaleType,
		}),
	}
}

func (n *Image) Invalidate() { n.tex.Invalidate() }

func (n *Image) Recreate(f *Frame) error { return n.tex.Recreate(f.Device) }

func (n *Image) Render(f *Frame) {
	if !n.tex.Valid() {
		return
	}
	prog := f.Program(program.KindTexture)
	if prog == nil {
		return
	}
	if n.tex.HasAlpha() {
		f.Device.SetBlend(true)
		defer f.Device.SetBlend(false)
	}
	prog.Draw(n.tex.ID(), n.position[:], n.texCoord[:], f.MVP)
}

func (n *Image) Release(dev gpu.Device) { n.tex.Release(dev) }
