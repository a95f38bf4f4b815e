package node

import (
	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/program"
	"github.com/richinsley/gofacewarp/source"
	"github.com/richinsley/gofacewarp/texture"
)

// Video draws the latest frame of a video producer into its rectangle.
type Video struct {
	Base
	tex       *texture.Stream
	scaleType geometry.ScaleType
	texCoord  geometry.Quad
	failure   warnOnce
}

// NewVideo returns a node showing frames from p.
func NewVideo(r geometry.Rect, p source.Provider, scaleType geometry.ScaleType) *Video {
	return &Video{
		Base:      newBase(r),
		tex:       texture.NewStream(p),
		scaleType: scaleType,
		texCoord:  geometry.UnitQuad,
	}
}

// Texture exposes the stream texture.
func (n *Video) Texture() *texture.Stream { return n.tex }

// SetRect moves the node and re-derives its texture coordinates.
func (n *Video) SetRect(r geometry.Rect) {
	n.Base.SetRect(r)
	n.updateTexCoord()
}

func (n *Video) updateTexCoord() {
	n.texCoord = geometry.TextureCoordinates(geometry.Mapping{
		ViewportW: n.rect.W,
		ViewportH: n.rect.H,
		TextureW:  float32(n.tex.Width()),
		TextureH:  float32(n.tex.Height()),
		Rotation:  n.tex.Rotation(),
		Mirror:    n.tex.Mirror(),
		ScaleType: n.scaleType,
	})
}

func (n *Video) Invalidate() { n.tex.Invalidate() }

func (n *Video) Recreate(f *Frame) error {
	n.failure.reset()
	if err := n.tex.Recreate(f.Device); err != nil {
		return err
	}
	n.updateTexCoord()
	return nil
}

func (n *Video) Render(f *Frame) {
	changed, err := n.tex.Update(f.Device)
	if err != nil {
		n.failure.warn("video node: %v", err)
	}
	if changed {
		n.updateTexCoord()
	}
	if !n.tex.Valid() {
		return
	}
	prog := f.Program(program.KindVideo)
	if prog == nil {
		return
	}
	prog.Draw(n.tex.ID(), n.position[:], n.texCoord[:], f.MVP)
}

func (n *Video) Release(dev gpu.Device) { n.tex.Release(dev) }
