package landmark

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
)

// Mapper converts detector image coordinates (origin top-left, y down) into the
// logical scene space. The zero Mapper passes points through unchanged.
type Mapper struct {
	// ImageW and ImageH are the size of the image the detector ran on.
	ImageW, ImageH float32
	// Rotation is the clockwise turn that brings the detector image upright.
	Rotation geometry.Rotation
	Mirror   geometry.Mirror
	// Target is where the upright image lands in logical space.
	Target geometry.Rect
}

// Map converts one point.
func (m Mapper) Map(x, y float32) mgl32.Vec2 {
	if m.ImageW <= 0 || m.ImageH <= 0 || m.Target.Empty() {
		return mgl32.Vec2{x, y}
	}
	u := x / m.ImageW
	v := 1 - y/m.ImageH

	switch m.Rotation {
	case geometry.Rotate90:
		u, v = v, 1-u
	case geometry.Rotate180:
		u, v = 1-u, 1-v
	case geometry.Rotate270:
		u, v = 1-v, u
	}
	switch m.Mirror {
	case geometry.MirrorHorizontal:
		u = 1 - u
	case geometry.MirrorVertical:
		v = 1 - v
	case geometry.MirrorBoth:
		u, v = 1-u, 1-v
	}
	return mgl32.Vec2{m.Target.X + u*m.Target.W, m.Target.Y + v*m.Target.H}
}
