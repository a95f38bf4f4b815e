package geometry

import (
	"fmt"
	"math"
)

// Rotation is a clockwise quarter-turn applied to a texture, in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// ParseRotation accepts any multiple of 90 and normalizes it to [0, 360).
func ParseRotation(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return Rotate0, fmt.Errorf("rotation %d is not a multiple of 90", deg)
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return Rotation(deg), nil
}

// Swaps reports whether the rotation exchanges width and height.
func (r Rotation) Swaps() bool {
	return r == Rotate90 || r == Rotate270
}

// Mirror flips texture coordinates along one or both axes.
type Mirror int

const (
	MirrorNone Mirror = iota
	MirrorHorizontal
	MirrorVertical
	MirrorBoth
)

// ParseMirror maps the configuration names to a Mirror.
func ParseMirror(s string) (Mirror, error) {
	switch s {
	case "", "none":
		return MirrorNone, nil
	case "horizontal":
		return MirrorHorizontal, nil
	case "vertical":
		return MirrorVertical, nil
	case "both":
		return MirrorBoth, nil
	}
	return MirrorNone, fmt.Errorf("unknown mirror %q", s)
}

func (m Mirror) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorBoth:
		return "both"
	}
	return "none"
}

func (m Mirror) flipsX() bool { return m == MirrorHorizontal || m == MirrorBoth }
func (m Mirror) flipsY() bool { return m == MirrorVertical || m == MirrorBoth }

// ScaleType decides how a texture of one aspect ratio fills a rectangle of another.
type ScaleType int

const (
	// CenterInside letterboxes: the whole texture is visible, the rest is transparent.
	CenterInside ScaleType = iota
	// CropCenter fills the rectangle and crops the overflow.
	CropCenter
)

// ParseScaleType maps the configuration names to a ScaleType.
func ParseScaleType(s string) (ScaleType, error) {
	switch s {
	case "", "center_inside":
		return CenterInside, nil
	case "crop_center":
		return CropCenter, nil
	}
	return CenterInside, fmt.Errorf("unknown scale type %q", s)
}

// Place returns where an image of size (srcW, srcH) appears inside dst under the scale
// type. A cropped image overflows dst.
func Place(srcW, srcH float32, dst Rect, st ScaleType) Rect {
	fitted := FitCenter(srcW, srcH, dst)
	if st != CropCenter || fitted.Empty() {
		return fitted
	}
	s := dst.W / fitted.W
	if sy := dst.H / fitted.H; sy > s {
		s = sy
	}
	cx, cy := dst.Center()
	return fitted.ScaleAbout(s, cx, cy)
}

// Mapping describes how a texture is laid onto a rectangle.
type Mapping struct {
	ViewportW, ViewportH float32
	TextureW, TextureH   float32
	Rotation             Rotation
	Mirror               Mirror
	ScaleType            ScaleType
	// Scale zooms the texture; zero means 1.
	Scale float32
}

// TextureCoordinates returns strip-ordered texture coordinates that lay the texture
// onto the viewport with the requested rotation, mirror and scale type. Coordinates
// outside [0,1] mark letterbox areas, which the shaders render transparent.
func TextureCoordinates(m Mapping) Quad {
	vw, vh := m.ViewportW, m.ViewportH
	if vw <= 0 || vh <= 0 || m.TextureW <= 0 || m.TextureH <= 0 {
		return UnitQuad
	}
	tw, th := m.TextureW, m.TextureH
	if m.Rotation.Swaps() {
		tw, th = th, tw
	}
	fitted := FitCenter(tw, th, Rect{W: vw, H: vh})
	scaleX := vw / fitted.W
	scaleY := vh / fitted.H
	if m.ScaleType == CropCenter {
		s := scaleX
		if scaleY > s {
			s = scaleY
		}
		scaleX = vw / (fitted.W * s)
		scaleY = vh / (fitted.H * s)
	}
	if m.Scale > 0 {
		scaleX *= m.Scale
		scaleY *= m.Scale
	}
	if m.Mirror.flipsX() {
		scaleX = -scaleX
	}
	if m.Mirror.flipsY() {
		scaleY = -scaleY
	}

	cos, sin := quarterTurn(int(m.Rotation))
	var out Quad
	for i := 0; i < 4; i++ {
		u, v := UnitQuad.Vertex(i)
		x := (u - 0.5) * scaleX
		y := (v - 0.5) * scaleY
		out[i*2] = x*cos - y*sin + 0.5
		out[i*2+1] = x*sin + y*cos + 0.5
	}
	return out
}

// quarterTurn returns exact cosine and sine for multiples of 90 degrees.
func quarterTurn(deg int) (float32, float32) {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	switch deg {
	case 0:
		return 1, 0
	case 90:
		return 0, 1
	case 180:
		return -1, 0
	case 270:
		return 0, -1
	}
	rad := float64(deg) * math.Pi / 180
	return float32(math.Cos(rad)), float32(math.Sin(rad))
}
