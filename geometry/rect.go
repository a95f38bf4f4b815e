// Package geometry builds the vertex and texture-coordinate buffers used by the
// compositor and maps points between the surface and the logical scene space.
package geometry

// Rect is an axis-aligned rectangle. In logical space Y grows upwards and (X, Y) is
// the bottom-left corner; in surface space Y grows downwards and (X, Y) is the top-left.
type Rect struct {
	X, Y, W, H float32
}

func (r Rect) Left() float32   { return r.X }
func (r Rect) Right() float32  { return r.X + r.W }
func (r Rect) Bottom() float32 { return r.Y }
func (r Rect) Top() float32    { return r.Y + r.H }

// Center returns the middle of the rectangle.
func (r Rect) Center() (float32, float32) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Offset moves the rectangle by (dx, dy).
func (r Rect) Offset(dx, dy float32) Rect {
	return Rect{r.X + dx, r.Y + dy, r.W, r.H}
}

// ScaleAbout scales the rectangle by s around (cx, cy).
func (r Rect) ScaleAbout(s, cx, cy float32) Rect {
	return Rect{
		X: cx + (r.X-cx)*s,
		Y: cy + (r.Y-cy)*s,
		W: r.W * s,
		H: r.H * s,
	}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// FitCenter returns the largest rectangle with the aspect ratio of (srcW, srcH) that
// fits inside dst, centered in it.
func FitCenter(srcW, srcH float32, dst Rect) Rect {
	if srcW <= 0 || srcH <= 0 || dst.Empty() {
		return Rect{X: dst.X, Y: dst.Y}
	}
	s := dst.W / srcW
	if sy := dst.H / srcH; sy < s {
		s = sy
	}
	w, h := srcW*s, srcH*s
	return Rect{
		X: dst.X + (dst.W-w)/2,
		Y: dst.Y + (dst.H-h)/2,
		W: w,
		H: h,
	}
}

// ToLogical maps a surface point (y down) that falls on the display rectangle to the
// logical scene space of size (logicalW, logicalH) with y up.
func ToLogical(display Rect, logicalW, logicalH, sx, sy float32) (float32, float32) {
	if display.Empty() {
		return 0, 0
	}
	x := (sx - display.X) / display.W * logicalW
	y := (display.H - (sy - display.Y)) / display.H * logicalH
	return x, y
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
