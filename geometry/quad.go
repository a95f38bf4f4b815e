package geometry

// Quad holds four 2D vertices in triangle-strip order: bottom-left, bottom-right,
// top-left, top-right.
type Quad [8]float32

// UnitQuad maps the whole texture onto a quad.
var UnitQuad = Quad{
	0, 0,
	1, 0,
	0, 1,
	1, 1,
}

// Position returns the corners of the rectangle (x, y, w, h) in strip order.
func Position(x, y, w, h float32) Quad {
	return Quad{
		x, y,
		x + w, y,
		x, y + h,
		x + w, y + h,
	}
}

// FlippedPosition converts a rectangle given in surface coordinates (y down) into a
// strip-ordered quad in GL coordinates for a viewport of the given height.
func FlippedPosition(r Rect, viewportHeight float32) Quad {
	bottom := viewportHeight - (r.Y + r.H)
	top := viewportHeight - r.Y
	return Quad{
		r.X, bottom,
		r.X + r.W, bottom,
		r.X, top,
		r.X + r.W, top,
	}
}

// Slice returns the quad as a vertex slice.
func (q *Quad) Slice() []float32 {
	return q[:]
}

// Vertex returns the i-th vertex.
func (q Quad) Vertex(i int) (float32, float32) {
	return q[i*2], q[i*2+1]
}
