package geometry

// Grid is a regular lattice of Rows x Cols vertices. A 2x2 grid is a single quad.
type Grid struct {
	Rows, Cols int
}

// DefaultGrid draws one quad.
var DefaultGrid = Grid{Rows: 2, Cols: 2}

// Valid reports whether the grid has at least one cell.
func (g Grid) Valid() bool {
	return g.Rows >= 2 && g.Cols >= 2
}

// Strips is the number of triangle strips, one per row of cells.
func (g Grid) Strips() int {
	return g.Rows - 1
}

// StripLen is the number of vertices in each strip.
func (g Grid) StripLen() int {
	return g.Cols * 2
}

// Vertices is the total vertex count of the mesh.
func (g Grid) Vertices() int {
	return g.Strips() * g.StripLen()
}

// Mesh lays a grid over r as consecutive triangle strips, one per row of cells, each
// zig-zagging bottom/top from left to right. A 2x2 mesh covers the same area
// as Position(r).
func Mesh(r Rect, g Grid) []float32 {
	if !g.Valid() {
		return nil
	}
	ws := r.W / float32(g.Cols-1)
	hs := r.H / float32(g.Rows-1)
	out := make([]float32, 0, g.Vertices()*2)
	for row := 0; row < g.Strips(); row++ {
		y0 := r.Y + float32(row)*hs
		y1 := r.Y + float32(row+1)*hs
		for col := 0; col < g.Cols; col++ {
			x := r.X + float32(col)*ws
			if col == g.Cols-1 {
				x = r.X + r.W
			}
			out = append(out, x, y0, x, y1)
		}
	}
	return out
}
