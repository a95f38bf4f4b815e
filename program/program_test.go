package program

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/gpu/gputest"
)

func TestPoolIdentityAcrossClear(t *testing.T) {
	dev := gputest.NewDevice()
	pool := NewPool(dev, false)

	a, err := pool.Get(KindDistortion)
	require.NoError(t, err)
	b, err := pool.Get(KindDistortion)
	require.NoError(t, err)
	assert.Same(t, a, b)
	handle := a.Handle()

	pool.Clear()
	assert.True(t, a.Released())
	assert.Contains(t, dev.Deleted, handle, "clear deletes the program")

	c, err := pool.Get(KindDistortion)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.NotEqual(t, handle, c.Handle())
}

func TestPoolInvalidateDoesNotDelete(t *testing.T) {
	dev := gputest.NewDevice()
	pool := NewPool(dev, true)

	a, err := pool.Get(KindTexture)
	require.NoError(t, err)
	handle := a.Handle()

	pool.Invalidate()
	assert.True(t, a.Released())
	assert.NotContains(t, dev.Deleted, handle)
	assert.False(t, pool.Cached(KindTexture))
}

func TestPoolRemembersFailure(t *testing.T) {
	dev := gputest.NewDevice()
	dev.FailPrograms["faceDistortion"] = true
	pool := NewPool(dev, false)

	_, err := pool.Get(KindDistortion)
	require.ErrorIs(t, err, ErrCompile)
	built := len(dev.Programs)

	delete(dev.FailPrograms, "faceDistortion")
	_, err = pool.Get(KindDistortion)
	require.ErrorIs(t, err, ErrCompile, "no retry before the context is recreated")
	assert.Equal(t, built, len(dev.Programs))

	pool.Invalidate()
	_, err = pool.Get(KindDistortion)
	assert.NoError(t, err)

	_, err = pool.Get(Kind(42))
	assert.ErrorIs(t, err, ErrCompile)
}

func TestLocationsResolvedEagerly(t *testing.T) {
	dev := gputest.NewDevice()
	pool := NewPool(dev, false)
	p, err := pool.Get(KindDistortion)
	require.NoError(t, err)

	loc := p.Locations()
	assert.Equal(t, dev.AttribLocation(p.Handle(), "vPosition"), loc.Position)
	assert.Equal(t, dev.UniformLocation(p.Handle(), "originalPoint"), loc.Origin)
	assert.Equal(t, dev.UniformLocation(p.Handle(), "curve"), loc.Curve)
}

func TestDrawTexturedGrid(t *testing.T) {
	dev := gputest.NewDevice()
	pool := NewPool(dev, false)
	p, err := pool.Get(KindTexture)
	require.NoError(t, err)
	tex, err := dev.NewTexture(4, 4, nil, gpu.DefaultSampler)
	require.NoError(t, err)

	quad := geometry.Position(0, 0, 10, 10)
	p.Draw(tex, quad[:], geometry.UnitQuad[:], mgl32.Ident4())
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, 4, dev.Draws[0].Count)
	assert.Equal(t, tex, dev.Draws[0].Texture)

	dev.ResetDraws()
	p.SetGrid(3, 4)
	mesh := geometry.Mesh(geometry.Rect{W: 10, H: 10}, p.Grid())
	p.Draw(tex, mesh, mesh, mgl32.Ident4())
	require.Len(t, dev.Draws, 2)
	assert.Equal(t, 0, dev.Draws[0].First)
	assert.Equal(t, 8, dev.Draws[1].First)
	assert.Equal(t, 8, dev.Draws[1].Count)

	p.ResetGrid()
	assert.Equal(t, geometry.DefaultGrid, p.Grid())

	p.SetGrid(1, 5)
	assert.Equal(t, geometry.DefaultGrid, p.Grid())

	dev.ResetDraws()
	p.Draw(0, quad[:], geometry.UnitQuad[:], mgl32.Ident4())
	assert.Empty(t, dev.Draws, "texture 0 is never sampled")
	assert.Zero(t, dev.Error())
}

func TestDrawPrimitiveAndReleased(t *testing.T) {
	dev := gputest.NewDevice()
	pool := NewPool(dev, false)
	p, err := pool.Get(KindPrimitive)
	require.NoError(t, err)

	pts := []float32{1, 1, 2, 2, 3, 3}
	p.Draw(0, pts, nil, mgl32.Ident4())
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gpu.Points, dev.Draws[0].Mode)
	assert.Equal(t, 3, dev.Draws[0].Count)

	pool.Clear()
	dev.ResetDraws()
	p.Draw(0, pts, nil, mgl32.Ident4())
	assert.Empty(t, dev.Draws)
}
