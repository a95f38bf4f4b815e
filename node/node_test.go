package node

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu/gputest"
	"github.com/richinsley/gofacewarp/graphics"
	"github.com/richinsley/gofacewarp/landmark"
	"github.com/richinsley/gofacewarp/program"
	"github.com/richinsley/gofacewarp/shader"
	"github.com/richinsley/gofacewarp/source"
	"github.com/richinsley/gofacewarp/texture"
	"github.com/richinsley/gofacewarp/translator"
)

var (
	_ Node = (*Video)(nil)
	_ Node = (*Image)(nil)
	_ Node = (*Points)(nil)
	_ Node = (*Shape)(nil)
	_ Node = (*MiniWindow)(nil)
)

func newFrame(t *testing.T, w, h float32) (*Frame, *gputest.Device, *landmark.Slot) {
	t.Helper()
	dev := gputest.NewDevice()
	chain := texture.NewFramebufferChain(dev)
	require.NoError(t, chain.Resize(int(w), int(h)))
	slot := landmark.NewSlot(landmark.Mapper{})
	return &Frame{
		Device:    dev,
		Programs:  program.NewPool(dev, false),
		Chain:     chain,
		MVP:       mgl32.Ortho2D(0, w, 0, h),
		Width:     w,
		Height:    h,
		Landmarks: slot.Load(),
	}, dev, slot
}

func face(n int) []float32 {
	pts := make([]float32, 0, n*2)
	for i := 0; i < n; i++ {
		pts = append(pts, 100+float32(i)*5, 200+float32(i)*40)
	}
	return pts
}

func touch(a graphics.TouchAction, x, y float32) graphics.TouchEvent {
	return graphics.TouchEvent{Action: a, X: x, Y: y}
}

func TestPointsTouchDrag(t *testing.T) {
	f, _, slot := newFrame(t, 720, 1280)
	slot.Publish(face(landmark.Count))
	f.Landmarks = slot.Load()
	n := NewPoints(geometry.Rect{W: 720, H: 1280}, DefaultPointsStyle)

	// Point 3 sits at (115, 320); its neighbours are 40 away on y.
	assert.False(t, n.OnTouch(f, touch(graphics.TouchDown, 500, 1000)), "nothing within tolerance")
	assert.False(t, n.Claimed())

	require.True(t, n.OnTouch(f, touch(graphics.TouchDown, 120, 322)))
	assert.Equal(t, 3, n.Selected())

	assert.True(t, n.OnTouch(f, touch(graphics.TouchMove, 140, 352)))
	assert.Equal(t, mgl32.Vec2{20, 30}, n.Offset(3))
	for i := 0; i < landmark.Count; i++ {
		if i != 3 {
			assert.Equal(t, mgl32.Vec2{}, n.Offset(i), "point %d", i)
		}
	}

	assert.True(t, n.OnTouch(f, touch(graphics.TouchUp, 140, 352)))
	assert.False(t, n.Claimed())
	assert.Equal(t, mgl32.Vec2{20, 30}, n.Offset(3), "the offset stays after release")

	assert.False(t, n.OnTouch(f, touch(graphics.TouchMove, 300, 300)))
	assert.Equal(t, mgl32.Vec2{20, 30}, n.Offset(3))

	// The dragged point is hit at its new place and keeps its offset while grabbed.
	require.True(t, n.OnTouch(f, touch(graphics.TouchDown, 135, 348)))
	assert.Equal(t, 3, n.Selected())
	assert.True(t, n.OnTouch(f, touch(graphics.TouchMove, 136, 348)))
	assert.Equal(t, mgl32.Vec2{21, 30}, n.Offset(3))
	assert.True(t, n.OnTouch(f, touch(graphics.TouchCancel, 0, 0)))
}

func TestPointsNoFace(t *testing.T) {
	f, dev, _ := newFrame(t, 720, 1280)
	n := NewPoints(geometry.Rect{W: 720, H: 1280}, DefaultPointsStyle)
	assert.False(t, n.OnTouch(f, touch(graphics.TouchDown, 100, 200)))

	n.Render(f)
	assert.Empty(t, dev.Draws, "no face, no touch: nothing to draw")
}

func TestPointsDrawCount(t *testing.T) {
	f, dev, slot := newFrame(t, 720, 1280)
	slot.Publish(face(landmark.Count))
	f.Landmarks = slot.Load()
	n := NewPoints(geometry.Rect{W: 720, H: 1280}, DefaultPointsStyle)

	n.Render(f)
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, landmark.Count, dev.Draws[0].Count)

	require.True(t, n.OnTouch(f, touch(graphics.TouchDown, 100, 200)))
	dev.ResetDraws()
	n.Render(f)
	require.Len(t, dev.Draws, 2, "points plus the touch marker")
	assert.Equal(t, 1, dev.Draws[1].Count)
}

func TestVideoFollowsFrameGeometry(t *testing.T) {
	f, dev, _ := newFrame(t, 720, 1280)
	var slot source.Slot
	n := NewVideo(geometry.Rect{W: 720, H: 1280}, &slot, geometry.CenterInside)
	require.NoError(t, n.Recreate(f))

	n.Render(f)
	assert.Empty(t, dev.Draws, "no frame yet")

	slot.Publish(&source.Frame{Pix: make([]byte, 1280*720*4), Width: 1280, Height: 720, Rotation: geometry.Rotate90})
	n.Render(f)
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, n.Texture().ID(), dev.Draws[0].Texture)
	assert.InDeltaSlice(t, []float32{1, 0, 1, 1, 0, 0, 0, 1}, n.texCoord[:], 1e-6)

	n.Invalidate()
	assert.False(t, n.Texture().Valid())
	require.NoError(t, n.Recreate(f))
	assert.True(t, n.Texture().Valid())

	n.Release(dev)
	assert.True(t, n.Texture().Released())
}

func TestImageBlendsWithAlpha(t *testing.T) {
	f, dev, _ := newFrame(t, 100, 100)
	tex, err := texture.NewImage(image.NewNRGBA(image.Rect(0, 0, 10, 10)), geometry.Rotate0, geometry.MirrorNone)
	require.NoError(t, err)
	n := NewImage(geometry.Rect{X: 10, Y: 10, W: 20, H: 20}, tex, geometry.CenterInside)

	n.Render(f)
	assert.Empty(t, dev.Draws, "not uploaded before Recreate")

	require.NoError(t, n.Recreate(f))
	n.Render(f)
	require.Len(t, dev.Draws, 1)
	assert.False(t, dev.Blend, "blending is restored after the draw")
	assert.Equal(t, tex.ID(), dev.Draws[0].Texture)
}

func TestShapeReadsPreviousPass(t *testing.T) {
	f, dev, slot := newFrame(t, 720, 1280)
	n := NewShape(geometry.Rect{W: 720, H: 1280}, DefaultShapeOptions)

	written := f.Chain.Back()
	n.Render(f)
	tex, err := f.Programs.Get(program.KindTexture)
	require.NoError(t, err)
	draws := dev.DrawsWith(tex.Handle())
	require.Len(t, draws, 2, "one strip per row of cells")
	assert.Equal(t, written.ID(), draws[0].Texture, "reads what the previous pass wrote")
	assert.Equal(t, f.Chain.Back().Framebuffer(), draws[0].Framebuffer)
	assert.Equal(t, geometry.DefaultGrid, tex.Grid(), "grid is reset after drawing")
	assert.False(t, f.Programs.Cached(program.KindDistortion), "no face, no warp")

	slot.Publish(face(landmark.Count))
	f.Landmarks = slot.Load()
	dev.ResetDraws()
	n.Render(f)
	dist, err := f.Programs.Get(program.KindDistortion)
	require.NoError(t, err)
	require.Len(t, dev.DrawsWith(dist.Handle()), 2)
	p, _ := f.Landmarks.Point(10)
	assert.InDelta(t, p[0]/720, dist.Distortion.Origin[0], 1e-6)
	assert.InDelta(t, p[1]/1280, dist.Distortion.Origin[1], 1e-6)
	assert.Equal(t, geometry.DefaultGrid, dist.Grid())
	assert.Zero(t, dev.Error())
}

func TestMiniWindowCropAndDrag(t *testing.T) {
	f, dev, _ := newFrame(t, 100, 100)
	n := NewMiniWindow(geometry.Rect{X: 60, Y: 60, W: 40, H: 40}, DefaultCropScale)

	assert.True(t, n.OnTouch(f, touch(graphics.TouchDown, 0, 0)))
	crop := n.CropCoordinates(100, 100)
	assert.InDeltaSlice(t, []float32{0, 0, 0.2, 0, 0, 0.2, 0.2, 0.2}, crop[:], 1e-6)
	assert.True(t, n.OnTouch(f, touch(graphics.TouchMove, -50, 500)))
	assert.Equal(t, mgl32.Vec2{0, 100}, n.Focus(), "focus is clamped to the scene")
	assert.True(t, n.OnTouch(f, touch(graphics.TouchUp, -50, 500)))

	// A touch inside the window drags it and keeps it inside the scene.
	assert.True(t, n.OnTouch(f, touch(graphics.TouchDown, 70, 70)))
	assert.True(t, n.OnTouch(f, touch(graphics.TouchMove, 30, 50)))
	assert.Equal(t, geometry.Rect{X: 20, Y: 40, W: 40, H: 40}, n.Rect())
	assert.Equal(t, geometry.Position(20, 40, 40, 40), n.Position())
	assert.True(t, n.OnTouch(f, touch(graphics.TouchMove, 200, 200)))
	assert.Equal(t, geometry.Rect{X: 60, Y: 60, W: 40, H: 40}, n.Rect())
	assert.True(t, n.OnTouch(f, touch(graphics.TouchUp, 0, 0)))
	assert.Equal(t, mgl32.Vec2{0, 100}, n.Focus(), "dragging leaves the focus alone")

	n.Render(f)
	assert.Len(t, dev.Draws, 2, "background plus the window")
}

func TestFilterRunsUserCode(t *testing.T) {
	f, dev, _ := newFrame(t, 64, 64)
	n := NewFilter(geometry.Rect{W: 64, H: 64}, "vec4 filter(vec2 uv) { return texture(inputTexture, uv).bgra; }", translator.Passthrough{})
	require.NoError(t, n.Recreate(f))
	assert.Contains(t, dev.Programs[n.handle], "fragColor = filter(gl_FragCoord.xy / resolution);")

	written := f.Chain.Back()
	n.Render(f)
	draws := dev.DrawsWith(n.handle)
	require.Len(t, draws, 1)
	assert.Equal(t, written.ID(), draws[0].Texture)

	assert.Len(t, dev.Draws, 1, "a filter over the whole scene needs no copy")

	res := dev.UniformLocation(n.handle, "resolution")
	assert.Equal(t, []float32{64, 64}, dev.Uniforms[res])

	handle := n.handle
	n.Release(dev)
	assert.Contains(t, dev.Deleted, handle)
}

func TestPartialFilterCopiesPreviousPass(t *testing.T) {
	f, dev, _ := newFrame(t, 64, 64)
	n := NewFilter(geometry.Rect{X: 16, Y: 16, W: 32, H: 32}, "vec4 filter(vec2 uv) { return texture(inputTexture, uv); }", translator.Passthrough{})
	require.NoError(t, n.Recreate(f))

	written := f.Chain.Back()
	n.Render(f)
	target := f.Chain.Back().Framebuffer()

	tex, err := f.Programs.Get(program.KindTexture)
	require.NoError(t, err)
	copies := dev.DrawsWith(tex.Handle())
	require.Len(t, copies, 1, "the area outside the filter keeps the previous pass")
	assert.Equal(t, written.ID(), copies[0].Texture)
	assert.Equal(t, target, copies[0].Framebuffer)
	full := geometry.Position(0, 0, 64, 64)
	assert.Equal(t, full[:], copies[0].Attribs[dev.AttribLocation(tex.Handle(), shader.AttribPosition)], "the copy covers the whole scene")

	require.Len(t, dev.Draws, 2)
	assert.Equal(t, tex.Handle(), dev.Draws[0].Program, "copy first")
	assert.Equal(t, n.handle, dev.Draws[1].Program, "filter on top")
	assert.Equal(t, target, dev.Draws[1].Framebuffer)
	assert.Zero(t, dev.Error())
}

func TestFilterBuildFailureCopiesThrough(t *testing.T) {
	f, dev, _ := newFrame(t, 64, 64)
	dev.FailPrograms["broken"] = true
	n := NewFilter(geometry.Rect{W: 64, H: 64}, "vec4 filter(vec2 uv) { return broken; }", translator.Passthrough{})
	assert.Error(t, n.Recreate(f))

	n.Render(f)
	require.Len(t, dev.Draws, 1, "the previous pass is passed on unchanged")
	assert.Zero(t, dev.Error())
}
