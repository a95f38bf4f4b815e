package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu/gputest"
	"github.com/richinsley/gofacewarp/graphics"
	"github.com/richinsley/gofacewarp/landmark"
	"github.com/richinsley/gofacewarp/node"
	"github.com/richinsley/gofacewarp/program"
	"github.com/richinsley/gofacewarp/source"
)

func newSurface(t *testing.T, w, h int) (*Surface, *gputest.Device, *landmark.Slot) {
	t.Helper()
	dev := gputest.NewDevice()
	slot := landmark.NewSlot(landmark.Mapper{})
	opts := DefaultOptions
	opts.Width, opts.Height = w, h
	opts.Clock = func() float64 { return 0 }
	return NewSurface(dev, slot, opts), dev, slot
}

func syntheticFace() []float32 {
	pts := make([]float32, 0, landmark.Count*2)
	for i := 0; i < landmark.Count; i++ {
		pts = append(pts, 200+float32(i%12)*25, 500+float32(i/12)*40)
	}
	return pts
}

func TestEndToEndVideoAndPoints(t *testing.T) {
	s, dev, slot := newSurface(t, 720, 1280)
	var video source.Slot
	full := geometry.Rect{W: 720, H: 1280}
	s.AddNode(node.NewVideo(full, &video, geometry.CenterInside))
	points := node.NewPoints(full, node.DefaultPointsStyle)
	s.AddNode(points)

	require.NoError(t, s.OnSurfaceCreated())
	s.OnSurfaceChanged(720, 1280)
	assert.Equal(t, Ready, s.State())

	video.Publish(&source.Frame{Pix: make([]byte, 720*1280*4), Width: 720, Height: 1280})
	slot.Publish(syntheticFace())

	dev.ResetDraws()
	require.NoError(t, s.OnDrawFrame())
	assert.Zero(t, s.GPUErrors())

	prim, err := s.Programs().Get(program.KindPrimitive)
	require.NoError(t, err)
	overlay := dev.DrawsWith(prim.Handle())
	require.Len(t, overlay, 1, "points only")
	assert.Equal(t, landmark.Count, overlay[0].Count)

	vid, err := s.Programs().Get(program.KindVideo)
	require.NoError(t, err)
	assert.Len(t, dev.DrawsWith(vid.Handle()), 1)

	present, err := s.Programs().Get(program.KindPresent)
	require.NoError(t, err)
	presented := dev.DrawsWith(present.Handle())
	require.Len(t, presented, 1)
	assert.Equal(t, uint32(0), presented[0].Framebuffer)
	assert.Equal(t, s.Chain().Front().ID(), presented[0].Texture)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, dev.Clears[len(dev.Clears)-1], "background")

	// A touch on point 0 (surface y is flipped) adds the marker draw.
	p, _ := slot.Load().Point(0)
	s.DispatchTouch(graphics.TouchEvent{Action: graphics.TouchDown, X: p[0], Y: 1280 - p[1]})
	dev.ResetDraws()
	require.NoError(t, s.OnDrawFrame())
	assert.True(t, points.Claimed())
	assert.Len(t, dev.DrawsWith(prim.Handle()), 2, "points plus marker")
	assert.Zero(t, dev.Error())
}

func TestFrameWritesChainThenPresents(t *testing.T) {
	s, dev, _ := newSurface(t, 100, 100)
	require.NoError(t, s.OnSurfaceCreated())
	s.OnSurfaceChanged(200, 100)

	written := s.Chain().Back()
	dev.ResetDraws()
	require.NoError(t, s.OnDrawFrame())
	assert.Equal(t, transparent, dev.Clears[0], "the chain is cleared transparent")
	assert.Same(t, written, s.Chain().Front(), "present reads what the nodes wrote")
	assert.Equal(t, geometry.Rect{X: 50, Y: 0, W: 100, H: 100}, s.Display())
}

func TestContextLossLifecycle(t *testing.T) {
	s, dev, _ := newSurface(t, 64, 64)
	assert.Equal(t, Uninitialized, s.State())
	assert.ErrorIs(t, s.OnDrawFrame(), ErrNotReady)

	var still source.Slot
	still.Publish(&source.Frame{Pix: make([]byte, 8*8*4), Width: 8, Height: 8})
	v := node.NewVideo(geometry.Rect{W: 64, H: 64}, &still, geometry.CropCenter)
	s.AddNode(v)
	require.NoError(t, s.OnSurfaceCreated())
	s.OnSurfaceChanged(64, 64)
	require.NoError(t, s.OnDrawFrame())
	oldTex := v.Texture().ID()
	oldProg, _ := s.Programs().Get(program.KindVideo)
	oldHandle := oldProg.Handle()

	s.OnSurfaceDestroyed()
	dev.LoseContext()
	assert.Equal(t, Invalidated, s.State())
	assert.False(t, v.Texture().Valid())
	assert.False(t, s.Chain().Ready())
	assert.ErrorIs(t, s.OnDrawFrame(), ErrNotReady)
	assert.NotContains(t, dev.Deleted, oldTex, "handles of a lost context are not deleted")
	assert.NotContains(t, dev.Deleted, oldHandle)

	require.NoError(t, s.OnSurfaceCreated())
	assert.Equal(t, Ready, s.State())
	assert.Equal(t, 2, dev.Resets)
	assert.True(t, v.Texture().Valid(), "nodes reacquire before the next frame")
	assert.NotEqual(t, oldTex, v.Texture().ID())
	require.NoError(t, s.OnDrawFrame())
	newProg, _ := s.Programs().Get(program.KindVideo)
	assert.NotSame(t, oldProg, newProg)

	s.Release()
	s.Release()
	assert.True(t, v.Texture().Released())
	assert.Empty(t, dev.Textures)
	assert.Empty(t, dev.Framebuffers)
	assert.Empty(t, dev.Programs)
}

func TestRequestRenderDedups(t *testing.T) {
	s, _, _ := newSurface(t, 10, 10)
	woken := 0
	s.SetWaker(func() { woken++ })
	s.RequestRender()
	s.RequestRender()
	s.RequestRender()
	assert.Equal(t, 3, woken)
	assert.True(t, s.RenderRequested())
	assert.False(t, s.RenderRequested(), "pending requests are merged")
}

func TestUnclaimedTouchPansAndZoomClamps(t *testing.T) {
	s, _, _ := newSurface(t, 100, 100)
	require.NoError(t, s.OnSurfaceCreated())
	s.OnSurfaceChanged(100, 100)

	s.DispatchTouch(graphics.TouchEvent{Action: graphics.TouchDown, X: 10, Y: 10})
	s.DispatchTouch(graphics.TouchEvent{Action: graphics.TouchMove, X: 30, Y: 5})
	s.DispatchTouch(graphics.TouchEvent{Action: graphics.TouchUp, X: 30, Y: 5})
	require.NoError(t, s.OnDrawFrame())
	assert.Equal(t, geometry.Rect{X: 20, Y: -5, W: 100, H: 100}, s.Display())

	s.Zoom(2)
	require.NoError(t, s.OnDrawFrame())
	assert.InDelta(t, 200, s.Display().W, 1e-4)
	s.Zoom(10)
	require.NoError(t, s.OnDrawFrame())
	assert.InDelta(t, 400, s.Display().W, 1e-4, "zoom stops at the maximum")
	s.Zoom(0.01)
	require.NoError(t, s.OnDrawFrame())
	assert.Equal(t, geometry.Rect{W: 100, H: 100}, s.Display(), "back at 1x the scene is refitted")

	x, y := s.ToLogical(0, 0)
	assert.InDelta(t, 0, x, 1e-4)
	assert.InDelta(t, 100, y, 1e-4)
}

func TestProgramFailureDegrades(t *testing.T) {
	s, dev, slot := newSurface(t, 100, 100)
	dev.FailPrograms["roundPoints"] = true
	s.AddNode(node.NewPoints(geometry.Rect{W: 100, H: 100}, node.DefaultPointsStyle))
	require.NoError(t, s.OnSurfaceCreated())
	s.OnSurfaceChanged(100, 100)
	slot.Publish([]float32{10, 10})

	require.NoError(t, s.OnDrawFrame(), "a broken program does not abort the frame")
	require.NoError(t, s.OnDrawFrame())
	assert.False(t, s.Programs().Cached(program.KindPrimitive))
	assert.Equal(t, uint64(2), s.Frames())
}

func TestReadFrame(t *testing.T) {
	s, _, _ := newSurface(t, 4, 2)
	buf := make([]byte, 4*2*4)
	_, _, err := s.ReadFrame(buf)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.OnSurfaceCreated())
	s.OnSurfaceChanged(4, 2)
	require.NoError(t, s.OnDrawFrame())
	w, h, err := s.ReadFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
	_, _, err = s.ReadFrame(buf[:3])
	assert.Error(t, err)
}

type fakeContext struct {
	w, h      int
	ended     int
	recreated int
	sink      graphics.InputSink
}

func (c *fakeContext) MakeCurrent()                      {}
func (c *fakeContext) Shutdown()                         {}
func (c *fakeContext) ShouldClose() bool                 { return false }
func (c *fakeContext) EndFrame()                         { c.ended++ }
func (c *fakeContext) GetFramebufferSize() (int, int)    { return c.w, c.h }
func (c *fakeContext) Time() float64                     { return 0 }
func (c *fakeContext) IsGLES() bool                      { return false }
func (c *fakeContext) WaitEvents(timeout time.Duration)  {}
func (c *fakeContext) Wake()                             {}
func (c *fakeContext) SetInputSink(s graphics.InputSink) { c.sink = s }
func (c *fakeContext) Recreate() error                   { c.recreated++; return nil }

type countingSink struct {
	frames int
	size   [2]int
}

func (s *countingSink) WriteFrame(pix []byte, w, h int) error {
	s.frames++
	s.size = [2]int{w, h}
	return nil
}

func TestLoopRecordsAndDrillsContextLoss(t *testing.T) {
	s, dev, _ := newSurface(t, 16, 8)
	ctx := &fakeContext{w: 32, h: 16}
	sink := &countingSink{}
	loop := &Loop{
		Context:          ctx,
		Surface:          s,
		FPS:              1000,
		Continuous:       true,
		MaxFrames:        6,
		Sink:             sink,
		ContextLossEvery: 2,
	}
	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 6, ctx.ended)
	assert.Equal(t, 6, sink.frames)
	assert.Equal(t, [2]int{16, 8}, sink.size)
	assert.Equal(t, 2, ctx.recreated, "no drill after the last frame")
	assert.Equal(t, 3, dev.Resets)
	assert.Nil(t, ctx.sink, "input is detached when the loop ends")
}
