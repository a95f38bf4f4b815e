package texture

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu/gputest"
	"github.com/richinsley/gofacewarp/source"
)

var (
	_ Texture = (*Image)(nil)
	_ Texture = (*Stream)(nil)
	_ Texture = (*RenderTarget)(nil)
)

func TestChainSwapAlternates(t *testing.T) {
	dev := gputest.NewDevice()
	c := NewFramebufferChain(dev)
	require.NoError(t, c.Resize(720, 1280))
	require.True(t, c.Ready())

	a, b := c.Front(), c.Back()
	require.NotSame(t, a, b)

	c.Bind()
	assert.Equal(t, b.Framebuffer(), dev.BoundFramebuffer())

	got := c.Swap()
	assert.Same(t, b, got, "the target just written becomes readable")
	assert.Same(t, b, c.Front())
	assert.Same(t, a, c.Back())
	assert.Equal(t, a.Framebuffer(), dev.BoundFramebuffer())

	got = c.Swap()
	assert.Same(t, a, got)
	assert.Same(t, a, c.Front(), "two swaps restore the roles")
	assert.Same(t, b, c.Back())

	for i := 0; i < 5; i++ {
		prev := c.Back()
		assert.Same(t, prev, c.Swap())
		assert.NotEqual(t, c.Front().ID(), c.Back().ID())
	}
	w, h := c.Size()
	assert.Equal(t, 720, w)
	assert.Equal(t, 1280, h)
	assert.Equal(t, [2]int{720, 1280}, dev.Textures[c.Front().ID()])
	assert.Zero(t, dev.Error())
}

func TestChainResizeAndRelease(t *testing.T) {
	dev := gputest.NewDevice()
	c := NewFramebufferChain(dev)
	require.NoError(t, c.Resize(10, 10))
	first := c.Front().ID()

	require.NoError(t, c.Resize(10, 10))
	assert.Equal(t, first, c.Front().ID(), "same size keeps the targets")

	require.NoError(t, c.Resize(20, 10))
	assert.NotEqual(t, first, c.Front().ID())
	assert.Contains(t, dev.Deleted, first)
	assert.Equal(t, [2]int{20, 10}, dev.Textures[c.Back().ID()])

	c.Release()
	assert.Empty(t, dev.Textures)
	assert.Empty(t, dev.Framebuffers)
	assert.False(t, c.Ready())
}

func TestChainInvalidateDoesNotDelete(t *testing.T) {
	dev := gputest.NewDevice()
	c := NewFramebufferChain(dev)
	require.NoError(t, c.Resize(8, 8))
	deleted := len(dev.Deleted)

	c.Invalidate()
	assert.False(t, c.Ready())
	require.NoError(t, c.Recreate())
	assert.True(t, c.Ready())
	assert.Len(t, dev.Deleted, deleted)
}

func TestChainIncompleteFramebuffer(t *testing.T) {
	dev := gputest.NewDevice()
	dev.FailFramebuffers = true
	c := NewFramebufferChain(dev)
	assert.ErrorIs(t, c.Resize(8, 8), ErrIncomplete)
	assert.False(t, c.Ready())
	assert.Empty(t, dev.Textures, "the orphaned texture is deleted")
}

func TestImageFlipsAndTracksAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{A: 128})

	tex, err := NewImage(img, geometry.Rotate0, geometry.MirrorNone)
	require.NoError(t, err)
	assert.True(t, tex.HasAlpha())
	assert.Equal(t, []byte{0, 0, 255, 255}, tex.pix.Pix[:4], "bottom row comes first")

	dev := gputest.NewDevice()
	assert.False(t, tex.Valid())
	require.NoError(t, tex.Recreate(dev))
	assert.True(t, tex.Valid())
	id := tex.ID()
	require.NoError(t, tex.Recreate(dev))
	assert.Equal(t, id, tex.ID(), "recreate is idempotent")

	tex.Release(dev)
	tex.Release(dev)
	assert.Zero(t, tex.ID())
	assert.Equal(t, []uint32{id}, dev.Deleted, "release deletes exactly once")
	require.NoError(t, tex.Recreate(dev))
	assert.Zero(t, tex.ID(), "a released texture stays released")
}

func TestImageDownscale(t *testing.T) {
	old := MaxImageSize
	MaxImageSize = 16
	defer func() { MaxImageSize = old }()

	tex, err := NewImage(image.NewRGBA(image.Rect(0, 0, 64, 32)), geometry.Rotate0, geometry.MirrorNone)
	require.NoError(t, err)
	assert.Equal(t, 16, tex.Width())
	assert.Equal(t, 8, tex.Height())

	_, err = NewImage(image.NewRGBA(image.Rect(0, 0, 0, 0)), geometry.Rotate0, geometry.MirrorNone)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestStreamUpdate(t *testing.T) {
	dev := gputest.NewDevice()
	var slot source.Slot
	tex := NewStream(&slot)

	changed, err := tex.Update(dev)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, tex.Valid(), "no frame yet")

	slot.Publish(&source.Frame{Pix: make([]byte, 4*4*4), Width: 4, Height: 4, Rotation: geometry.Rotate90})
	changed, err = tex.Update(dev)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, tex.Valid())
	assert.Equal(t, geometry.Rotate90, tex.Rotation())
	id := tex.ID()

	changed, err = tex.Update(dev)
	require.NoError(t, err)
	assert.False(t, changed)

	slot.Publish(&source.Frame{Pix: make([]byte, 4*4*4), Width: 4, Height: 4, Rotation: geometry.Rotate90})
	changed, err = tex.Update(dev)
	require.NoError(t, err)
	assert.False(t, changed, "same geometry")
	assert.Equal(t, id, tex.ID(), "same size uploads in place")

	tex.Invalidate()
	require.NoError(t, tex.Recreate(dev))
	assert.True(t, tex.Valid(), "the last frame is uploaded again")
	assert.NotEqual(t, id, tex.ID())
	assert.NotContains(t, dev.Deleted, id)
}
