package landmark

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gofacewarp/geometry"
)

func TestSlotPublishAndClear(t *testing.T) {
	s := NewSlot(Mapper{})
	snap := s.Load()
	require.NotNil(t, snap)
	assert.False(t, snap.Present)

	s.Publish([]float32{1, 2, 3, 4})
	snap = s.Load()
	assert.True(t, snap.Present)
	p, ok := snap.Point(1)
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec2{3, 4}, p)
	_, ok = snap.Point(2)
	assert.False(t, ok)
	assert.Equal(t, []float32{1, 2, 3, 4}, snap.Flat())

	s.Clear()
	cleared := s.Load()
	assert.False(t, cleared.Present)
	assert.Greater(t, cleared.Seq, snap.Seq)
	assert.True(t, snap.Present, "earlier snapshots are never modified")
}

func TestSlotReadersSeeWholeDetections(t *testing.T) {
	s := NewSlot(Mapper{})
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pts := make([]float32, Count*2)
		for v := float32(0); ctx.Err() == nil; v++ {
			for i := range pts {
				pts[i] = v
			}
			s.Publish(pts)
		}
	}()
	for i := 0; i < 1000; i++ {
		snap := s.Load()
		if !snap.Present {
			continue
		}
		require.Len(t, snap.Points, Count)
		first := snap.Points[0][0]
		for _, p := range snap.Points {
			require.Equal(t, first, p[0])
			require.Equal(t, first, p[1])
		}
	}
	cancel()
	wg.Wait()
}

func TestMapper(t *testing.T) {
	target := geometry.Rect{W: 720, H: 1280}

	m := Mapper{ImageW: 720, ImageH: 1280, Target: target}
	assert.Equal(t, mgl32.Vec2{0, 1280}, m.Map(0, 0), "top-left of the image is top-left of the scene")
	assert.Equal(t, mgl32.Vec2{720, 0}, m.Map(720, 1280))

	// A landscape detector frame turned a quarter clockwise fills the portrait scene.
	m = Mapper{ImageW: 1280, ImageH: 720, Rotation: geometry.Rotate90, Target: target}
	assert.Equal(t, mgl32.Vec2{720, 1280}, m.Map(0, 0))
	assert.Equal(t, mgl32.Vec2{0, 0}, m.Map(1280, 720))

	m = Mapper{ImageW: 720, ImageH: 1280, Mirror: geometry.MirrorHorizontal, Target: target}
	assert.Equal(t, mgl32.Vec2{720, 1280}, m.Map(0, 0))

	assert.Equal(t, mgl32.Vec2{5, 6}, Mapper{}.Map(5, 6))
}

func TestReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landmarks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fps: 1000\nframes:\n  - points: [1, 2, 3, 4]\n  - points: []\n"), 0o644))

	rec, err := LoadRecording(path)
	require.NoError(t, err)
	require.Len(t, rec.Frames, 2)

	s := NewSlot(Mapper{})
	var seen []bool
	s.OnPublish(func() { seen = append(seen, s.Load().Present) })
	require.NoError(t, NewReplay(rec, s).Run(context.Background()))
	assert.Equal(t, []bool{true, false}, seen)

	require.NoError(t, os.WriteFile(path, []byte("frames:\n  - points: [1, 2, 3]\n"), 0o644))
	_, err = LoadRecording(path)
	assert.Error(t, err)
}
