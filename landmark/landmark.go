// Package landmark carries face-landmark detections from a producer goroutine to
// the render goroutine. Each detection becomes an immutable Snapshot published to a
// Slot; readers always see one whole detection.
package landmark

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Count is the number of points in one detection.
const Count = 84

// Snapshot is one detection in logical space. It must not be modified once published.
type Snapshot struct {
	Points  []mgl32.Vec2
	Present bool
	Seq     uint64
}

var empty = &Snapshot{}

// Point returns the i-th point if the detection has it.
func (s *Snapshot) Point(i int) (mgl32.Vec2, bool) {
	if s == nil || !s.Present || i < 0 || i >= len(s.Points) {
		return mgl32.Vec2{}, false
	}
	return s.Points[i], true
}

// Flat returns the points as x, y pairs.
func (s *Snapshot) Flat() []float32 {
	if s == nil {
		return nil
	}
	out := make([]float32, 0, len(s.Points)*2)
	for _, p := range s.Points {
		out = append(out, p[0], p[1])
	}
	return out
}

// Slot is a single-slot handoff between one landmark producer and the renderer.
type Slot struct {
	cur    atomic.Pointer[Snapshot]
	seq    atomic.Uint64
	mapper atomic.Pointer[Mapper]
	notify atomic.Pointer[func()]
}

// NewSlot returns an empty slot that maps published points with m.
func NewSlot(m Mapper) *Slot {
	s := &Slot{}
	s.SetMapper(m)
	return s
}

// SetMapper replaces the image to logical mapping used by later publishes.
func (s *Slot) SetMapper(m Mapper) {
	s.mapper.Store(&m)
}

// Publish maps points (x, y pairs in detector image space) and makes them the current
// detection. An empty slice publishes a detection with no face.
func (s *Slot) Publish(points []float32) {
	snap := &Snapshot{Seq: s.seq.Add(1)}
	if len(points) >= 2 {
		m := s.mapper.Load()
		snap.Present = true
		snap.Points = make([]mgl32.Vec2, len(points)/2)
		for i := range snap.Points {
			snap.Points[i] = m.Map(points[i*2], points[i*2+1])
		}
	}
	s.cur.Store(snap)
	s.wake()
}

// Clear publishes "no face".
func (s *Slot) Clear() {
	s.cur.Store(&Snapshot{Seq: s.seq.Add(1)})
	s.wake()
}

// Load returns the current detection. It never returns nil.
func (s *Slot) Load() *Snapshot {
	if snap := s.cur.Load(); snap != nil {
		return snap
	}
	return empty
}

// OnPublish registers fn to run after every Publish or Clear.
func (s *Slot) OnPublish(fn func()) {
	if fn == nil {
		s.notify.Store(nil)
		return
	}
	s.notify.Store(&fn)
}

func (s *Slot) wake() {
	if fn := s.notify.Load(); fn != nil {
		(*fn)()
	}
}
