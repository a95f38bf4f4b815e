// Package source provides video frames to the compositor. Producers run on their
// own goroutines and hand frames to the render goroutine through a single-slot
// latest-frame handoff; the render goroutine never blocks on a producer.
package source

import (
	"errors"
	"sync/atomic"

	"github.com/richinsley/gofacewarp/geometry"
)

// ErrClosed is returned by Run after the producer has been closed.
var ErrClosed = errors.New("source closed")

// Frame is one decoded RGBA frame with rows ordered top to bottom.
type Frame struct {
	Pix      []byte
	Width    int
	Height   int
	Rotation geometry.Rotation
	Mirror   geometry.Mirror
	Seq      uint64
}

// Provider is the render side of a video producer.
type Provider interface {
	// Latest returns the newest frame, or nil before the first one, and whether it
	// arrived since the previous call. Only one consumer may call Latest.
	Latest() (*Frame, bool)
}

// Slot holds the latest published frame. Publish may be called from any goroutine.
type Slot struct {
	cur      atomic.Pointer[Frame]
	seq      atomic.Uint64
	consumed atomic.Uint64
	notify   atomic.Pointer[func()]
}

// Publish replaces the current frame. The slot takes ownership of f.
func (s *Slot) Publish(f *Frame) {
	f.Seq = s.seq.Add(1)
	s.cur.Store(f)
	if fn := s.notify.Load(); fn != nil {
		(*fn)()
	}
}

// Latest implements Provider.
func (s *Slot) Latest() (*Frame, bool) {
	f := s.cur.Load()
	if f == nil {
		return nil, false
	}
	prev := s.consumed.Swap(f.Seq)
	return f, prev != f.Seq
}

// OnPublish registers fn to be called after every Publish, typically a render request.
func (s *Slot) OnPublish(fn func()) {
	if fn == nil {
		s.notify.Store(nil)
		return
	}
	s.notify.Store(&fn)
}
