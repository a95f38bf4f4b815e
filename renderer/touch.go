package renderer

import (
	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/graphics"
)

type gesture struct {
	panning bool
	lastX   float32
	lastY   float32
}

// DispatchTouch queues a touch in surface pixels (y down) for the render goroutine.
// It implements graphics.InputSink.
func (s *Surface) DispatchTouch(ev graphics.TouchEvent) {
	s.RunInRender(func(s *Surface) { s.routeTouch(ev) })
}

// Zoom queues a zoom of the presented scene around its center.
func (s *Surface) Zoom(factor float32) {
	s.RunInRender(func(s *Surface) { s.zoomBy(factor) })
}

// Pan queues a move of the presented scene by (dx, dy) surface pixels.
func (s *Surface) Pan(dx, dy float32) {
	s.RunInRender(func(s *Surface) { s.panBy(dx, dy) })
}

// Resize queues a surface size change.
func (s *Surface) Resize(width, height int) {
	s.RunInRender(func(s *Surface) { s.resize(width, height) })
}

// ToLogical maps a surface point to scene coordinates.
func (s *Surface) ToLogical(x, y float32) (float32, float32) {
	return geometry.ToLogical(s.display, float32(s.logicalW), float32(s.logicalH), x, y)
}

// routeTouch offers the event to nodes from the top of the scene down; the first
// claim wins. Unclaimed gestures pan the scene.
func (s *Surface) routeTouch(ev graphics.TouchEvent) {
	if s.display.Empty() {
		return
	}
	lx, ly := s.ToLogical(ev.X, ev.Y)
	logical := graphics.TouchEvent{Action: ev.Action, X: lx, Y: ly}
	f := s.frame()
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].OnTouch(f, logical) {
			if ev.Action == graphics.TouchDown {
				s.gesture.panning = false
			}
			return
		}
	}

	switch ev.Action {
	case graphics.TouchDown:
		s.gesture = gesture{panning: true, lastX: ev.X, lastY: ev.Y}
	case graphics.TouchMove:
		if s.gesture.panning {
			s.panBy(ev.X-s.gesture.lastX, ev.Y-s.gesture.lastY)
			s.gesture.lastX, s.gesture.lastY = ev.X, ev.Y
		}
	case graphics.TouchUp, graphics.TouchCancel:
		s.gesture.panning = false
	}
}

func (s *Surface) panBy(dx, dy float32) {
	if s.display.Empty() {
		return
	}
	s.display = s.display.Offset(dx, dy)
}

func (s *Surface) zoomBy(factor float32) {
	if factor <= 0 || s.display.Empty() {
		return
	}
	zoom := s.zoom * factor
	if zoom < s.opts.MinZoom {
		zoom = s.opts.MinZoom
	}
	if zoom > s.opts.MaxZoom {
		zoom = s.opts.MaxZoom
	}
	cx, cy := s.display.Center()
	s.display = s.display.ScaleAbout(zoom/s.zoom, cx, cy)
	s.zoom = zoom
	if zoom == 1 {
		s.display = s.fitted
	}
}
