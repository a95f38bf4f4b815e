package renderer

import (
	"context"
	"errors"
	"time"

	"github.com/richinsley/gofacewarp/graphics"

	log "github.com/sirupsen/logrus"
)

// FrameSink consumes composed frames, e.g. a video encoder. Rows are ordered bottom
// to top.
type FrameSink interface {
	WriteFrame(pix []byte, width, height int) error
}

// Loop drives a Surface from a graphics context on the calling goroutine, which must
// own the context.
type Loop struct {
	Context graphics.Context
	Surface *Surface
	// FPS caps on-demand rendering and paces continuous rendering.
	FPS float64
	// Continuous draws a frame every tick instead of on request. Recording uses it.
	Continuous bool
	// MaxFrames stops the loop after that many frames; zero runs until ctx is done or
	// the window closes.
	MaxFrames int
	Sink      FrameSink
	// ContextLossEvery destroys and recreates a recreatable context after every N
	// frames.
	ContextLossEvery int
}

// Run blocks until ctx is done, the context asks to close or MaxFrames were drawn.
func (l *Loop) Run(ctx context.Context) error {
	s := l.Surface
	fps := l.FPS
	if fps <= 0 {
		fps = 30
	}
	interval := time.Duration(float64(time.Second) / fps)

	l.Context.MakeCurrent()
	s.SetWaker(l.Context.Wake)
	defer s.SetWaker(nil)
	l.Context.SetInputSink(s)
	defer l.Context.SetInputSink(nil)

	if err := s.OnSurfaceCreated(); err != nil {
		return err
	}
	s.OnSurfaceChanged(l.Context.GetFramebufferSize())

	var pix []byte
	next := time.Now()
	frames := 0
	for ctx.Err() == nil && !l.Context.ShouldClose() {
		if l.Continuous {
			l.Context.WaitEvents(max(0, time.Until(next)))
			if time.Now().Before(next) {
				continue
			}
			next = next.Add(interval)
			s.RenderRequested()
		} else {
			l.Context.WaitEvents(interval)
			if !s.RenderRequested() {
				continue
			}
		}

		err := s.OnDrawFrame()
		switch {
		case errors.Is(err, ErrNotReady):
			log.Debugf("renderer: skipped frame: %v", err)
			continue
		case err != nil && !errors.Is(err, ErrGPU):
			log.Warnf("renderer: frame failed: %v", err)
		}

		if l.Sink != nil {
			w, h := s.LogicalSize()
			if len(pix) != w*h*4 {
				pix = make([]byte, w*h*4)
			}
			if w, h, err := s.ReadFrame(pix); err == nil {
				if err := l.Sink.WriteFrame(pix, w, h); err != nil {
					return err
				}
			}
		}
		l.Context.EndFrame()

		frames++
		if l.MaxFrames > 0 && frames >= l.MaxFrames {
			break
		}
		if l.ContextLossEvery > 0 && frames%l.ContextLossEvery == 0 {
			if err := l.recreateContext(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loop) recreateContext() error {
	rc, ok := l.Context.(graphics.Recreatable)
	if !ok {
		return nil
	}
	log.Infof("renderer: recreating graphics context")
	l.Surface.OnSurfaceDestroyed()
	if err := rc.Recreate(); err != nil {
		return err
	}
	l.Context.MakeCurrent()
	if err := l.Surface.OnSurfaceCreated(); err != nil {
		return err
	}
	l.Surface.OnSurfaceChanged(l.Context.GetFramebufferSize())
	return nil
}
