package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/program"

	log "github.com/sirupsen/logrus"
)

var transparent = mgl32.Vec4{0, 0, 0, 0}

// maxPolledErrors bounds how many codes are drained after a frame; a lost context
// can report errors forever.
const maxPolledErrors = 16

// OnDrawFrame runs queued render work, composes every node into the framebuffer
// chain and presents the result. A frame that starts always completes.
func (s *Surface) OnDrawFrame() error {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	s.runTasks()
	if s.State() != Ready || s.released {
		return ErrNotReady
	}
	if !s.chain.Ready() {
		if s.logicalW <= 0 || s.logicalH <= 0 {
			return ErrNotReady
		}
		if err := s.chain.Resize(s.logicalW, s.logicalH); err != nil {
			return err
		}
	}

	f := s.frame()
	s.chain.Bind()
	s.dev.Clear(transparent)
	for _, n := range s.nodes {
		n.Render(f)
	}
	s.present()
	s.frames.Add(1)
	return s.pollErrors()
}

// present draws the last written pass into the display rectangle of the visible
// surface.
func (s *Surface) present() {
	front := s.chain.Swap()
	s.dev.BindFramebuffer(0)
	s.dev.Viewport(0, 0, s.surfaceW, s.surfaceH)
	s.dev.Clear(s.opts.Background)

	prog, err := s.pool.Get(program.KindPresent)
	if err != nil || s.display.Empty() {
		return
	}
	pos := geometry.FlippedPosition(s.display, float32(s.surfaceH))
	s.dev.SetBlend(true)
	prog.Draw(front.ID(), pos[:], geometry.UnitQuad[:], s.presentMVP)
	s.dev.SetBlend(false)
}

func (s *Surface) pollErrors() error {
	var codes []uint32
	for i := 0; i < maxPolledErrors; i++ {
		code := s.dev.Error()
		if code == 0 {
			break
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil
	}
	s.errors.Add(uint64(len(codes)))
	log.Warnf("renderer: frame %d: gl errors %#x", s.frames.Load(), codes)
	return fmt.Errorf("%w: %#x", ErrGPU, codes)
}

// ReadFrame copies the last composed scene, at logical size, into dst as RGBA rows
// ordered bottom to top. dst must hold width*height*4 bytes.
func (s *Surface) ReadFrame(dst []byte) (int, int, error) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.State() != Ready || !s.chain.Ready() {
		return 0, 0, ErrNotReady
	}
	w, h := s.chain.Size()
	if len(dst) < w*h*4 {
		return 0, 0, fmt.Errorf("frame buffer too small: %d < %d", len(dst), w*h*4)
	}
	s.dev.BindFramebuffer(s.chain.Front().Framebuffer())
	s.dev.ReadPixels(0, 0, w, h, dst)
	s.dev.BindFramebuffer(0)
	return w, h, nil
}
