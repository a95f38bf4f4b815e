package program

import (
	"github.com/richinsley/gofacewarp/gpu"

	log "github.com/sirupsen/logrus"
)

// Pool caches one Program per Kind for the lifetime of a graphics context. It must
// only be used from the render goroutine.
type Pool struct {
	dev      gpu.Device
	isGLES   bool
	programs [numKinds]*Program
	failed   [numKinds]error
}

// NewPool returns an empty pool building programs on dev.
func NewPool(dev gpu.Device, isGLES bool) *Pool {
	return &Pool{dev: dev, isGLES: isGLES}
}

// Get returns the cached program of the given kind, compiling it on first use. A
// failed build is remembered and returned again without retrying until the pool is
// invalidated or cleared.
func (p *Pool) Get(kind Kind) (*Program, error) {
	if kind < 0 || kind >= numKinds {
		return nil, ErrCompile
	}
	if prog := p.programs[kind]; prog != nil {
		return prog, nil
	}
	if err := p.failed[kind]; err != nil {
		return nil, err
	}
	prog, err := newProgram(p.dev, kind, p.isGLES)
	if err != nil {
		log.Warnf("program: %v", err)
		p.failed[kind] = err
		return nil, err
	}
	log.Debugf("program: built %s (handle %d)", kind, prog.handle)
	p.programs[kind] = prog
	return prog, nil
}

// Cached reports whether a program of the given kind is in the pool.
func (p *Pool) Cached(kind Kind) bool {
	return kind >= 0 && kind < numKinds && p.programs[kind] != nil
}

// Invalidate forgets every program without deleting it. It is called when the
// graphics context was lost and its handles are already gone.
func (p *Pool) Invalidate() {
	for i, prog := range p.programs {
		if prog != nil {
			prog.abandon()
		}
		p.programs[i] = nil
		p.failed[i] = nil
	}
}

// Clear deletes every program and empties the pool.
func (p *Pool) Clear() {
	for i, prog := range p.programs {
		if prog != nil {
			prog.release()
		}
		p.programs[i] = nil
		p.failed[i] = nil
	}
}

// SetDevice points the pool at a new device; the pool must be empty.
func (p *Pool) SetDevice(dev gpu.Device, isGLES bool) {
	p.Invalidate()
	p.dev = dev
	p.isGLES = isGLES
}

// IsGLES reports whether programs are built for OpenGL ES.
func (p *Pool) IsGLES() bool { return p.isGLES }
