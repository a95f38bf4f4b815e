package texture

import (
	"github.com/richinsley/gofacewarp/gpu"
)

// FramebufferChain is a pair of equally sized render targets used in ping-pong
// fashion: one is written by the current pass while the other holds the output of the
// previous pass.
type FramebufferChain struct {
	dev     gpu.Device
	targets [2]*RenderTarget
	// front is the index of the readable target; the other one is written.
	front  int
	width  int
	height int
}

// NewFramebufferChain returns an empty chain. Resize allocates it.
func NewFramebufferChain(dev gpu.Device) *FramebufferChain {
	return &FramebufferChain{dev: dev}
}

func (c *FramebufferChain) Size() (int, int) { return c.width, c.height }

// Ready reports whether both targets are allocated.
func (c *FramebufferChain) Ready() bool {
	for _, t := range c.targets {
		if t == nil || !t.Valid() {
			return false
		}
	}
	return true
}

// Resize reallocates both targets at width x height. Nothing happens when the chain
// already has that size and is allocated.
func (c *FramebufferChain) Resize(width, height int) error {
	if width == c.width && height == c.height && c.Ready() {
		return nil
	}
	c.release()
	c.width, c.height = width, height
	return c.Recreate()
}

// Recreate allocates both targets at the current size.
func (c *FramebufferChain) Recreate() error {
	if c.width <= 0 || c.height <= 0 {
		return nil
	}
	for i := range c.targets {
		if c.targets[i] == nil || c.targets[i].Released() {
			c.targets[i] = NewRenderTarget(c.width, c.height)
		}
		if err := c.targets[i].Recreate(c.dev); err != nil {
			c.release()
			return err
		}
	}
	c.front = 0
	return nil
}

// Invalidate forgets both targets without deleting them.
func (c *FramebufferChain) Invalidate() {
	for _, t := range c.targets {
		if t != nil {
			t.Invalidate()
		}
	}
	c.front = 0
}

// SetDevice moves the chain to a new device. Existing handles are forgotten.
func (c *FramebufferChain) SetDevice(dev gpu.Device) {
	c.Invalidate()
	c.dev = dev
}

// Front returns the target holding the output of the last completed pass.
func (c *FramebufferChain) Front() *RenderTarget { return c.targets[c.front] }

// Back returns the target currently written.
func (c *FramebufferChain) Back() *RenderTarget { return c.targets[1-c.front] }

// Bind makes the write target current.
func (c *FramebufferChain) Bind() {
	if b := c.Back(); b != nil {
		b.Bind(c.dev)
	}
}

// Swap ends the current pass: the target just written becomes readable and the
// other one is bound for writing. It returns the readable target. Two swaps restore
// the original roles.
func (c *FramebufferChain) Swap() *RenderTarget {
	c.front = 1 - c.front
	c.Bind()
	return c.Front()
}

// Release deletes both targets.
func (c *FramebufferChain) Release() {
	c.release()
	c.width, c.height = 0, 0
}

func (c *FramebufferChain) release() {
	for i, t := range c.targets {
		if t != nil {
			t.Release(c.dev)
		}
		c.targets[i] = nil
	}
	c.front = 0
}
