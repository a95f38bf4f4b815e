package texture

import (
	"fmt"

	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/source"
)

// Stream is a texture fed by a video producer. Its size, rotation and mirror follow
// the latest frame.
type Stream struct {
	info
	provider source.Provider
	last     *source.Frame
}

// NewStream returns a stream texture reading from p.
func NewStream(p source.Provider) *Stream {
	return &Stream{provider: p}
}

// HasFrame reports whether a frame was ever uploaded.
func (t *Stream) HasFrame() bool { return t.last != nil }

// Update uploads the newest frame if one arrived since the last call, or re-uploads
// the previous frame if the texture was invalidated. It reports whether the size,
// rotation or mirror changed, which invalidates texture coordinates derived from them.
func (t *Stream) Update(dev gpu.Device) (bool, error) {
	if t.released {
		return false, nil
	}
	f, fresh := t.provider.Latest()
	if f == nil {
		f = t.last
	}
	if f == nil || (!fresh && t.id != 0) {
		return false, nil
	}
	changed := f.Width != t.width || f.Height != t.height ||
		f.Rotation != t.rotation || f.Mirror != t.mirror

	if t.id == 0 || f.Width != t.width || f.Height != t.height {
		if t.id != 0 {
			dev.DeleteTexture(t.id)
			t.id = 0
		}
		id, err := dev.NewTexture(f.Width, f.Height, f.Pix, gpu.DefaultSampler)
		if err != nil {
			return false, fmt.Errorf("%w: video frame %dx%d: %v", ErrIncomplete, f.Width, f.Height, err)
		}
		t.id = id
	} else {
		dev.UploadTexture(t.id, f.Width, f.Height, f.Pix)
	}
	t.width, t.height = f.Width, f.Height
	t.rotation, t.mirror = f.Rotation, f.Mirror
	t.last = f
	return changed, nil
}

// Recreate uploads the latest known frame, if any.
func (t *Stream) Recreate(dev gpu.Device) error {
	if t.released || t.id != 0 {
		return nil
	}
	_, err := t.Update(dev)
	return err
}
