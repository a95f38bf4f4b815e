package texture

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/source"

	log "github.com/sirupsen/logrus"
)

// MaxImageSize bounds the larger side of a static image; bigger images are scaled down
// before upload.
var MaxImageSize = 4096

// Image is a static texture decoded once. The pixels are kept so the texture can be
// uploaded again after a context loss.
type Image struct {
	info
	pix      *image.RGBA
	hasAlpha bool
}

// vflip vertically flips the provided RGBA image, so row 0 is the bottom row as GL
// expects.
func vflip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()

	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}

func downscale(src *image.RGBA, limit int) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return src
	}
	s := float64(limit) / float64(max(w, h))
	dw, dh := max(1, int(float64(w)*s)), max(1, int(float64(h)*s))
	log.Debugf("texture: scaling %dx%d image to %dx%d", w, h, dw, dh)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// NewImage prepares img for upload. The GPU texture is allocated by Recreate.
func NewImage(img image.Image, rotation geometry.Rotation, mirror geometry.Mirror) (*Image, error) {
	if img == nil {
		return nil, errors.New("texture image is nil")
	}
	rgba := downscale(source.ToRGBA(img), MaxImageSize)
	if rgba.Rect.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrIncomplete)
	}
	return &Image{
		info: info{
			width:    rgba.Rect.Dx(),
			height:   rgba.Rect.Dy(),
			rotation: rotation,
			mirror:   mirror,
		},
		pix:      vflip(rgba),
		hasAlpha: !rgba.Opaque(),
	}, nil
}

// LoadImage decodes the image at path.
func LoadImage(path string, rotation geometry.Rotation, mirror geometry.Mirror) (*Image, error) {
	img, err := source.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewImage(img, rotation, mirror)
}

// HasAlpha reports whether any pixel is not fully opaque.
func (t *Image) HasAlpha() bool { return t.hasAlpha }

func (t *Image) Recreate(dev gpu.Device) error {
	if t.released || t.id != 0 {
		return nil
	}
	id, err := dev.NewTexture(t.width, t.height, t.pix.Pix, gpu.DefaultSampler)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	t.id = id
	return nil
}
