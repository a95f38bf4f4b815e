package source

import (
	"context"
	"image"

	"github.com/richinsley/gofacewarp/geometry"
)

// Still publishes a single image as a video frame. It stands in for a camera in
// demos and tests.
type Still struct {
	Slot
	img      *image.RGBA
	rotation geometry.Rotation
	mirror   geometry.Mirror
}

// NewStill wraps img. The frame is published by Run.
func NewStill(img image.Image, rotation geometry.Rotation, mirror geometry.Mirror) *Still {
	return &Still{img: ToRGBA(img), rotation: rotation, mirror: mirror}
}

// Run publishes the image once and waits for ctx to finish.
func (s *Still) Run(ctx context.Context) error {
	s.Publish(&Frame{
		Pix:      s.img.Pix,
		Width:    s.img.Rect.Dx(),
		Height:   s.img.Rect.Dy(),
		Rotation: s.rotation,
		Mirror:   s.mirror,
	})
	<-ctx.Done()
	return nil
}
