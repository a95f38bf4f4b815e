package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/richinsley/gofacewarp/geometry"
	"github.com/richinsley/gofacewarp/landmark"
	"github.com/richinsley/gofacewarp/node"
	"github.com/richinsley/gofacewarp/options"
	"github.com/richinsley/gofacewarp/source"
	"github.com/richinsley/gofacewarp/texture"
	"github.com/richinsley/gofacewarp/translator"

	log "github.com/sirupsen/logrus"
)

// producer feeds the scene from its own goroutine.
type producer interface {
	Run(ctx context.Context) error
	OnPublish(fn func())
}

// scene is everything built from the configuration before a context exists.
type scene struct {
	nodes     []node.Node
	shapes    []*node.Shape
	landmarks *landmark.Slot
	producers []producer
	closers   []func() error
}

// close stops producers that do not watch their context closely.
func (s *scene) close() {
	for _, c := range s.closers {
		if err := c(); err != nil && !errors.Is(err, source.ErrClosed) {
			log.Warnf("Error closing producer: %v", err)
		}
	}
}

// videoProducer opens the configured video input, falling back to a still image. It
// returns nil when neither is configured.
func videoProducer(o options.VideoOptions) (producer, int, int, func() error, error) {
	rotation, err := geometry.ParseRotation(o.Rotation)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	mirror, err := geometry.ParseMirror(o.Mirror)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	switch {
	case o.Input != "":
		f, err := source.NewFFmpeg(source.FFmpegOptions{
			Input:         o.Input,
			Format:        o.Format,
			Width:         o.Width,
			Height:        o.Height,
			Rotation:      rotation,
			Mirror:        mirror,
			FrameRate:     o.FPS,
			RateEmulation: o.Realtime,
			Loop:          o.Loop,
			FFmpegPath:    o.FFmpegPath,
		})
		if err != nil {
			return nil, 0, 0, nil, err
		}
		return f, o.Width, o.Height, f.Close, nil
	case o.Image != "":
		img, err := source.DecodeFile(o.Image)
		if err != nil {
			return nil, 0, 0, nil, err
		}
		still := source.NewStill(img, rotation, mirror)
		b := img.Bounds()
		return still, b.Dx(), b.Dy(), nil, nil
	}
	return nil, 0, 0, nil, nil
}

func buildScene(opts *options.Options, tr translator.Translator) (*scene, error) {
	sc := &scene{}
	w, h := opts.Surface.Width, opts.Surface.Height

	video, videoW, videoH, closeVideo, err := videoProducer(opts.Video)
	if err != nil {
		return nil, err
	}
	if video != nil {
		sc.producers = append(sc.producers, video)
		if closeVideo != nil {
			sc.closers = append(sc.closers, closeVideo)
		}
	}

	// Landmarks land where the first video node shows the frame.
	mapper := landmark.Mapper{}
	for _, n := range opts.Nodes {
		if n.Type != options.NodeVideo || video == nil {
			continue
		}
		mapper, err = landmarkMapper(opts, n, videoW, videoH)
		if err != nil {
			return nil, err
		}
		break
	}
	sc.landmarks = landmark.NewSlot(mapper)
	if opts.Landmarks.File != "" {
		rec, err := landmark.LoadRecording(opts.Landmarks.File)
		if err != nil {
			return nil, err
		}
		replay := landmark.NewReplay(rec, sc.landmarks)
		sc.producers = append(sc.producers, producerFunc{run: replay.Run, slot: sc.landmarks})
	}

	for i, n := range opts.Nodes {
		nd, err := buildNode(n, w, h, video, tr)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, n.Type, err)
		}
		if nd == nil {
			log.Warnf("Skipping %s node %d: no video input configured", n.Type, i)
			continue
		}
		if s, ok := nd.(*node.Shape); ok {
			sc.shapes = append(sc.shapes, s)
		}
		sc.nodes = append(sc.nodes, nd)
	}
	return sc, nil
}

func landmarkMapper(opts *options.Options, n options.NodeOptions, videoW, videoH int) (landmark.Mapper, error) {
	rotation, err := geometry.ParseRotation(opts.Landmarks.Rotation)
	if err != nil {
		return landmark.Mapper{}, err
	}
	mirror, err := geometry.ParseMirror(opts.Landmarks.Mirror)
	if err != nil {
		return landmark.Mapper{}, err
	}
	scaleType, err := geometry.ParseScaleType(n.ScaleType)
	if err != nil {
		return landmark.Mapper{}, err
	}
	imgW, imgH := float32(opts.Landmarks.ImageWidth), float32(opts.Landmarks.ImageHeight)
	if imgW <= 0 || imgH <= 0 {
		imgW, imgH = float32(videoW), float32(videoH)
	}
	uprightW, uprightH := imgW, imgH
	if rotation.Swaps() {
		uprightW, uprightH = imgH, imgW
	}
	return landmark.Mapper{
		ImageW:   imgW,
		ImageH:   imgH,
		Rotation: rotation,
		Mirror:   mirror,
		Target:   geometry.Place(uprightW, uprightH, n.RectIn(opts.Surface.Width, opts.Surface.Height), scaleType),
	}, nil
}

func buildNode(n options.NodeOptions, w, h int, video producer, tr translator.Translator) (node.Node, error) {
	r := n.RectIn(w, h)
	scaleType, err := geometry.ParseScaleType(n.ScaleType)
	if err != nil {
		return nil, err
	}
	switch n.Type {
	case options.NodeVideo:
		p, ok := video.(source.Provider)
		if !ok {
			return nil, nil
		}
		return node.NewVideo(r, p, scaleType), nil

	case options.NodeImage:
		rotation, err := geometry.ParseRotation(n.Rotation)
		if err != nil {
			return nil, err
		}
		mirror, err := geometry.ParseMirror(n.Mirror)
		if err != nil {
			return nil, err
		}
		tex, err := texture.LoadImage(n.Image, rotation, mirror)
		if err != nil {
			return nil, err
		}
		return node.NewImage(r, tex, scaleType), nil

	case options.NodePoints:
		style := node.DefaultPointsStyle
		if n.Tolerance > 0 {
			style.Tolerance = n.Tolerance
		}
		if n.PointSize > 0 {
			style.PointSize = n.PointSize
		}
		if n.Color[3] > 0 {
			style.Color = mgl32.Vec4(n.Color)
		}
		return node.NewPoints(r, style), nil

	case options.NodeShape:
		so := node.DefaultShapeOptions
		if so.Mode, err = geometry.ParseDistortionMode(n.Mode); err != nil {
			return nil, err
		}
		if n.Landmark != nil {
			so.Landmark = *n.Landmark
			so.TargetLandmark = *n.Landmark
		}
		if n.TargetLandmark != nil {
			so.TargetLandmark = *n.TargetLandmark
		}
		if n.Intensity != nil {
			so.Intensity = *n.Intensity
		}
		if n.Radius > 0 {
			so.Radius = n.Radius
		}
		if n.Curve > 0 {
			so.Curve = n.Curve
		}
		if len(n.Grid) == 2 {
			so.Grid = geometry.Grid{Rows: n.Grid[0], Cols: n.Grid[1]}
		}
		so.Wireframe = n.Wireframe
		return node.NewShape(r, so), nil

	case options.NodeMiniWindow:
		return node.NewMiniWindow(r, n.CropScale), nil

	case options.NodeFilter:
		code := n.Code
		if n.CodeFile != "" {
			data, err := os.ReadFile(n.CodeFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read filter code: %w", err)
			}
			code = string(data)
		}
		return node.NewFilter(r, code, tr), nil
	}
	return nil, fmt.Errorf("unknown node type %q", n.Type)
}

// producerFunc adapts a Run function and the slot it publishes to.
type producerFunc struct {
	run  func(ctx context.Context) error
	slot *landmark.Slot
}

func (p producerFunc) Run(ctx context.Context) error { return p.run(ctx) }
func (p producerFunc) OnPublish(fn func())           { p.slot.OnPublish(fn) }
