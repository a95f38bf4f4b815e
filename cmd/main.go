package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/richinsley/gofacewarp/encoder"
	"github.com/richinsley/gofacewarp/glfwcontext"
	"github.com/richinsley/gofacewarp/gpu"
	"github.com/richinsley/gofacewarp/graphics"
	"github.com/richinsley/gofacewarp/headless"
	"github.com/richinsley/gofacewarp/options"
	"github.com/richinsley/gofacewarp/renderer"
	"github.com/richinsley/gofacewarp/translator"

	log "github.com/sirupsen/logrus"
)

func init() {
	runtime.LockOSThread()
}

func newContext(opts *options.Options) (graphics.Context, func(), error) {
	if opts.Surface.Headless {
		h, err := headless.NewHeadless(opts.Surface.Width, opts.Surface.Height)
		if err != nil {
			return nil, nil, err
		}
		return h, h.Shutdown, nil
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	c, err := glfwcontext.New(glfwcontext.Config{
		Width:        opts.Surface.WindowWidth,
		Height:       opts.Surface.WindowHeight,
		Visible:      true,
		SwapInterval: 1,
	})
	if err != nil {
		glfwcontext.TerminateGraphics()
		return nil, nil, err
	}
	return c, func() {
		c.Shutdown()
		glfwcontext.TerminateGraphics()
	}, nil
}

func run(opts *options.Options) error {
	sc, err := buildScene(opts, translator.ANGLE{})
	if err != nil {
		return err
	}
	defer sc.close()

	gctx, shutdown, err := newContext(opts)
	if err != nil {
		return err
	}
	defer shutdown()
	gctx.MakeCurrent()

	dev, err := gpu.NewGL(gctx.IsGLES())
	if err != nil {
		return err
	}

	surface := renderer.NewSurface(dev, sc.landmarks, renderer.Options{
		Width:      opts.Surface.Width,
		Height:     opts.Surface.Height,
		Background: mgl32.Vec4(opts.Surface.Background),
		IsGLES:     gctx.IsGLES(),
		MinZoom:    opts.Surface.MinZoom,
		MaxZoom:    opts.Surface.MaxZoom,
		Clock:      gctx.Time,
	})
	defer surface.Release()
	for _, n := range sc.nodes {
		surface.AddNode(n)
	}
	for _, p := range sc.producers {
		p.OnPublish(surface.RequestRender)
	}

	if win, ok := gctx.(*glfwcontext.Context); ok {
		win.RegisterKeyCallback(glfw.KeyW, func() {
			surface.RunInRender(func(*renderer.Surface) {
				for _, s := range sc.shapes {
					s.Options.Wireframe = !s.Options.Wireframe
				}
			})
		})
		win.RegisterKeyCallback(glfw.KeyL, func() {
			sc.landmarks.Clear()
		})
	}

	loop := &renderer.Loop{
		Context:          gctx,
		Surface:          surface,
		FPS:              opts.Surface.FPS,
		ContextLossEvery: opts.ContextLossEvery,
	}

	var rec *encoder.Recorder
	if opts.Record.Output != "" {
		rec, err = encoder.New(encoder.Options{
			OutputFile: opts.Record.Output,
			Width:      opts.Surface.Width,
			Height:     opts.Surface.Height,
			FPS:        opts.Record.FPS,
			Codec:      opts.Record.Codec,
			Hardware:   opts.Record.Hardware,
			Bitrate:    opts.Record.Bitrate,
			FFmpegPath: opts.Video.FFmpegPath,
		})
		if err != nil {
			return err
		}
		loop.Sink = rec
		loop.Continuous = true
		loop.FPS = float64(opts.Record.FPS)
		loop.MaxFrames = int(opts.Record.Duration * float64(opts.Record.FPS))
		log.Infof("Recording %d frames to %s", loop.MaxFrames, opts.Record.Output)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	g, gCtx := errgroup.WithContext(ctx)
	for _, p := range sc.producers {
		g.Go(func() error { return p.Run(gCtx) })
	}

	loopErr := loop.Run(gCtx)
	cancel()
	sc.close()
	prodErr := g.Wait()

	if rec != nil {
		if err := rec.Close(); err != nil {
			loopErr = errors.Join(loopErr, err)
		} else {
			log.Infof("Successfully rendered to %s", opts.Record.Output)
		}
	}
	return errors.Join(loopErr, prodErr)
}

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	flags := options.RegisterFlags(fs)
	fs.Parse(os.Args[1:])

	if *flags.Help {
		fmt.Println("gofacewarp: real-time face warp compositor")
		fs.PrintDefaults()
		return
	}

	opts := options.Default()
	if *flags.Config != "" {
		var err error
		if opts, err = options.Load(*flags.Config); err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}
	flags.Apply(opts)
	if err := opts.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if opts.LogLevel != "" {
		level, err := log.ParseLevel(opts.LogLevel)
		if err != nil {
			log.Fatalf("Invalid log level: %v", err)
		}
		log.SetLevel(level)
	}

	if err := run(opts); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
