package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/gofacewarp/geometry"

	log "github.com/sirupsen/logrus"
)

// FFmpegOptions configures an FFmpeg producer.
type FFmpegOptions struct {
	// Input is a file, URL or device name understood by ffmpeg.
	Input string
	// Format forces the input format (e.g. "v4l2", "avfoundation"); empty lets ffmpeg probe.
	Format string
	// Width and Height are the size frames are scaled to.
	Width, Height int
	Rotation      geometry.Rotation
	Mirror        geometry.Mirror
	// FrameRate of the decoded stream; used for rate emulation.
	FrameRate float64
	// RateEmulation paces file inputs at FrameRate instead of decoding as fast as possible.
	RateEmulation bool
	Loop          bool
	FFmpegPath    string
}

// FFmpeg decodes a video with an ffmpeg child process that writes raw RGBA frames
// to a pipe.
type FFmpeg struct {
	Slot
	opts FFmpegOptions

	mu     sync.Mutex
	cmd    *exec.Cmd
	closed bool
}

// NewFFmpeg returns a producer for opts. Nothing runs until Run.
func NewFFmpeg(opts FFmpegOptions) (*FFmpeg, error) {
	if opts.Input == "" {
		return nil, errors.New("ffmpeg source needs an input")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid ffmpeg output size %dx%d", opts.Width, opts.Height)
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	return &FFmpeg{opts: opts}, nil
}

func (f *FFmpeg) getArgs() (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{}
	if f.opts.Format != "" {
		inputArgs["f"] = f.opts.Format
	}
	if f.opts.Loop {
		inputArgs["stream_loop"] = "-1"
	}
	outputArgs = ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"vf":      fmt.Sprintf("scale=%d:%d", f.opts.Width, f.opts.Height),
		"r":       fmt.Sprintf("%g", f.opts.FrameRate),
	}
	return inputArgs, outputArgs
}

// Run starts ffmpeg and publishes frames until the stream ends, ctx is done or Close
// is called.
func (f *FFmpeg) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	inputArgs, outputArgs := f.getArgs()
	pipeReader, pipeWriter := io.Pipe()

	ffmpegCmd := ffmpeg.Input(f.opts.Input, inputArgs).
		Output("pipe:", outputArgs).
		WithOutput(pipeWriter).
		ErrorToStdOut()
	if f.opts.FFmpegPath != "" {
		ffmpegCmd.SetFfmpegPath(f.opts.FFmpegPath)
	}
	f.cmd = ffmpegCmd.Compile()
	cmd := f.cmd
	f.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg decoder: %w", err)
	}
	log.Infof("source: decoding %s at %dx%d", f.opts.Input, f.opts.Width, f.opts.Height)

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pipeWriter.CloseWithError(io.EOF)
		waitErr <- err
	}()
	defer stopOnCancel(ctx, f.kill)()

	readErr := f.readFrames(ctx, pipeReader)
	pipeReader.Close()
	f.kill()
	err := <-waitErr

	if ctx.Err() != nil || f.isClosed() {
		return nil
	}
	if readErr != nil {
		return readErr
	}
	if err != nil {
		return fmt.Errorf("ffmpeg decoder exited: %w", err)
	}
	return nil
}

func (f *FFmpeg) readFrames(ctx context.Context, r io.Reader) error {
	frameSize := f.opts.Width * f.opts.Height * 4
	frameDuration := time.Duration(float64(time.Second) / f.opts.FrameRate)
	start := time.Now()
	var sent int64

	for ctx.Err() == nil {
		pix := make([]byte, frameSize)
		if _, err := io.ReadFull(r, pix); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("failed to read video frame: %w", err)
		}
		f.Publish(&Frame{
			Pix:      pix,
			Width:    f.opts.Width,
			Height:   f.opts.Height,
			Rotation: f.opts.Rotation,
			Mirror:   f.opts.Mirror,
		})
		sent++

		if f.opts.RateEmulation {
			ahead := time.Duration(sent)*frameDuration - time.Since(start)
			if ahead > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(ahead):
				}
			}
		}
	}
	return nil
}

// stopOnCancel calls stop when ctx is done. The returned release ends the watch; after
// it returns stop is never called.
func stopOnCancel(ctx context.Context, stop func()) (release func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func (f *FFmpeg) kill() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cmd != nil && f.cmd.Process != nil {
		f.cmd.Process.Kill()
	}
}

func (f *FFmpeg) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close stops the decoder. Run returns shortly after.
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.kill()
	return nil
}
