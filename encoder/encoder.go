// Package encoder records composed frames to a video file through an ffmpeg child
// process.
package encoder

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	log "github.com/sirupsen/logrus"
)

// ErrClosed is returned by WriteFrame after Close.
var ErrClosed = errors.New("encoder closed")

// Options configures a Recorder.
type Options struct {
	OutputFile string
	Width      int
	Height     int
	FPS        int
	// Codec is "h264" or "hevc".
	Codec string
	// Hardware selects the platform encoder (NVENC, VideoToolbox) instead of
	// libx264/libx265.
	Hardware   bool
	Bitrate    string
	FFmpegPath string
	// QueueSize is the number of frames buffered between the render loop and ffmpeg.
	QueueSize int
}

// Frame represents a single rendered video frame's data, ready for encoding.
type Frame struct {
	Pixels []byte
	PTS    int64
}

// Recorder pipes raw RGBA frames to ffmpeg. Frames arrive bottom row first, the way
// glReadPixels returns them, and are flipped by the encoder.
type Recorder struct {
	opts   Options
	frames chan *Frame
	done   chan error

	mu     sync.Mutex
	closed bool
	pts    int64
}

// New validates opts and starts the ffmpeg process.
func New(opts Options) (*Recorder, error) {
	if opts.OutputFile == "" {
		return nil, errors.New("recorder needs an output file")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid recording size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 8
	}
	r := &Recorder{
		opts:   opts,
		frames: make(chan *Frame, opts.QueueSize),
		done:   make(chan error, 1),
	}

	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := getArgs(opts, runtime.GOOS)
	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(opts.OutputFile, outputArgs).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if opts.FFmpegPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(opts.FFmpegPath)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- ffmpegCmd.Run()
		pipeReader.Close()
	}()
	go r.run(pipeWriter, errc)

	log.Infof("encoder: recording %dx%d@%d to %s (%s)", opts.Width, opts.Height, opts.FPS, opts.OutputFile, outputArgs["c:v"])
	return r, nil
}

func getArgs(opts Options, goos string) (inputArgs ffmpeg.KwArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"r":       opts.FPS,
	}

	outputArgs = ffmpeg.KwArgs{
		"vf":      "vflip",
		"pix_fmt": "yuv420p",
	}
	hevc := opts.Codec == "hevc"
	switch {
	case opts.Hardware && goos == "linux":
		if hevc {
			outputArgs["c:v"] = "hevc_nvenc"
		} else {
			outputArgs["c:v"] = "h264_nvenc"
		}
		outputArgs["preset"] = "p2"
	case opts.Hardware && goos == "darwin":
		if hevc {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
	default:
		if hevc {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
		}
	}
	if opts.Bitrate != "" {
		outputArgs["b:v"] = opts.Bitrate
	}
	if hevc && strings.EqualFold(filepath.Ext(opts.OutputFile), ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return
}

// run is the consumer: it drains the frame queue into ffmpeg's stdin.
func (r *Recorder) run(w *io.PipeWriter, errc <-chan error) {
	var writeErr error
	for frame := range r.frames {
		if writeErr != nil {
			continue
		}
		if _, err := w.Write(frame.Pixels); err != nil {
			writeErr = fmt.Errorf("failed to write frame %d to ffmpeg: %w", frame.PTS, err)
			log.Errorf("encoder: %v", writeErr)
		}
	}
	w.Close()
	err := <-errc
	if err == nil {
		err = writeErr
	}
	r.done <- err
}

// WriteFrame queues a copy of pix. It blocks while the queue is full.
func (r *Recorder) WriteFrame(pix []byte, width, height int) error {
	if width != r.opts.Width || height != r.opts.Height {
		return fmt.Errorf("frame size %dx%d does not match recording size %dx%d", width, height, r.opts.Width, r.opts.Height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	buf := make([]byte, len(pix))
	copy(buf, pix)
	r.frames <- &Frame{Pixels: buf, PTS: r.pts}
	r.pts++
	return nil
}

// Close flushes the queue and waits for ffmpeg to finish the file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	close(r.frames)
	n := r.pts
	r.mu.Unlock()

	err := <-r.done
	if err != nil {
		return fmt.Errorf("ffmpeg encoder exited: %w", err)
	}
	log.Infof("encoder: wrote %d frames to %s", n, r.opts.OutputFile)
	return nil
}
