// Package options holds the application configuration: a YAML file layered under
// command line flags.
package options

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/richinsley/gofacewarp/geometry"
)

// Options is the whole configuration of a run.
type Options struct {
	LogLevel  string          `yaml:"log_level"`
	Surface   SurfaceOptions  `yaml:"surface"`
	Video     VideoOptions    `yaml:"video"`
	Landmarks LandmarkOptions `yaml:"landmarks"`
	Nodes     []NodeOptions   `yaml:"nodes"`
	Record    RecordOptions   `yaml:"record"`
	// ContextLossEvery destroys and recreates the graphics context after every N
	// frames. Zero disables it.
	ContextLossEvery int `yaml:"context_loss_every"`
}

type SurfaceOptions struct {
	// Width and Height are the logical scene size.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// WindowWidth and WindowHeight size the window the scene is fitted into.
	WindowWidth  int        `yaml:"window_width"`
	WindowHeight int        `yaml:"window_height"`
	Background   [4]float32 `yaml:"background"`
	Headless     bool       `yaml:"headless"`
	FPS          float64    `yaml:"fps"`
	MinZoom      float32    `yaml:"min_zoom"`
	MaxZoom      float32    `yaml:"max_zoom"`
}

type VideoOptions struct {
	// Input is decoded by ffmpeg. Image is used instead when Input is empty.
	Input      string  `yaml:"input"`
	Image      string  `yaml:"image"`
	Format     string  `yaml:"format"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Rotation   int     `yaml:"rotation"`
	Mirror     string  `yaml:"mirror"`
	FPS        float64 `yaml:"fps"`
	Realtime   bool    `yaml:"realtime"`
	Loop       bool    `yaml:"loop"`
	FFmpegPath string  `yaml:"ffmpeg_path"`
}

type LandmarkOptions struct {
	// File is a landmark recording replayed in place of a live detector.
	File string `yaml:"file"`
	// ImageWidth and ImageHeight are the size of the frames the detector ran on.
	ImageWidth  int    `yaml:"image_width"`
	ImageHeight int    `yaml:"image_height"`
	Rotation    int    `yaml:"rotation"`
	Mirror      string `yaml:"mirror"`
}

// NodeOptions describes one node of the scene, bottom to top. Rect is x, y, width,
// height in logical pixels; an empty Rect covers the whole scene.
type NodeOptions struct {
	Type      string     `yaml:"type"`
	Rect      []float32  `yaml:"rect"`
	ScaleType string     `yaml:"scale_type"`
	Image     string     `yaml:"image"`
	Rotation  int        `yaml:"rotation"`
	Mirror    string     `yaml:"mirror"`
	Tolerance float32    `yaml:"tolerance"`
	PointSize float32    `yaml:"point_size"`
	Color     [4]float32 `yaml:"color"`
	// Shape
	Mode           string   `yaml:"mode"`
	Landmark       *int     `yaml:"landmark"`
	TargetLandmark *int     `yaml:"target_landmark"`
	Intensity      *float32 `yaml:"intensity"`
	Radius         float32  `yaml:"radius"`
	Curve          float32  `yaml:"curve"`
	Grid           []int    `yaml:"grid"`
	Wireframe      bool     `yaml:"wireframe"`
	// MiniWindow
	CropScale float32 `yaml:"crop_scale"`
	// Filter
	Code     string `yaml:"code"`
	CodeFile string `yaml:"code_file"`
}

type RecordOptions struct {
	// Output enables recording when set.
	Output   string  `yaml:"output"`
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"`
	Codec    string  `yaml:"codec"`
	Hardware bool    `yaml:"hardware"`
	Bitrate  string  `yaml:"bitrate"`
}

// Node types.
const (
	NodeVideo      = "video"
	NodeImage      = "image"
	NodePoints     = "points"
	NodeShape      = "shape"
	NodeMiniWindow = "mini_window"
	NodeFilter     = "filter"
)

// Default is a portrait 720x1280 scene showing the video with the landmark overlay.
func Default() *Options {
	return &Options{
		LogLevel: "info",
		Surface: SurfaceOptions{
			Width:        720,
			Height:       1280,
			WindowWidth:  540,
			WindowHeight: 960,
			Background:   [4]float32{1, 1, 1, 1},
			FPS:          30,
			MinZoom:      1,
			MaxZoom:      4,
		},
		Video: VideoOptions{
			Width:  1280,
			Height: 720,
			FPS:    30,
			Loop:   true,
		},
		Nodes: []NodeOptions{
			{Type: NodeVideo},
			{Type: NodePoints},
		},
		Record: RecordOptions{
			FPS:      30,
			Duration: 10,
			Codec:    "h264",
		},
	}
}

// Load reads the YAML file at path over Default.
func Load(path string) (*Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return opts, nil
}

// Validate checks the values that cannot be clamped.
func (o *Options) Validate() error {
	var errs []error
	if o.Surface.Width <= 0 || o.Surface.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid scene size %dx%d", o.Surface.Width, o.Surface.Height))
	}
	if _, err := geometry.ParseRotation(o.Video.Rotation); err != nil {
		errs = append(errs, fmt.Errorf("video: %w", err))
	}
	if _, err := geometry.ParseMirror(o.Video.Mirror); err != nil {
		errs = append(errs, fmt.Errorf("video: %w", err))
	}
	if _, err := geometry.ParseRotation(o.Landmarks.Rotation); err != nil {
		errs = append(errs, fmt.Errorf("landmarks: %w", err))
	}
	if _, err := geometry.ParseMirror(o.Landmarks.Mirror); err != nil {
		errs = append(errs, fmt.Errorf("landmarks: %w", err))
	}
	for i, n := range o.Nodes {
		if err := n.validate(); err != nil {
			errs = append(errs, fmt.Errorf("node %d (%s): %w", i, n.Type, err))
		}
	}
	if c := o.Record.Codec; c != "" && c != "h264" && c != "hevc" {
		errs = append(errs, fmt.Errorf("unknown codec %q", c))
	}
	return errors.Join(errs...)
}

func (n NodeOptions) validate() error {
	if len(n.Rect) != 0 && len(n.Rect) != 4 {
		return fmt.Errorf("rect needs 4 values, got %d", len(n.Rect))
	}
	if len(n.Grid) != 0 && (len(n.Grid) != 2 || n.Grid[0] < 2 || n.Grid[1] < 2) {
		return fmt.Errorf("grid needs rows and columns of at least 2, got %v", n.Grid)
	}
	if _, err := geometry.ParseScaleType(n.ScaleType); err != nil {
		return err
	}
	switch n.Type {
	case NodeVideo, NodePoints, NodeMiniWindow:
	case NodeImage:
		if n.Image == "" {
			return errors.New("image node needs an image")
		}
		if _, err := geometry.ParseRotation(n.Rotation); err != nil {
			return err
		}
		if _, err := geometry.ParseMirror(n.Mirror); err != nil {
			return err
		}
	case NodeShape:
		if _, err := geometry.ParseDistortionMode(n.Mode); err != nil {
			return err
		}
	case NodeFilter:
		if n.Code == "" && n.CodeFile == "" {
			return errors.New("filter node needs code or code_file")
		}
	default:
		return fmt.Errorf("unknown node type %q", n.Type)
	}
	return nil
}

// RectIn returns the node rectangle, or the whole scene when none is set.
func (n NodeOptions) RectIn(width, height int) geometry.Rect {
	if len(n.Rect) != 4 {
		return geometry.Rect{W: float32(width), H: float32(height)}
	}
	return geometry.Rect{X: n.Rect[0], Y: n.Rect[1], W: n.Rect[2], H: n.Rect[3]}
}

// Flags are the command line overrides. Only flags set on the command line replace
// configuration values.
type Flags struct {
	fs *pflag.FlagSet

	Config           *string
	Help             *bool
	LogLevel         *string
	Width            *int
	Height           *int
	Headless         *bool
	Input            *string
	Image            *string
	Format           *string
	Rotation         *int
	Mirror           *string
	FFmpegPath       *string
	Landmarks        *string
	Output           *string
	Duration         *float64
	FPS              *int
	Codec            *string
	ContextLossEvery *int
}

// RegisterFlags adds the override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		fs:               fs,
		Config:           fs.StringP("config", "c", "", "YAML configuration file"),
		Help:             fs.BoolP("help", "h", false, "Show help message"),
		LogLevel:         fs.String("log-level", "", "Log level (debug, info, warn, error)"),
		Width:            fs.Int("width", 0, "Logical scene width"),
		Height:           fs.Int("height", 0, "Logical scene height"),
		Headless:         fs.Bool("headless", false, "Render to an offscreen EGL surface"),
		Input:            fs.StringP("input", "i", "", "Video input decoded by ffmpeg (file, URL or device)"),
		Image:            fs.String("image", "", "Still image shown when there is no video input"),
		Format:           fs.StringP("format", "f", "", "Force the ffmpeg input format (e.g. v4l2)"),
		Rotation:         fs.Int("rotation", 0, "Clockwise rotation of the video in degrees"),
		Mirror:           fs.String("mirror", "", "Mirror the video (none, horizontal, vertical, both)"),
		FFmpegPath:       fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Landmarks:        fs.StringP("landmarks", "l", "", "Landmark recording to replay"),
		Output:           fs.StringP("output", "o", "", "Record the composed scene to this file"),
		Duration:         fs.Float64("duration", 0, "Duration to record in seconds"),
		FPS:              fs.Int("fps", 0, "Frames per second for recording"),
		Codec:            fs.String("codec", "", "Recording codec (h264, hevc)"),
		ContextLossEvery: fs.Int("context-loss-every", 0, "Recreate the graphics context every N frames"),
	}
}

// Apply copies the flags given on the command line into o.
func (f *Flags) Apply(o *Options) {
	set := func(name string) bool { return f.fs.Changed(name) }
	if set("log-level") {
		o.LogLevel = *f.LogLevel
	}
	if set("width") {
		o.Surface.Width = *f.Width
	}
	if set("height") {
		o.Surface.Height = *f.Height
	}
	if set("headless") {
		o.Surface.Headless = *f.Headless
	}
	if set("input") {
		o.Video.Input = *f.Input
	}
	if set("image") {
		o.Video.Image = *f.Image
	}
	if set("format") {
		o.Video.Format = *f.Format
	}
	if set("rotation") {
		o.Video.Rotation = *f.Rotation
	}
	if set("mirror") {
		o.Video.Mirror = *f.Mirror
	}
	if set("ffmpeg") {
		o.Video.FFmpegPath = *f.FFmpegPath
	}
	if set("landmarks") {
		o.Landmarks.File = *f.Landmarks
	}
	if set("output") {
		o.Record.Output = *f.Output
	}
	if set("duration") {
		o.Record.Duration = *f.Duration
	}
	if set("fps") {
		o.Record.FPS = *f.FPS
	}
	if set("codec") {
		o.Record.Codec = *f.Codec
	}
	if set("context-loss-every") {
		o.ContextLossEvery = *f.ContextLossEvery
	}
}
