package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/gofacewarp/geometry"
)

func TestDefaultIsValid(t *testing.T) {
	o := Default()
	require.NoError(t, o.Validate())
	assert.Equal(t, 720, o.Surface.Width)
	assert.Equal(t, 1280, o.Surface.Height)
	assert.Len(t, o.Nodes, 2)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
surface:
  width: 360
video:
  input: face.mp4
  rotation: 90
nodes:
  - type: video
  - type: shape
    mode: stretch
    landmark: 3
    intensity: 0
    grid: [4, 5]
  - type: mini_window
    rect: [0, 0, 100, 200]
    crop_scale: 0.25
`), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, o.Validate())
	assert.Equal(t, "debug", o.LogLevel)
	assert.Equal(t, 360, o.Surface.Width)
	assert.Equal(t, 1280, o.Surface.Height, "unset keys keep their default")
	assert.Equal(t, "face.mp4", o.Video.Input)
	require.Len(t, o.Nodes, 3)
	require.NotNil(t, o.Nodes[1].Landmark)
	assert.Equal(t, 3, *o.Nodes[1].Landmark)
	assert.Nil(t, o.Nodes[1].TargetLandmark)
	require.NotNil(t, o.Nodes[1].Intensity, "an explicit zero is kept")
	assert.Zero(t, *o.Nodes[1].Intensity)
	assert.Nil(t, o.Nodes[0].Intensity)
	assert.Equal(t, geometry.Rect{W: 100, H: 200}, o.Nodes[2].RectIn(360, 1280))
	assert.Equal(t, geometry.Rect{W: 360, H: 1280}, o.Nodes[0].RectIn(360, 1280))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("surface: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	o := Default()
	o.Video.Rotation = 45
	o.Nodes = append(o.Nodes,
		NodeOptions{Type: "sparkles"},
		NodeOptions{Type: NodeImage},
		NodeOptions{Type: NodeShape, Grid: []int{1, 3}},
		NodeOptions{Type: NodeFilter},
	)
	err := o.Validate()
	require.Error(t, err)
	for _, want := range []string{"video", "sparkles", "image node needs", "grid", "filter node needs"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestFlagsOnlyOverrideWhatIsSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-i", "cam.mp4", "--rotation=270", "-o", "out.mp4", "--context-loss-every", "5"}))

	o := Default()
	f.Apply(o)
	assert.Equal(t, "cam.mp4", o.Video.Input)
	assert.Equal(t, 270, o.Video.Rotation)
	assert.Equal(t, "out.mp4", o.Record.Output)
	assert.Equal(t, 5, o.ContextLossEvery)
	assert.Equal(t, 720, o.Surface.Width, "unset flags keep the configuration")
	assert.Equal(t, 30, o.Record.FPS)
}
