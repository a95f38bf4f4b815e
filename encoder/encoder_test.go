package encoder

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetArgsSoftware(t *testing.T) {
	in, out := getArgs(Options{OutputFile: "out.mp4", Width: 720, Height: 1280, FPS: 30}, "linux")
	assert.Equal(t, "rawvideo", in["f"])
	assert.Equal(t, "rgba", in["pix_fmt"])
	assert.Equal(t, "720x1280", in["s"])
	assert.Equal(t, 30, in["r"])

	assert.Equal(t, "libx264", out["c:v"])
	assert.Equal(t, "vflip", out["vf"])
	assert.NotContains(t, out, "b:v")
	assert.NotContains(t, out, "tag:v")
}

func TestGetArgsHardwareAndHEVC(t *testing.T) {
	opts := Options{OutputFile: "clip.MP4", Width: 2, Height: 2, FPS: 60, Codec: "hevc", Hardware: true, Bitrate: "8M"}

	_, out := getArgs(opts, "linux")
	assert.Equal(t, "hevc_nvenc", out["c:v"])
	assert.Equal(t, "p2", out["preset"])
	assert.Equal(t, "hvc1", out["tag:v"])
	assert.Equal(t, "8M", out["b:v"])

	_, out = getArgs(opts, "darwin")
	assert.Equal(t, "hevc_videotoolbox", out["c:v"])

	_, out = getArgs(opts, "windows")
	assert.Equal(t, "libx265", out["c:v"])

	opts.OutputFile = "clip.mkv"
	_, out = getArgs(opts, "linux")
	assert.NotContains(t, out, "tag:v")
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{Width: 2, Height: 2})
	assert.Error(t, err)
	_, err = New(Options{OutputFile: "x.mp4"})
	assert.Error(t, err)
}

func TestRecorderQueuesCopies(t *testing.T) {
	r := &Recorder{
		opts:   Options{Width: 1, Height: 1},
		frames: make(chan *Frame, 4),
		done:   make(chan error, 1),
	}
	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	errc <- nil
	go r.run(pw, errc)

	var got bytes.Buffer
	read := make(chan struct{})
	go func() {
		io.Copy(&got, pr)
		close(read)
	}()

	pix := []byte{1, 2, 3, 4}
	require.NoError(t, r.WriteFrame(pix, 1, 1))
	pix[0] = 9
	require.NoError(t, r.WriteFrame(pix, 1, 1))
	assert.Error(t, r.WriteFrame(pix, 2, 1))

	require.NoError(t, r.Close())
	<-read
	assert.Equal(t, []byte{1, 2, 3, 4, 9, 2, 3, 4}, got.Bytes())

	assert.ErrorIs(t, r.WriteFrame(pix, 1, 1), ErrClosed)
	assert.ErrorIs(t, r.Close(), ErrClosed)
}
