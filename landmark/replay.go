package landmark

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	log "github.com/sirupsen/logrus"
)

// Recording is a sequence of detections stored as YAML:
//
//	fps: 30
//	loop: true
//	frames:
//	  - points: [x0, y0, x1, y1, ...]
//	  - points: []          # no face in this frame
type Recording struct {
	FPS    float64 `yaml:"fps"`
	Loop   bool    `yaml:"loop"`
	Frames []struct {
		Points []float32 `yaml:"points"`
	} `yaml:"frames"`
}

// LoadRecording reads a recording from path.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read landmark recording: %w", err)
	}
	rec := &Recording{}
	if err := yaml.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to parse landmark recording %s: %w", path, err)
	}
	for i, f := range rec.Frames {
		if len(f.Points)%2 != 0 {
			return nil, fmt.Errorf("landmark frame %d has an odd number of coordinates", i)
		}
	}
	if rec.FPS <= 0 {
		rec.FPS = 30
	}
	return rec, nil
}

// Replay publishes the frames of a recording to a slot at the recording's rate. It is
// the stand-in for a live face detector.
type Replay struct {
	rec  *Recording
	slot *Slot
}

func NewReplay(rec *Recording, slot *Slot) *Replay {
	return &Replay{rec: rec, slot: slot}
}

// Run publishes until the recording ends or ctx is done. A looping recording only
// ends with ctx.
func (r *Replay) Run(ctx context.Context) error {
	if len(r.rec.Frames) == 0 {
		log.Warn("landmark: recording has no frames")
		return nil
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / r.rec.FPS))
	defer ticker.Stop()

	for i := 0; ; i++ {
		if i == len(r.rec.Frames) {
			if !r.rec.Loop {
				return nil
			}
			i = 0
		}
		if pts := r.rec.Frames[i].Points; len(pts) > 0 {
			r.slot.Publish(pts)
		} else {
			r.slot.Clear()
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
