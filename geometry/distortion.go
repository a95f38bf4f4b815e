package geometry

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DistortionMode selects the radial warp applied by the distortion pass.
type DistortionMode int

const (
	// Pinch pulls samples towards the origin, enlarging the area around it.
	Pinch DistortionMode = iota
	// Stretch drags the area around the origin towards a target point.
	Stretch
)

// ParseDistortionMode maps the configuration names to a DistortionMode.
func ParseDistortionMode(s string) (DistortionMode, error) {
	switch s {
	case "", "pinch":
		return Pinch, nil
	case "stretch":
		return Stretch, nil
	}
	return Pinch, fmt.Errorf("unknown distortion mode %q", s)
}

func (m DistortionMode) String() string {
	if m == Stretch {
		return "stretch"
	}
	return "pinch"
}

// Distortion holds the parameters of one radial warp in texture space.
type Distortion struct {
	Mode      DistortionMode
	Origin    mgl32.Vec2
	Target    mgl32.Vec2
	Radius    float32
	Intensity float32
	Curve     float32
}

// Sample returns the texture coordinate the distortion shader reads for the output
// coordinate c. It mirrors the fragment shader so the warp can be evaluated on the CPU.
func (d Distortion) Sample(c mgl32.Vec2) mgl32.Vec2 {
	if d.Radius <= 0 {
		return c
	}
	if d.Mode == Stretch {
		return stretch(c, d.Origin, d.Target, d.Radius, d.Intensity, d.Curve)
	}
	return pinch(c, d.Origin, d.Radius, d.Intensity, d.Curve)
}

func pinch(c, center mgl32.Vec2, radius, intensity, curve float32) mgl32.Vec2 {
	dist := c.Sub(center).Len()
	if dist > radius {
		return c
	}
	weight := 1 - intensity*(1-pow(dist/radius, curve))
	weight = clamp(weight, 0, 1)
	return center.Add(c.Sub(center).Mul(weight))
}

func stretch(c, origin, target mgl32.Vec2, radius, intensity, curve float32) mgl32.Vec2 {
	direction := target.Sub(origin)
	infect := pow(c.Sub(origin).Len()/radius, curve)
	infect = clamp(1-infect, 0, 1)
	return c.Sub(direction.Mul(infect * intensity))
}

func pow(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}
