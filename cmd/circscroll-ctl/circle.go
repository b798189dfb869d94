package main

import (
	"errors"
	"math"
)

type sample struct {
	DX, DY int16
}

// circleSamples synthesizes the motion a finger produces while drawing a
// circle: the velocity vector rotates once per turn. The first sample is the
// baseline; after it, every turn adds one full pseudo-angle revolution.
func circleSamples(steps, radius int, turns float64, ccw bool) ([]sample, error) {
	if steps < 3 {
		return nil, errors.New("steps must be at least 3")
	}
	if radius < 1 || radius > math.MaxInt16 {
		return nil, errors.New("radius must be between 1 and 32767")
	}
	if turns <= 0 {
		return nil, errors.New("turns must be positive")
	}

	dir := 1.0
	if ccw {
		dir = -1.0
	}

	n := int(math.Round(turns * float64(steps)))
	out := make([]sample, 0, n+1)
	for i := 0; i <= n; i++ {
		theta := dir * 2 * math.Pi * float64(i) / float64(steps)
		out = append(out, sample{
			DX: int16(math.Round(float64(radius) * math.Cos(theta))),
			DY: int16(math.Round(float64(radius) * math.Sin(theta))),
		})
	}
	return out, nil
}
