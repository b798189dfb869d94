// Package scroll turns relative pointer motion into a one-dimensional scroll
// signal by tracking the direction of motion rather than its magnitude.
//
// A circular sweep on a trackpad or trackball produces a steady stream of
// direction changes; the tracker reports those changes as scroll, so the
// gesture behaves like a rotary encoder drawn on a flat surface. All arithmetic
// is integer-only.
package scroll

// PseudoAngle is a coarse, non-trigonometric direction estimate.
// The full circle is AngleRange units; values are always in [0, AngleRange).
type PseudoAngle uint16

const (
	// AngleRange is the number of pseudo-angle units in a full turn (360°).
	AngleRange = 4096

	// QuarterTurn is one quadrant (90°).
	QuarterTurn = AngleRange / 4

	// HalfTurn is 180°. Corrected deltas never exceed it in magnitude.
	HalfTurn = AngleRange / 2
)

// MotionSample is one relative displacement reported by a pointing device.
type MotionSample struct {
	DX int16 `json:"dx"`
	DY int16 `json:"dy"`
}

// Estimate maps a motion sample to its pseudo-angle.
//
// The angle is piecewise linear in |dy| / (|dx| + |dy|) within each quadrant:
//
//	[0,1024)     dx >= 0, dy >= 0
//	[1024,2048)  dx <  0, dy >= 0
//	[2048,3072)  dx <  0, dy <  0
//	[3072,4096)  dx >= 0, dy <  0
//
// Ordering is monotonic within a quadrant but not a true arctangent; it is good
// enough to detect direction changes. A zero sample maps to 0.
func Estimate(dx, dy int16) PseudoAngle {
	// int32 so that |-32768| is representable.
	ax := abs32(int32(dx))
	ay := abs32(int32(dy))
	sum := ax + ay
	if sum == 0 {
		return 0
	}

	ratio := ay * QuarterTurn / sum // 0..1024

	var angle int32
	switch {
	case dx >= 0 && dy >= 0:
		angle = ratio
	case dx < 0 && dy >= 0:
		angle = QuarterTurn + (QuarterTurn - ratio)
	case dx < 0 && dy < 0:
		angle = HalfTurn + ratio
	default: // dx >= 0 && dy < 0
		angle = 3*QuarterTurn + (QuarterTurn - ratio)
	}
	// A tiny negative dy against a large dx truncates ratio to 0 in the last
	// quadrant, landing exactly on a full turn.
	return PseudoAngle(angle & (AngleRange - 1))
}

// Delta returns the shortest signed distance from prev to cur around the
// circle. The result is in [-HalfTurn, HalfTurn].
func Delta(prev, cur PseudoAngle) int32 {
	d := int32(cur) - int32(prev)
	if d > HalfTurn {
		d -= AngleRange
	} else if d < -HalfTurn {
		d += AngleRange
	}
	return d
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
