package scroll

// EventKind classifies a host pointer event.
type EventKind uint8

const (
	// KindOther is anything that is not relative pointer motion (buttons, keys).
	KindOther EventKind = iota
	// KindMotion is relative pointer motion.
	KindMotion
	// KindScroll is a scroll event; DY carries the vertical amount.
	KindScroll
)

func (k EventKind) String() string {
	switch k {
	case KindMotion:
		return "motion"
	case KindScroll:
		return "scroll"
	default:
		return "other"
	}
}

// PointerEvent is the host-side representation of a pointing event.
type PointerEvent struct {
	Kind EventKind
	DX   int16
	DY   int16
}

// Rewrite converts a motion event into a scroll event.
//
// Non-motion events, dead-zone samples and baseline samples come back
// unchanged with modified=false; the caller forwards them as they are. A
// tracked sample comes back as KindScroll with DX zeroed and DY set to the
// scroll value (saturated to int16).
func (t *Tracker) Rewrite(ev PointerEvent) (out PointerEvent, modified bool) {
	if ev.Kind != KindMotion {
		return ev, false
	}
	res := t.Process(MotionSample{DX: ev.DX, DY: ev.DY})
	if !res.Ok {
		return ev, false
	}
	return PointerEvent{Kind: KindScroll, DX: 0, DY: Saturate16(res.Value)}, true
}

// Saturate16 clamps v into the int16 range.
func Saturate16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
