package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - reducer inputs
// ============================================================================
// Events come from input devices, IPC clients, the WS server (snapshot
// requests) and the effects layer (sink observations). The daemon loop is the
// only consumer.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// TimedEvent attaches the daemon's receive timestamp to a payload event.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// MotionSampled is one assembled relative-motion frame from a source.
type MotionSampled struct {
	Source string `json:"source"`
	DX     int16  `json:"dx"`
	DY     int16  `json:"dy"`
}

func (MotionSampled) eventMarker() {}

// ResetTracker forces a source's tracker back to Inactive.
type ResetTracker struct {
	Source string `json:"source"`
}

func (ResetTracker) eventMarker() {}

// RequestStateSnapshot asks the reducer for a snapshot of all sources.
// The reply is delivered by the effects layer.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ScrollEmitted is fed back after the sink accepted a scroll value.
type ScrollEmitted struct {
	Source string
	Value  int32
	At     time.Time
}

func (ScrollEmitted) eventMarker() {}

// ScrollEmitFailed is fed back when executing a Command fails.
type ScrollEmitFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (ScrollEmitFailed) eventMarker() {}

// ============================================================================
// IPC wire format
// ============================================================================

// EventEnvelope is the line-delimited JSON wrapper used over IPC:
//
//	{"type": "motion", "data": {"source": "trackpad", "dx": 10, "dy": 0}}
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	envelopeMotion       = "motion"
	envelopeResetTracker = "reset_tracker"
)

// UnmarshalEvent decodes an IPC envelope into a payload event.
func UnmarshalEvent(b []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case envelopeMotion:
		var e MotionSampled
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal MotionSampled: %w", err)
		}
		if e.Source == "" {
			return nil, fmt.Errorf("motion: source is required")
		}
		return e, nil

	case envelopeResetTracker:
		var e ResetTracker
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal ResetTracker: %w", err)
		}
		if e.Source == "" {
			return nil, fmt.Errorf("reset_tracker: source is required")
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an IPC-capable event into its envelope.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case MotionSampled:
		env.Type = envelopeMotion
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal MotionSampled: %w", err)
		}
		env.Data = data

	case ResetTracker:
		env.Type = envelopeResetTracker
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ResetTracker: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
