package main

import (
	"time"

	"circscroll/scroll"
)

// This file implements the reducer:
//
//   - Events: inputs (motion samples, IPC requests, sink observations)
//   - Commands: side effects requested by the reducer (emit scroll, publish snapshot)
//   - Broadcasts: state changes for WS clients
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// The daemon loop executes Commands and feeds observations back as Events.

// ReduceResult is the output of Reduce().
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
func Reduce(s *DaemonState, e Event) ReduceResult {
	if s == nil {
		s = &DaemonState{Sources: map[string]*SourceState{}}
	}

	at := time.Time{}
	if te, ok := e.(TimedEvent); ok {
		e = te.Event
		at = te.At
	}

	rr := ReduceResult{State: s}

	switch ev := e.(type) {
	case MotionSampled:
		src, ok := s.Sources[ev.Source]
		if !ok {
			s.UnknownSamples++
			break
		}

		wasActive := src.Tracker.Active
		next, out := src.Config.Process(src.Tracker, scroll.MotionSample{DX: ev.DX, DY: ev.DY})
		src.Tracker = next

		src.Stats.Samples++
		if !at.IsZero() {
			src.Stats.LastSampleAt = at
		}

		if next.Active != wasActive {
			rr.Broadcasts = append(rr.Broadcasts, BroadcastTrackerState{Source: src.Name, Active: next.Active, At: at})
		}

		if !out.Ok {
			src.Stats.Suppressed++
			break
		}
		src.Stats.Tracked++

		// Fine gains scale small deltas to 0; nothing to emit.
		if out.Value == 0 {
			break
		}
		rr.Commands = append(rr.Commands, CmdEmitScroll{Source: src.Name, Value: out.Value})
		rr.Broadcasts = append(rr.Broadcasts, BroadcastScroll{Source: src.Name, Value: out.Value, Delta: out.Delta, At: at})

	case ResetTracker:
		src, ok := s.Sources[ev.Source]
		if !ok {
			break
		}
		if src.Tracker.Active {
			rr.Broadcasts = append(rr.Broadcasts, BroadcastTrackerState{Source: src.Name, Active: false, At: at})
		}
		src.Tracker = src.Config.Init()

	case RequestStateSnapshot:
		rr.Commands = append(rr.Commands, CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot()})

	case ScrollEmitted:
		if src, ok := s.Sources[ev.Source]; ok {
			src.Stats.Emitted++
			src.Stats.ScrollTotal += int64(ev.Value)
		}

	case ScrollEmitFailed:
		if c, ok := ev.Command.(CmdEmitScroll); ok {
			if src, ok := s.Sources[c.Source]; ok {
				src.Stats.EmitErrors++
			}
		}

	default:
		// Unknown event type: no-op.
	}

	return rr
}
