package main

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven "Daemon Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects (sink writes).
//   - Sink outcomes are turned into Events and fed back into the reducer.
//   - DaemonState never leaves this goroutine; other goroutines get snapshots.
//
// ============================================================================

// runDaemon receives Events from all sources, reduces them, executes the
// resulting commands and forwards broadcasts.
//
// Shutdown semantics:
//   - Returns nil when ctx is canceled
//   - Returns nil when the events channel is closed
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	sink ScrollSink,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) error {
	if state == nil {
		return errors.New("daemon state is nil")
	}

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	publish := func(bcs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcs {
			select {
			case broadcasts <- b:
			default:
				logger.Debug("broadcast queue full, dropping", "broadcast", b)
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(sink, cmd, logger, func(obs Event) {
				eventQueue = append(eventQueue, obs)
			})

			// Reduce observations promptly to keep counters coherent.
			flushEvents()
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return nil
			}
			if m, isMotion := ev.(MotionSampled); isMotion {
				logger.Debug("motion", "source", m.Source, "dx", m.DX, "dy", m.DY)
			}
			eventQueue = append(eventQueue, TimedEvent{Event: ev, At: time.Now()})
			flushEvents()
			flushCommands()
		}
	}
}
