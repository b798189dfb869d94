package main

import (
	"fmt"
	"time"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop.
type Command interface {
	commandMarker()
	String() string
}

// CmdEmitScroll asks the sink to emit one vertical scroll value.
type CmdEmitScroll struct {
	Source string
	Value  int32
}

func (CmdEmitScroll) commandMarker() {}
func (c CmdEmitScroll) String() string {
	return fmt.Sprintf("CmdEmitScroll(source=%s, value=%d)", c.Source, c.Value)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }

// ==============================
// Broadcasts (externally visible state changes)
// ==============================

// StateBroadcast is a state change published to WS clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastScroll is emitted for every non-zero scroll value the reducer produces.
type BroadcastScroll struct {
	Source string
	Value  int32
	Delta  int32
	At     time.Time
}

func (BroadcastScroll) broadcastMarker() {}

// BroadcastTrackerState is emitted when a tracker enters or leaves Active.
type BroadcastTrackerState struct {
	Source string
	Active bool
	At     time.Time
}

func (BroadcastTrackerState) broadcastMarker() {}
