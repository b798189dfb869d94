package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeSink records emitted values. It is safe for use from the daemon
// goroutine while the test goroutine reads it.
type fakeSink struct {
	mu     sync.Mutex
	values []int32
	failOn map[int32]error
	closed bool
}

func (f *fakeSink) EmitScroll(source string, value int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOn[value]; ok {
		return err
	}
	f.values = append(f.values, value)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) emitted() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.values...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startDaemon runs the daemon loop with the test state and returns its event
// channel plus a function that stops it and returns its error.
func startDaemon(t *testing.T, sink ScrollSink, broadcasts chan<- StateBroadcast) (chan<- Event, func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 16)
	errCh := make(chan error, 1)

	go func() {
		errCh <- runDaemon(ctx, events, sink, newTestState(), broadcasts, discardLogger())
	}()

	stop := func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(time.Second):
			t.Fatalf("daemon did not stop")
			return nil
		}
	}
	t.Cleanup(func() { cancel() })
	return events, stop
}

// snapshot asks the running daemon for its state through the event loop.
func snapshot(t *testing.T, events chan<- Event) StateSnapshot {
	t.Helper()
	reply := make(chan StateSnapshot, 1)
	events <- RequestStateSnapshot{Reply: reply}
	select {
	case snap := <-reply:
		return snap
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for snapshot")
		return StateSnapshot{}
	}
}

func sourceSnapshot(t *testing.T, snap StateSnapshot, name string) SourceSnapshot {
	t.Helper()
	for _, s := range snap.Sources {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("source %q not in snapshot", name)
	return SourceSnapshot{}
}

func TestDaemon_EmitsScrollToSink(t *testing.T) {
	sink := &fakeSink{}
	events, stop := startDaemon(t, sink, nil)

	events <- MotionSampled{Source: "unit", DX: 10, DY: 0}
	events <- MotionSampled{Source: "unit", DX: 0, DY: 10}
	events <- MotionSampled{Source: "unit", DX: -10, DY: 0}

	// The snapshot is reduced after the motion, so its counters include it.
	snap := snapshot(t, events)
	u := sourceSnapshot(t, snap, "unit")
	if u.Samples != 3 || u.Emitted != 2 || u.ScrollTotal != 2048 {
		t.Fatalf("unit snapshot = %+v", u)
	}
	if u.LastSampleAt.IsZero() {
		t.Fatalf("LastSampleAt not stamped")
	}

	got := sink.emitted()
	if len(got) != 2 || got[0] != 1024 || got[1] != 1024 {
		t.Fatalf("sink values = %v, want [1024 1024]", got)
	}

	if err := stop(); err != nil {
		t.Fatalf("runDaemon returned %v", err)
	}
}

func TestDaemon_SinkErrorsAreCounted(t *testing.T) {
	sink := &fakeSink{failOn: map[int32]error{1024: errors.New("device gone")}}
	events, stop := startDaemon(t, sink, nil)

	events <- MotionSampled{Source: "unit", DX: 10, DY: 0}
	events <- MotionSampled{Source: "unit", DX: 0, DY: 10}

	u := sourceSnapshot(t, snapshot(t, events), "unit")
	if u.EmitErrors != 1 || u.Emitted != 0 {
		t.Fatalf("unit snapshot = %+v, want 1 error and 0 emitted", u)
	}

	// The daemon keeps running after a sink failure.
	events <- MotionSampled{Source: "unit", DX: 10, DY: 10} // 512, delta -512
	u = sourceSnapshot(t, snapshot(t, events), "unit")
	if u.Emitted != 1 || u.ScrollTotal != -512 {
		t.Fatalf("unit snapshot = %+v, want 1 emitted with total -512", u)
	}

	if err := stop(); err != nil {
		t.Fatalf("runDaemon returned %v", err)
	}
}

func TestDaemon_NilSinkCountsErrors(t *testing.T) {
	events, stop := startDaemon(t, nil, nil)

	events <- MotionSampled{Source: "unit", DX: 10, DY: 0}
	events <- MotionSampled{Source: "unit", DX: 0, DY: 10}

	u := sourceSnapshot(t, snapshot(t, events), "unit")
	if u.EmitErrors != 1 {
		t.Fatalf("EmitErrors = %d, want 1", u.EmitErrors)
	}
	_ = stop()
}

func TestDaemon_PublishesBroadcasts(t *testing.T) {
	broadcasts := make(chan StateBroadcast, 8)
	events, stop := startDaemon(t, &fakeSink{}, broadcasts)

	events <- MotionSampled{Source: "unit", DX: 10, DY: 0}
	events <- MotionSampled{Source: "unit", DX: 0, DY: 10}
	events <- ResetTracker{Source: "unit"}
	_ = snapshot(t, events)

	var got []StateBroadcast
	for len(broadcasts) > 0 {
		got = append(got, <-broadcasts)
	}
	if len(got) != 3 {
		t.Fatalf("got %d broadcasts, want 3: %#v", len(got), got)
	}
	if b, ok := got[0].(BroadcastTrackerState); !ok || !b.Active {
		t.Fatalf("broadcast[0] = %#v, want active tracker_state", got[0])
	}
	if b, ok := got[1].(BroadcastScroll); !ok || b.Value != 1024 || b.At.IsZero() {
		t.Fatalf("broadcast[1] = %#v, want stamped scroll 1024", got[1])
	}
	if b, ok := got[2].(BroadcastTrackerState); !ok || b.Active {
		t.Fatalf("broadcast[2] = %#v, want inactive tracker_state", got[2])
	}

	_ = stop()
}

func TestDaemon_FullBroadcastQueueDoesNotBlock(t *testing.T) {
	broadcasts := make(chan StateBroadcast) // unbuffered, never read
	sink := &fakeSink{}
	events, stop := startDaemon(t, sink, broadcasts)

	events <- MotionSampled{Source: "unit", DX: 10, DY: 0}
	events <- MotionSampled{Source: "unit", DX: 0, DY: 10}

	u := sourceSnapshot(t, snapshot(t, events), "unit")
	if u.Emitted != 1 {
		t.Fatalf("Emitted = %d, want 1", u.Emitted)
	}
	_ = stop()
}

func TestDaemon_StopsWhenEventsClosed(t *testing.T) {
	events := make(chan Event)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runDaemon(context.Background(), events, &fakeSink{}, newTestState(), nil, discardLogger())
	}()

	close(events)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runDaemon returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop after events closed")
	}
}

func TestDaemon_NilStateIsRejected(t *testing.T) {
	err := runDaemon(context.Background(), make(chan Event), nil, nil, nil, discardLogger())
	if err == nil {
		t.Fatalf("expected error for nil state")
	}
}

func TestRunEffect_UnknownCommandReportsFailure(t *testing.T) {
	var got []Event
	runEffect(&fakeSink{}, fakeCommand{}, discardLogger(), func(e Event) { got = append(got, e) })

	if len(got) != 1 {
		t.Fatalf("got %d observations, want 1", len(got))
	}
	f, ok := got[0].(ScrollEmitFailed)
	if !ok {
		t.Fatalf("observation = %T, want ScrollEmitFailed", got[0])
	}
	var unk errUnknownCommand
	if !errors.As(f.Err, &unk) {
		t.Fatalf("err = %v, want errUnknownCommand", f.Err)
	}
}

func TestRunEffect_SnapshotReplyNeverBlocks(t *testing.T) {
	reply := make(chan StateSnapshot) // nobody receiving
	done := make(chan struct{})
	go func() {
		defer close(done)
		runEffect(nil, CmdPublishStateSnapshot{Reply: reply}, discardLogger(), func(Event) {})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("runEffect blocked on snapshot reply")
	}
}

type fakeCommand struct{}

func (fakeCommand) commandMarker() {}
func (fakeCommand) String() string { return "fakeCommand" }
