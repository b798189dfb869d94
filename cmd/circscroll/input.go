package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"circscroll/scroll"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// deviceEvent is an input event tagged with where it came from.
type deviceEvent struct {
	Source string
	Device string
	Event  inputEvent
}

// inputDevice is an opened evdev node bound to a source.
type inputDevice struct {
	Source string
	Path   string
	File   *os.File
}

func decodeInputEvent(buf []byte, reader *bytes.Reader) (inputEvent, error) {
	reader.Reset(buf)
	var ev inputEvent
	err := binary.Read(reader, binary.LittleEndian, &ev)
	return ev, err
}

// forwardDeviceEvent hands de to the translator. It reports false once ctx is
// done so readers stop instead of blocking on a channel nobody drains.
func forwardDeviceEvent(ctx context.Context, events chan<- deviceEvent, de deviceEvent) bool {
	select {
	case events <- de:
		return true
	case <-ctx.Done():
		return false
	}
}

// readInputEvents reads input events from a single device and sends them to a channel.
// This runs in a dedicated goroutine and blocks on read operations.
func readInputEvents(ctx context.Context, dev inputDevice, events chan<- deviceEvent, readErr chan<- error) {
	buf := make([]byte, inputEventSize)
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(dev.File, buf); err != nil {
			readErr <- err
			return
		}

		ev, err := decodeInputEvent(buf, reader)
		if err != nil {
			// Skip malformed events
			continue
		}

		if !forwardDeviceEvent(ctx, events, deviceEvent{Source: dev.Source, Device: dev.Path, Event: ev}) {
			return
		}
	}
}

// motionAssembler folds the REL_X/REL_Y events of one evdev frame into a
// single motion sample. Frames end at SYN_REPORT. One assembler per device;
// frames from different devices must not be mixed.
type motionAssembler struct {
	dx, dy  int32
	seen    bool
	dropped bool
}

// feed consumes one event. It returns a sample when a frame carrying relative
// motion completes. Everything that is not REL_X/REL_Y or a SYN marker is
// ignored.
func (m *motionAssembler) feed(ev inputEvent) (scroll.MotionSample, bool) {
	switch ev.Type {
	case EV_REL:
		if m.dropped {
			return scroll.MotionSample{}, false
		}
		switch ev.Code {
		case REL_X:
			m.dx += ev.Value
			m.seen = true
		case REL_Y:
			m.dy += ev.Value
			m.seen = true
		}

	case EV_SYN:
		switch ev.Code {
		case SYN_DROPPED:
			// The kernel buffer overran; discard everything up to and
			// including the next SYN_REPORT.
			m.reset()
			m.dropped = true
		case SYN_REPORT:
			if m.dropped {
				m.reset()
				return scroll.MotionSample{}, false
			}
			if !m.seen {
				return scroll.MotionSample{}, false
			}
			s := scroll.MotionSample{DX: scroll.Saturate16(m.dx), DY: scroll.Saturate16(m.dy)}
			m.reset()
			return s, true
		}
	}
	return scroll.MotionSample{}, false
}

func (m *motionAssembler) reset() {
	*m = motionAssembler{}
}

// assemblerKey identifies one opened device. Sources sharing an evdev node
// each hold their own fd and see every frame, so they get separate assemblers.
type assemblerKey struct {
	source string
	device string
}

// motionDemux keeps one assembler per (source, device) pair.
type motionDemux struct {
	assemblers map[assemblerKey]*motionAssembler
}

func newMotionDemux() *motionDemux {
	return &motionDemux{assemblers: make(map[assemblerKey]*motionAssembler)}
}

// feed routes a device event to its assembler and returns a MotionSampled
// event when a frame completes.
func (d *motionDemux) feed(de deviceEvent) (MotionSampled, bool) {
	key := assemblerKey{source: de.Source, device: de.Device}
	a, ok := d.assemblers[key]
	if !ok {
		a = &motionAssembler{}
		d.assemblers[key] = a
	}
	s, ok := a.feed(de.Event)
	if !ok {
		return MotionSampled{}, false
	}
	return MotionSampled{Source: de.Source, DX: s.DX, DY: s.DY}, true
}

// translateInput turns raw device events into MotionSampled events for the
// daemon loop. It returns when ctx is canceled or with the first reader error
// (device unplugged, read failure), which stops the daemon.
func translateInput(ctx context.Context, raw <-chan deviceEvent, readErr <-chan error, events chan<- Event) error {
	demux := newMotionDemux()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			return fmt.Errorf("input reader stopped: %w", err)

		case de := <-raw:
			ev, ok := demux.feed(de)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
