package main

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"

	"circscroll/scroll"
)

// ScrollSink receives the scroll values produced by the reducer.
// Implementations are only called from the daemon goroutine.
type ScrollSink interface {
	EmitScroll(source string, value int32) error
	Close() error
}

// logSink is used when no virtual device is configured (dry run).
type logSink struct {
	logger *slog.Logger
}

func newLogSink(logger *slog.Logger) *logSink {
	return &logSink{logger: logger}
}

func (s *logSink) EmitScroll(source string, value int32) error {
	s.logger.Info("scroll", "source", source, "value", value)
	return nil
}

func (s *logSink) Close() error { return nil }

// invertSink flips the sign of every value (natural scrolling).
type invertSink struct {
	ScrollSink
}

func (s invertSink) EmitScroll(source string, value int32) error {
	if value == math.MinInt32 {
		value = math.MaxInt32
	} else {
		value = -value
	}
	return s.ScrollSink.EmitScroll(source, value)
}

// ============================================================================
// uinput wire encoding
// ============================================================================

const busVirtual = 0x06

// inputID mirrors struct input_id.
type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev mirrors struct uinput_user_dev (legacy setup interface).
type uinputUserDev struct {
	Name         [uinputMaxNameLen + 1]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

func encodeUinputUserDev(name string) []byte {
	var dev uinputUserDev
	copy(dev.Name[:uinputMaxNameLen], name)
	dev.ID = inputID{Bustype: busVirtual, Vendor: 0x1209, Product: 0x5c01, Version: 1}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &dev)
	return buf.Bytes()
}

// wheelFrame encodes one REL_WHEEL report followed by SYN_REPORT. The value is
// saturated to the int16 range of a HID wheel. The kernel stamps the time
// itself, so the timeval is left zero.
func wheelFrame(value int32) []byte {
	evs := []inputEvent{
		{Type: EV_REL, Code: REL_WHEEL, Value: int32(scroll.Saturate16(value))},
		{Type: EV_SYN, Code: SYN_REPORT, Value: 0},
	}
	var buf bytes.Buffer
	for i := range evs {
		_ = binary.Write(&buf, binary.LittleEndian, &evs[i])
	}
	return buf.Bytes()
}
