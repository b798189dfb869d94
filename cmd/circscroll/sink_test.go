package main

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestWheelFrame(t *testing.T) {
	tests := []struct {
		in   int32
		want int32
	}{
		{3, 3},
		{-10, -10},
		{100000, math.MaxInt16},
		{-100000, math.MinInt16},
	}

	for _, tt := range tests {
		raw := wheelFrame(tt.in)
		if len(raw) != 2*inputEventSize {
			t.Fatalf("frame size = %d, want %d", len(raw), 2*inputEventSize)
		}

		r := bytes.NewReader(nil)
		wheel, err := decodeInputEvent(raw[:inputEventSize], r)
		if err != nil {
			t.Fatalf("decode wheel: %v", err)
		}
		report, err := decodeInputEvent(raw[inputEventSize:], r)
		if err != nil {
			t.Fatalf("decode report: %v", err)
		}

		if wheel.Type != EV_REL || wheel.Code != REL_WHEEL || wheel.Value != tt.want {
			t.Fatalf("wheelFrame(%d) wheel = %+v, want value %d", tt.in, wheel, tt.want)
		}
		if report.Type != EV_SYN || report.Code != SYN_REPORT {
			t.Fatalf("wheelFrame(%d) report = %+v", tt.in, report)
		}
	}
}

func TestEncodeUinputUserDev(t *testing.T) {
	raw := encodeUinputUserDev("circscroll test")

	// 80 name + 8 id + 4 ff_effects_max + 4*64*4 abs arrays.
	if want := 80 + 8 + 4 + 4*64*4; len(raw) != want {
		t.Fatalf("size = %d, want %d", len(raw), want)
	}
	if got := string(bytes.TrimRight(raw[:80], "\x00")); got != "circscroll test" {
		t.Fatalf("name = %q", got)
	}

	var id inputID
	if err := binary.Read(bytes.NewReader(raw[80:88]), binary.LittleEndian, &id); err != nil {
		t.Fatalf("decode id: %v", err)
	}
	if id.Bustype != busVirtual {
		t.Fatalf("bustype = %#x, want %#x", id.Bustype, busVirtual)
	}
}

func TestEncodeUinputUserDev_TruncatesName(t *testing.T) {
	raw := encodeUinputUserDev(strings.Repeat("n", 200))
	if raw[uinputMaxNameLen] != 0 {
		t.Fatalf("name is not NUL terminated")
	}
}

func TestInvertSink(t *testing.T) {
	inner := &fakeSink{}
	s := invertSink{ScrollSink: inner}

	for _, v := range []int32{5, -7, 0, math.MinInt32} {
		if err := s.EmitScroll("a", v); err != nil {
			t.Fatalf("EmitScroll(%d): %v", v, err)
		}
	}
	got := inner.emitted()
	want := []int32{-5, 7, 0, math.MaxInt32}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}

	if err := s.Close(); err != nil || !inner.closed {
		t.Fatalf("Close did not reach inner sink")
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := newLogSink(setupLogger(&buf, LogLevelInfo))

	if err := s.EmitScroll("trackpad", -3); err != nil {
		t.Fatalf("EmitScroll: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "source=trackpad") || !strings.Contains(out, "value=-3") {
		t.Fatalf("log output = %q", out)
	}
}
