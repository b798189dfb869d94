package main

import (
	"strings"
	"testing"
)

func TestPrinter_TracksTotals(t *testing.T) {
	p := newPrinter()

	got := p.format([]byte(`{"type":"state_init","data":{"sources":[{"name":"pointer","gain":10,"dead_zone_sq":25,"active":false,"scroll_total":40}]}}`))
	if !strings.HasPrefix(got, "[STATE] pointer(gain=10 dz=25 active=false total=40)") {
		t.Fatalf("state_init = %q", got)
	}

	got = p.format([]byte(`{"type":"scroll","data":{"source":"pointer","value":-5,"delta":-512,"frames":2}}`))
	if !strings.Contains(got, "total 35") || !strings.Contains(got, "2 frames") {
		t.Fatalf("scroll = %q", got)
	}

	got = p.format([]byte(`{"type":"tracker_state","data":{"source":"pointer","active":true}}`))
	if !strings.Contains(got, "[TRACKER]") || !strings.HasSuffix(got, "ACTIVE") {
		t.Fatalf("tracker_state = %q", got)
	}
}

func TestPrinter_Fallbacks(t *testing.T) {
	p := newPrinter()

	if got := p.format([]byte("not json")); got != "[TEXT] not json" {
		t.Fatalf("text = %q", got)
	}
	if got := p.format([]byte(`{"type":"other","data":{"x":1}}`)); got != `[OTHER] {"x":1}` {
		t.Fatalf("other = %q", got)
	}
}
