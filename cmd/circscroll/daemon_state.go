package main

import (
	"time"

	"circscroll/scroll"
)

// DaemonState is the top-level, daemon-owned state container.
//
// Every tracker state lives here and is only touched by the reducer on the
// daemon goroutine (single owner). Sources never read each other's state.
type DaemonState struct {
	Sources map[string]*SourceState

	// Order preserves the configured source order for snapshots.
	Order []string

	// UnknownSamples counts samples addressed to a source that is not configured
	// (typically a typo in an IPC client).
	UnknownSamples uint64
}

// SourceState is one input source: its fixed tracker config, the current
// tracker state and counters.
type SourceState struct {
	Name    string
	Config  scroll.Config
	Tracker scroll.State
	Stats   SourceStats
}

// SourceStats are cumulative counters for one source.
type SourceStats struct {
	Samples    uint64 // every sample fed to the tracker
	Suppressed uint64 // dead-zone and baseline samples
	Tracked    uint64 // samples that produced a delta (possibly scaled to 0)
	Emitted    uint64 // scroll values accepted by the sink
	EmitErrors uint64

	// ScrollTotal is the running sum of emitted values.
	ScrollTotal int64

	LastSampleAt time.Time
}

// newDaemonState builds the state for the configured sources, all Inactive.
func newDaemonState(sources []SourceConfig) *DaemonState {
	s := &DaemonState{
		Sources: make(map[string]*SourceState, len(sources)),
		Order:   make([]string, 0, len(sources)),
	}
	for _, src := range sources {
		cfg := src.ScrollConfig()
		s.Sources[src.Name] = &SourceState{
			Name:    src.Name,
			Config:  cfg,
			Tracker: cfg.Init(),
		}
		s.Order = append(s.Order, src.Name)
	}
	return s
}

// StateSnapshot is a copy of the daemon state safe to hand to other goroutines.
type StateSnapshot struct {
	Sources        []SourceSnapshot `json:"sources"`
	UnknownSamples uint64           `json:"unknown_samples"`
}

// SourceSnapshot is the externally visible view of one source.
type SourceSnapshot struct {
	Name         string    `json:"name"`
	Gain         int32     `json:"gain"`
	DeadZoneSq   int32     `json:"dead_zone_sq"`
	Active       bool      `json:"active"`
	PrevAngle    uint16    `json:"prev_angle"`
	Samples      uint64    `json:"samples"`
	Suppressed   uint64    `json:"suppressed"`
	Tracked      uint64    `json:"tracked"`
	Emitted      uint64    `json:"emitted"`
	EmitErrors   uint64    `json:"emit_errors"`
	ScrollTotal  int64     `json:"scroll_total"`
	LastSampleAt time.Time `json:"last_sample_at,omitempty"`
}

// Snapshot copies the current state.
// This is intended to be called only by the daemon goroutine (single-owner).
func (s *DaemonState) Snapshot() StateSnapshot {
	snap := StateSnapshot{
		Sources:        make([]SourceSnapshot, 0, len(s.Order)),
		UnknownSamples: s.UnknownSamples,
	}
	for _, name := range s.Order {
		src, ok := s.Sources[name]
		if !ok {
			continue
		}
		snap.Sources = append(snap.Sources, SourceSnapshot{
			Name:         src.Name,
			Gain:         src.Config.Gain,
			DeadZoneSq:   src.Config.DeadZoneSq,
			Active:       src.Tracker.Active,
			PrevAngle:    uint16(src.Tracker.PrevAngle),
			Samples:      src.Stats.Samples,
			Suppressed:   src.Stats.Suppressed,
			Tracked:      src.Stats.Tracked,
			Emitted:      src.Stats.Emitted,
			EmitErrors:   src.Stats.EmitErrors,
			ScrollTotal:  src.Stats.ScrollTotal,
			LastSampleAt: src.Stats.LastSampleAt,
		})
	}
	return snap
}
