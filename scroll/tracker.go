package scroll

import "math"

const (
	// GainDenominator is the fixed-point denominator applied to Config.Gain.
	GainDenominator = 1024

	// DefaultDeadZoneSq rejects samples shorter than 5 units (5² = 25).
	DefaultDeadZoneSq = 25

	// PointerGain and TrackpadGain are the gains the two stock sources use.
	PointerGain  = 10
	TrackpadGain = 1
)

var (
	// PointerConfig is the coarse preset for pointer-class devices.
	PointerConfig = Config{Gain: PointerGain, DeadZoneSq: DefaultDeadZoneSq}

	// TrackpadConfig is the fine preset for trackpads.
	TrackpadConfig = Config{Gain: TrackpadGain, DeadZoneSq: DefaultDeadZoneSq}
)

// Config parameterizes one tracker instance. It is fixed for the lifetime of
// the tracker.
type Config struct {
	// Gain is the scaling numerator; scroll = delta * Gain / GainDenominator.
	// Negative gains reverse the scroll direction.
	Gain int32

	// DeadZoneSq is the squared magnitude below which a sample is noise.
	// Zero disables the dead zone.
	DeadZoneSq int32
}

// NewConfig returns a Config with the given gain and the default dead zone.
func NewConfig(gain int32) Config {
	return Config{Gain: gain, DeadZoneSq: DefaultDeadZoneSq}
}

// State is the per-source tracking state. The zero value is Inactive.
type State struct {
	Active    bool
	PrevAngle PseudoAngle
}

// Output is the result of processing one sample. Ok is false when the sample
// was suppressed (dead zone or baseline); Value and Delta are then zero.
type Output struct {
	Value int32
	Delta int32
	Ok    bool
}

// None is the suppressed output.
var None = Output{}

// Processor is the capability a host registers per input source: it produces
// an initial state and folds samples into it.
type Processor interface {
	Init() State
	Process(s State, sample MotionSample) (State, Output)
}

var _ Processor = Config{}

// Init returns the Inactive state.
func (c Config) Init() State {
	return State{}
}

// Process advances s by one sample. It never blocks or allocates and is total
// over all int16 inputs.
//
//   - Inside the dead zone the state becomes Inactive and nothing is emitted.
//   - The first sample outside the dead zone while Inactive only records the
//     baseline angle.
//   - Every following sample emits the wraparound-corrected angle delta scaled
//     by the gain.
func (c Config) Process(s State, sample MotionSample) (State, Output) {
	dx, dy := int64(sample.DX), int64(sample.DY)
	if dx*dx+dy*dy < int64(c.DeadZoneSq) {
		return State{}, None
	}

	angle := Estimate(sample.DX, sample.DY)
	if !s.Active {
		return State{Active: true, PrevAngle: angle}, None
	}

	delta := Delta(s.PrevAngle, angle)
	return State{Active: true, PrevAngle: angle}, Output{
		Value: c.scale(delta),
		Delta: delta,
		Ok:    true,
	}
}

// scale applies the gain, truncating toward zero. Results outside int32 are
// saturated; only gains above ~1<<30 can reach that.
func (c Config) scale(delta int32) int32 {
	v := int64(delta) * int64(c.Gain) / GainDenominator
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// Tracker owns the state of a single input source.
// It is not safe for concurrent use; each source feeds its own Tracker.
type Tracker struct {
	cfg   Config
	state State
}

// NewTracker creates an Inactive tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, state: cfg.Init()}
}

// Process feeds one sample and returns the resulting output.
func (t *Tracker) Process(sample MotionSample) Output {
	var out Output
	t.state, out = t.cfg.Process(t.state, sample)
	return out
}

// Reset forces the tracker back to Inactive.
func (t *Tracker) Reset() {
	t.state = t.cfg.Init()
}

// State returns the current tracker state.
func (t *Tracker) State() State { return t.state }

// Config returns the configuration the tracker was built with.
func (t *Tracker) Config() Config { return t.cfg }
