package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"circscroll/scroll"
)

// Config is the top-level YAML configuration for the circscroll daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume a
// well-formed config.
type Config struct {
	// Input sources; each one gets its own tracker.
	Sources []SourceConfig `yaml:"sources"`

	// Where produced scroll goes
	Output OutputConfig `yaml:"output"`

	// IPC configuration (circscroll-ctl, synthetic sources)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP server hosting the state websocket
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes one logical input source.
//
// A source may have no devices; it is then only fed through IPC.
type SourceConfig struct {
	Name    string   `yaml:"name"`
	Devices []string `yaml:"devices,omitempty"`

	// Gain numerator over a fixed denominator of 1024. Must be non-zero.
	Gain int32 `yaml:"gain"`

	// Squared dead-zone magnitude. Omitted means the default (25); an explicit
	// 0 disables the dead zone.
	DeadZoneSq *int32 `yaml:"dead_zone_sq,omitempty"`

	// Grab requests exclusive access (EVIOCGRAB) so the motion does not also
	// move the cursor.
	Grab bool `yaml:"grab,omitempty"`
}

type OutputConfig struct {
	Uinput UinputConfig `yaml:"uinput"`

	// Invert flips the sign of every emitted wheel value.
	Invert bool `yaml:"invert,omitempty"`
}

type UinputConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	// Port 0 disables the HTTP server.
	Port   int    `yaml:"port"`
	WSPath string `yaml:"ws_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
//
// The two stock sources mirror the usual hardware pairing: a coarse pointer
// (gain 10) and a fine trackpad (gain 1).
func DefaultConfig() Config {
	return Config{
		Sources: []SourceConfig{
			{
				Name:    "pointer",
				Devices: []string{defaultPointerDevice},
				Gain:    scroll.PointerGain,
			},
			{
				Name:    "trackpad",
				Devices: []string{defaultTrackpadDevice},
				Gain:    scroll.TrackpadGain,
			},
		},
		Output: OutputConfig{
			Uinput: UinputConfig{
				Enabled: true,
				Name:    defaultUinputName,
			},
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		HTTP: HTTPConfig{
			Port:   defaultHTTPPort,
			WSPath: defaultWSPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command-line overrides. A nil field is ignored; a
// non-nil field is applied even if it holds a zero value.
type FlagOverrides struct {
	// Sources replaces the whole source list when non-empty.
	Sources []SourceConfig

	IPCSocketPath *string
	HTTPPort      *int

	UinputEnabled *bool
	UinputName    *string
	Invert        *bool

	LogLevel *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if len(o.Sources) > 0 {
		cfg.Sources = append([]SourceConfig(nil), o.Sources...)
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPPort != nil {
		cfg.HTTP.Port = *o.HTTPPort
	}
	if o.UinputEnabled != nil {
		cfg.Output.Uinput.Enabled = *o.UinputEnabled
	}
	if o.UinputName != nil {
		cfg.Output.Uinput.Name = *o.UinputName
	}
	if o.Invert != nil {
		cfg.Output.Invert = *o.Invert
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("sources must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	// Sources may share a device, but a grab hides it from every other fd.
	owners := make(map[string]SourceConfig)
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name must not be empty", i)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources[%d].name %q is duplicated", i, src.Name)
		}
		seen[src.Name] = struct{}{}

		if src.Gain == 0 {
			return fmt.Errorf("sources[%d] (%s): gain must be non-zero", i, src.Name)
		}
		if src.DeadZoneSq != nil && *src.DeadZoneSq < 0 {
			return fmt.Errorf("sources[%d] (%s): dead_zone_sq must be >= 0", i, src.Name)
		}
		devs := make(map[string]struct{}, len(src.Devices))
		for j, dev := range src.Devices {
			if dev == "" {
				return fmt.Errorf("sources[%d] (%s): devices[%d] is empty", i, src.Name, j)
			}
			if _, dup := devs[dev]; dup {
				return fmt.Errorf("sources[%d] (%s): devices[%d] %q is listed twice", i, src.Name, j, dev)
			}
			devs[dev] = struct{}{}

			if other, shared := owners[dev]; shared && (other.Grab || src.Grab) {
				return fmt.Errorf("sources[%d] (%s): device %q is shared with %s and cannot be grabbed", i, src.Name, dev, other.Name)
			}
			owners[dev] = src
		}
	}

	if c.Output.Uinput.Enabled {
		if c.Output.Uinput.Name == "" {
			return errors.New("output.uinput.name must not be empty when uinput is enabled")
		}
		if len(c.Output.Uinput.Name) > uinputMaxNameLen {
			return fmt.Errorf("output.uinput.name must be at most %d bytes", uinputMaxNameLen)
		}
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port must be between 0 and 65535")
	}
	if c.HTTP.Port != 0 && !strings.HasPrefix(c.HTTP.WSPath, "/") {
		return errors.New("http.ws_path must start with '/'")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ScrollConfig converts the file representation into the tracker config.
func (s SourceConfig) ScrollConfig() scroll.Config {
	cfg := scroll.NewConfig(s.Gain)
	if s.DeadZoneSq != nil {
		cfg.DeadZoneSq = *s.DeadZoneSq
	}
	return cfg
}

// parseSourceFlag parses "name:gain[:dev1,dev2,...]".
func parseSourceFlag(v string) (SourceConfig, error) {
	parts := strings.SplitN(v, ":", 3)
	if len(parts) < 2 {
		return SourceConfig{}, fmt.Errorf("source %q: want name:gain[:devices]", v)
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return SourceConfig{}, fmt.Errorf("source %q: empty name", v)
	}

	gain, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return SourceConfig{}, fmt.Errorf("source %q: invalid gain: %w", v, err)
	}

	src := SourceConfig{Name: name, Gain: int32(gain)}
	if len(parts) == 3 && parts[2] != "" {
		for _, dev := range strings.Split(parts[2], ",") {
			src.Devices = append(src.Devices, strings.TrimSpace(dev))
		}
	}
	return src, nil
}

// sourceFlags collects repeated -source flags.
type sourceFlags []SourceConfig

func (f *sourceFlags) String() string {
	names := make([]string, 0, len(*f))
	for _, s := range *f {
		names = append(names, s.Name)
	}
	return strings.Join(names, ",")
}

func (f *sourceFlags) Set(v string) error {
	src, err := parseSourceFlag(v)
	if err != nil {
		return err
	}
	*f = append(*f, src)
	return nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
