package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/gorilla/websocket"
)

// ============================================================================
// circscroll-ctl - Command-line IPC Client
// ============================================================================
// Injects motion into the circscroll daemon and inspects its state.
//
// Usage:
//   circscroll-ctl motion trackpad 12 0
//   circscroll-ctl circle trackpad --turns 2 --ccw
//   circscroll-ctl reset pointer
//   circscroll-ctl status
//
// Negative positional values need a "--" separator:
//   circscroll-ctl motion trackpad -- -12 4
// ============================================================================

type Globals struct {
	Socket string `help:"Unix domain socket path of the daemon" default:"/tmp/circscroll.sock" type:"path"`
	WSURL  string `name:"ws-url" help:"State websocket URL of the daemon" default:"ws://127.0.0.1:3002/ws"`
}

type CLI struct {
	Globals

	Motion MotionCmd `cmd:"" help:"Inject one motion sample"`
	Circle CircleCmd `cmd:"" help:"Inject a synthetic circular gesture"`
	Reset  ResetCmd  `cmd:"" help:"Force a source's tracker back to inactive"`
	Status StatusCmd `cmd:"" help:"Print per-source tracker state and counters"`
}

type MotionCmd struct {
	Source string `arg:"" help:"Source name"`
	DX     int16  `arg:"" name:"dx" help:"Horizontal displacement"`
	DY     int16  `arg:"" name:"dy" help:"Vertical displacement"`
}

func (c *MotionCmd) Run(g *Globals) error {
	client, err := dialIPC(g.Socket)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Motion(c.Source, c.DX, c.DY); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

type CircleCmd struct {
	Source   string        `arg:"" help:"Source name"`
	Steps    int           `help:"Samples per turn" default:"32"`
	Radius   int           `help:"Sample magnitude" default:"20"`
	Turns    float64       `help:"Number of turns" default:"1"`
	CCW      bool          `name:"ccw" help:"Rotate the other way"`
	Interval time.Duration `help:"Delay between samples" default:"8ms"`
}

func (c *CircleCmd) Run(g *Globals) error {
	samples, err := circleSamples(c.Steps, c.Radius, c.Turns, c.CCW)
	if err != nil {
		return err
	}

	client, err := dialIPC(g.Socket)
	if err != nil {
		return err
	}
	defer client.Close()

	for i, s := range samples {
		if i > 0 && c.Interval > 0 {
			time.Sleep(c.Interval)
		}
		if err := client.Motion(c.Source, s.DX, s.DY); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}
	fmt.Printf("ok (%d samples)\n", len(samples))
	return nil
}

type ResetCmd struct {
	Source string `arg:"" help:"Source name"`
}

func (c *ResetCmd) Run(g *Globals) error {
	client, err := dialIPC(g.Socket)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ResetTracker(c.Source); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

type StatusCmd struct {
	Timeout time.Duration `help:"How long to wait for the daemon" default:"2s"`
}

// sourceStatus is the subset of the daemon's snapshot this tool prints.
type sourceStatus struct {
	Name        string `json:"name"`
	Gain        int32  `json:"gain"`
	DeadZoneSq  int32  `json:"dead_zone_sq"`
	Active      bool   `json:"active"`
	PrevAngle   uint16 `json:"prev_angle"`
	Samples     uint64 `json:"samples"`
	Suppressed  uint64 `json:"suppressed"`
	Emitted     uint64 `json:"emitted"`
	EmitErrors  uint64 `json:"emit_errors"`
	ScrollTotal int64  `json:"scroll_total"`
}

type stateInit struct {
	Type string `json:"type"`
	Data struct {
		Sources        []sourceStatus `json:"sources"`
		UnknownSamples uint64         `json:"unknown_samples"`
	} `json:"data"`
}

func (c *StatusCmd) Run(g *Globals) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.Timeout}
	conn, _, err := dialer.Dial(g.WSURL, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", g.WSURL, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(c.Timeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	var msg stateInit
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	if msg.Type != "state_init" {
		return fmt.Errorf("unexpected first message %q", msg.Type)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tGAIN\tDEAD ZONE\tACTIVE\tANGLE\tSAMPLES\tSUPPRESSED\tEMITTED\tERRORS\tTOTAL")
	for _, s := range msg.Data.Sources {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.Name, s.Gain, s.DeadZoneSq, s.Active, s.PrevAngle,
			s.Samples, s.Suppressed, s.Emitted, s.EmitErrors, s.ScrollTotal)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if msg.Data.UnknownSamples > 0 {
		fmt.Printf("\n%d samples addressed to unknown sources\n", msg.Data.UnknownSamples)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("circscroll-ctl"),
		kong.Description("Control the circscroll daemon via IPC"),
		kong.UsageOnError(),
		// Flag defaults may come from YAML; explicit flags override them.
		kong.Configuration(kongyaml.Loader, "/etc/circscroll/ctl.yaml", "~/.config/circscroll/ctl.yaml"),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
