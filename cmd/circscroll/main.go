package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("circscroll v%s\n", version)
	fmt.Println("Circular-gesture scroll daemon for Linux pointing devices")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  circscroll [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads relative motion from evdev devices, tracks circular gestures per")
	fmt.Println("  source and emits the rotation as wheel events on a virtual uinput mouse.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -source name:gain[:dev1,dev2]")
	fmt.Println("        Input source (repeatable; replaces the configured source list)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -http-port int")
	fmt.Printf("        HTTP port for /healthz and the state websocket, 0 disables (default %d)\n", defaultHTTPPort)
	fmt.Println()
	fmt.Println("  -uinput")
	fmt.Println("        Emit wheel events on a virtual uinput device (default true)")
	fmt.Println()
	fmt.Println("  -uinput-name string")
	fmt.Printf("        Name of the virtual device (default %q)\n", defaultUinputName)
	fmt.Println()
	fmt.Println("  -invert")
	fmt.Println("        Invert scroll direction")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Default pointer + trackpad sources")
	fmt.Println("  circscroll")
	fmt.Println()
	fmt.Println("  # Single grabbed trackball, configured from file")
	fmt.Println("  circscroll -config ~/.config/circscroll.yaml")
	fmt.Println()
	fmt.Println("  # Dry run: log scroll values instead of creating a device")
	fmt.Println("  circscroll -source ball:10:/dev/input/event5 -uinput=false -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input devices and write access to /dev/uinput")
	fmt.Println("    (run as root or add the user to the 'input' group with a uinput udev rule)")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var sources sourceFlags
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		ipcSocketPath = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		httpPort      = flag.Int("http-port", defaultHTTPPort, "HTTP port for /healthz and the state websocket (0 disables)")
		uinputEnabled = flag.Bool("uinput", true, "Emit wheel events on a virtual uinput device")
		uinputName    = flag.String("uinput-name", defaultUinputName, "Name of the virtual uinput device")
		invert        = flag.Bool("invert", false, "Invert scroll direction")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		_             = flag.Bool("version", false, "Print version and exit")
		_             = flag.Bool("help", false, "Print help message")
	)
	flag.Var(&sources, "source", "Input source name:gain[:dev1,dev2] (repeatable)")

	flag.Usage = printUsage
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	// Only explicitly set flags override the file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	overrides := FlagOverrides{Sources: sources}
	if set["ipc-socket"] {
		overrides.IPCSocketPath = ipcSocketPath
	}
	if set["http-port"] {
		overrides.HTTPPort = httpPort
	}
	if set["uinput"] {
		overrides.UinputEnabled = uinputEnabled
	}
	if set["uinput-name"] {
		overrides.UinputName = uinputName
	}
	if set["invert"] {
		overrides.Invert = invert
	}
	if set["log-level"] {
		overrides.LogLevel = logLevelStr
	}
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("circscroll stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the daemon together and blocks until shutdown.
func run(cfg Config, logger *slog.Logger) error {
	devs, err := openSourceDevices(cfg.Sources, logger)
	if err != nil {
		return err
	}
	defer closeDevices(devs)

	sink, err := openSink(cfg.Output, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("closing scroll sink", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	events := make(chan Event, eventQueueSize)
	state := newDaemonState(cfg.Sources)

	var broadcasts chan StateBroadcast
	if cfg.HTTP.Port != 0 {
		broadcasts = make(chan StateBroadcast, broadcastQueueSize)

		ws := NewServer(logger, events, ServerConfig{})
		mux := newHTTPMux(ws, cfg.HTTP.WSPath)

		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Port, mux, logger)
		})
	}

	g.Go(func() error {
		return runDaemon(gctx, events, sink, state, broadcasts, logger)
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	if len(devs) > 0 {
		raw := make(chan deviceEvent, eventQueueSize)
		readErr := make(chan error, len(devs))
		startInputReaders(gctx, devs, raw, readErr)

		g.Go(func() error {
			return translateInput(gctx, raw, readErr, events)
		})
	}

	logger.Debug("starting circscroll", "version", version)
	for _, src := range cfg.Sources {
		sc := src.ScrollConfig()
		logger.Info("source",
			"source", src.Name,
			"devices", src.Devices,
			"gain", sc.Gain,
			"dead_zone_sq", sc.DeadZoneSq,
			"grab", src.Grab)
	}
	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"http_port", cfg.HTTP.Port,
		"uinput", cfg.Output.Uinput.Enabled,
		"invert", cfg.Output.Invert)

	err = g.Wait()
	if ctx.Err() != nil {
		logger.Info("shutting down")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openSourceDevices opens (and optionally grabs) every configured device.
func openSourceDevices(sources []SourceConfig, logger *slog.Logger) ([]inputDevice, error) {
	var devs []inputDevice
	for _, src := range sources {
		for _, path := range src.Devices {
			path = ExpandPath(path)
			f, err := os.Open(path)
			if err != nil {
				closeDevices(devs)
				logger.Error("failed to open input device", "source", src.Name, "device", path, "error", err,
					"tip", "run as root or add user to 'input' group")
				return nil, fmt.Errorf("open %s: %w", path, err)
			}
			dev := inputDevice{Source: src.Name, Path: path, File: f}
			devs = append(devs, dev)

			if src.Grab {
				if err := grabDevice(dev); err != nil {
					closeDevices(devs)
					return nil, err
				}
				logger.Info("grabbed input device", "source", src.Name, "device", path)
			}
		}
	}
	return devs, nil
}

func closeDevices(devs []inputDevice) {
	for _, d := range devs {
		_ = d.File.Close()
	}
}

// openSink picks the output: a uinput virtual wheel or the log.
func openSink(out OutputConfig, logger *slog.Logger) (ScrollSink, error) {
	var sink ScrollSink
	if out.Uinput.Enabled {
		u, err := newUinputSink(out.Uinput.Name)
		if err != nil {
			return nil, fmt.Errorf("create uinput device: %w", err)
		}
		logger.Info("virtual wheel created", "name", out.Uinput.Name)
		sink = u
	} else {
		sink = newLogSink(logger)
	}
	if out.Invert {
		sink = invertSink{ScrollSink: sink}
	}
	return sink, nil
}
