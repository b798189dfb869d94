package main

import (
	"log/slog"
	"time"
)

// runEffect executes a single reducer-emitted Command against the sink and
// reports the outcome via onEvent.
//
// It must never call Reduce() directly; the daemon loop is responsible for
// sequencing: Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(
	sink ScrollSink,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdEmitScroll:
		if sink == nil {
			onEvent(ScrollEmitFailed{Command: cmd, Err: errNoSink{}, At: now})
			return
		}
		if err := sink.EmitScroll(c.Source, c.Value); err != nil {
			logger.Error("emit scroll failed", "error", err, "source", c.Source, "value", c.Value)
			onEvent(ScrollEmitFailed{Command: cmd, Err: err, At: now})
			return
		}
		onEvent(ScrollEmitted{Source: c.Source, Value: c.Value, At: now})

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the daemon loop on a slow requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(ScrollEmitFailed{Command: cmd, Err: errUnknownCommand{cmd: cmd}, At: now})
	}
}

// errNoSink indicates the daemon was asked to emit scroll without a sink.
type errNoSink struct{}

func (errNoSink) Error() string { return "no scroll sink" }

// errSinkClosed is returned by sinks used after Close.
type errSinkClosed struct{}

func (errSinkClosed) Error() string { return "scroll sink closed" }

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
