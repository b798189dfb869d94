package main

// Linux input event types and codes (from <linux/input-event-codes.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02

	SYN_REPORT  = 0x00
	SYN_DROPPED = 0x03

	REL_X      = 0x00
	REL_Y      = 0x01
	REL_HWHEEL = 0x06
	REL_WHEEL  = 0x08

	// BTN_LEFT marks the virtual device as a mouse for libinput.
	BTN_LEFT = 0x110
)

// Defaults
const (
	defaultIPCSocketPath  = "/tmp/circscroll.sock"
	defaultHTTPPort       = 3002
	defaultWSPath         = "/ws"
	defaultUinputName     = "circscroll virtual wheel"
	defaultPointerDevice  = "/dev/input/event5"
	defaultTrackpadDevice = "/dev/input/event6"

	// Event bus capacity between input readers / IPC and the daemon loop.
	eventQueueSize = 256

	// Broadcast queue capacity between the daemon loop and the WS broadcaster.
	broadcastQueueSize = 256

	// uinput_user_dev name field is 80 bytes including the terminating NUL.
	uinputMaxNameLen = 79
)
