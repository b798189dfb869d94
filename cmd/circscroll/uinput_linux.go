//go:build linux

package main

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// uinput ioctls (from <linux/uinput.h>)
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
)

const uinputPath = "/dev/uinput"

// uinputSink emits scroll as REL_WHEEL events on a virtual mouse.
type uinputSink struct {
	mu sync.Mutex
	fd int
}

// newUinputSink creates the virtual device. The device advertises
// REL_X/REL_Y and BTN_LEFT as well so userspace classifies it as a mouse.
func newUinputSink(name string) (*uinputSink, error) {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}

	setup := []struct {
		req   uint
		value int
		what  string
	}{
		{uiSetEvBit, EV_KEY, "UI_SET_EVBIT EV_KEY"},
		{uiSetKeyBit, BTN_LEFT, "UI_SET_KEYBIT BTN_LEFT"},
		{uiSetEvBit, EV_REL, "UI_SET_EVBIT EV_REL"},
		{uiSetRelBit, REL_X, "UI_SET_RELBIT REL_X"},
		{uiSetRelBit, REL_Y, "UI_SET_RELBIT REL_Y"},
		{uiSetRelBit, REL_WHEEL, "UI_SET_RELBIT REL_WHEEL"},
		{uiSetRelBit, REL_HWHEEL, "UI_SET_RELBIT REL_HWHEEL"},
	}
	for _, s := range setup {
		if err := unix.IoctlSetInt(fd, s.req, s.value); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("%s: %w", s.what, err)
		}
	}

	if _, err := unix.Write(fd, encodeUinputUserDev(name)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("write uinput_user_dev: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", err)
	}

	return &uinputSink{fd: fd}, nil
}

func (s *uinputSink) EmitScroll(source string, value int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd < 0 {
		return errSinkClosed{}
	}
	if _, err := unix.Write(s.fd, wheelFrame(value)); err != nil {
		return fmt.Errorf("write wheel frame: %w", err)
	}
	return nil
}

func (s *uinputSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd < 0 {
		return nil
	}
	destroyErr := unix.IoctlSetInt(s.fd, uiDevDestroy, 0)
	closeErr := unix.Close(s.fd)
	s.fd = -1
	if destroyErr != nil {
		return fmt.Errorf("UI_DEV_DESTROY: %w", destroyErr)
	}
	return closeErr
}
