//go:build linux

package main

import (
	"bytes"
	"context"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// EVIOCGRAB = _IOW('E', 0x90, int)
const eviocgrab = 0x40044590

// grabDevice takes exclusive access to an evdev node so its motion is not
// also delivered to the desktop.
func grabDevice(dev inputDevice) error {
	if err := unix.IoctlSetInt(int(dev.File.Fd()), eviocgrab, 1); err != nil {
		return fmt.Errorf("EVIOCGRAB %s: %w", dev.Path, err)
	}
	return nil
}

// startInputReaders fans in every device through a single epoll loop.
func startInputReaders(ctx context.Context, devs []inputDevice, events chan<- deviceEvent, readErr chan<- error) {
	go readInputEventsEpoll(ctx, devs, events, readErr)
}

// readInputEventsEpoll reads from multiple input devices using epoll:
// one goroutine, woken by the kernel only when a device has data.
func readInputEventsEpoll(ctx context.Context, devs []inputDevice, events chan<- deviceEvent, readErr chan<- error) {
	if len(devs) == 0 {
		readErr <- fmt.Errorf("no input devices provided")
		return
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	byFd := make(map[int]inputDevice, len(devs))

	for _, dev := range devs {
		fd := int(dev.File.Fd())
		byFd[fd] = dev

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			readErr <- fmt.Errorf("epoll_ctl_add %s (fd=%d): %w", dev.Path, fd, err)
			return
		}
	}

	const (
		maxEvents = 32
		// Bounds how long a canceled ctx goes unnoticed while devices are idle.
		waitTimeoutMs = 250
	)
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize)
	reader := bytes.NewReader(buf)

	for {
		if ctx.Err() != nil {
			return
		}
		n, err := unix.EpollWait(epfd, epollEvents, waitTimeoutMs)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			dev := byFd[fd]

			// A hangup means the device was unplugged; treat it as fatal.
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- fmt.Errorf("device error/hangup: %s (fd=%d)", dev.Path, fd)
				return
			}

			if _, err := dev.File.Read(buf); err != nil {
				readErr <- fmt.Errorf("read from %s: %w", dev.Path, err)
				return
			}

			ev, err := decodeInputEvent(buf, reader)
			if err != nil {
				continue
			}

			if !forwardDeviceEvent(ctx, events, deviceEvent{Source: dev.Source, Device: dev.Path, Event: ev}) {
				return
			}
		}
	}
}
