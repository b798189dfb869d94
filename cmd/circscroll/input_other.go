//go:build !linux

package main

import (
	"context"
	"errors"
)

func grabDevice(dev inputDevice) error {
	return errors.New("exclusive grab is only supported on linux")
}

// startInputReaders falls back to one blocking reader goroutine per device.
func startInputReaders(ctx context.Context, devs []inputDevice, events chan<- deviceEvent, readErr chan<- error) {
	for _, dev := range devs {
		go readInputEvents(ctx, dev, events, readErr)
	}
}
