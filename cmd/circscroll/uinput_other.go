//go:build !linux

package main

import "errors"

func newUinputSink(name string) (ScrollSink, error) {
	return nil, errors.New("uinput output is only supported on linux")
}
