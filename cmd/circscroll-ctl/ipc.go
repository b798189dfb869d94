package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
)

// Wire types (duplicated from the daemon package for a standalone binary).

type motionData struct {
	Source string `json:"source"`
	DX     int16  `json:"dx"`
	DY     int16  `json:"dy"`
}

type resetTrackerData struct {
	Source string `json:"source"`
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ipcResponse is the daemon's reply to each line.
type ipcResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ipcClient keeps one connection open so a gesture can be streamed without
// reconnecting per sample.
type ipcClient struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func dialIPC(socketPath string) (*ipcClient, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	return &ipcClient{
		conn: conn,
		enc:  json.NewEncoder(conn), // Encode appends the newline delimiter
		dec:  json.NewDecoder(bufio.NewReader(conn)),
	}, nil
}

func (c *ipcClient) Close() error { return c.conn.Close() }

// send writes one envelope and waits for the daemon's reply.
func (c *ipcClient) send(env envelope) error {
	if err := c.enc.Encode(env); err != nil {
		return fmt.Errorf("send %s: %w", env.Type, err)
	}
	var resp ipcResponse
	if err := c.dec.Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	return nil
}

func (c *ipcClient) Motion(source string, dx, dy int16) error {
	return c.send(envelope{Type: "motion", Data: motionData{Source: source, DX: dx, DY: dy}})
}

func (c *ipcClient) ResetTracker(source string) error {
	return c.send(envelope{Type: "reset_tracker", Data: resetTrackerData{Source: source}})
}
