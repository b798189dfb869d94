package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// message is the daemon's WS envelope.
type message struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

type scrollData struct {
	Source string `json:"source"`
	Value  int32  `json:"value"`
	Delta  int32  `json:"delta"`
	Frames int    `json:"frames"`
}

type trackerStateData struct {
	Source string `json:"source"`
	Active bool   `json:"active"`
}

type sourceSnapshot struct {
	Name        string `json:"name"`
	Gain        int32  `json:"gain"`
	DeadZoneSq  int32  `json:"dead_zone_sq"`
	Active      bool   `json:"active"`
	ScrollTotal int64  `json:"scroll_total"`
}

type snapshot struct {
	Sources []sourceSnapshot `json:"sources"`
}

// printer turns WS messages into one-line summaries and keeps a running
// scroll total per source.
type printer struct {
	totals map[string]int64
}

func newPrinter() *printer {
	return &printer{totals: make(map[string]int64)}
}

func (p *printer) format(raw []byte) string {
	var m message
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("[TEXT] %s", raw)
	}

	switch m.Type {
	case "state_init":
		var s snapshot
		if err := json.Unmarshal(m.Data, &s); err != nil {
			return fmt.Sprintf("[STATE] undecodable: %v", err)
		}
		parts := make([]string, 0, len(s.Sources))
		for _, src := range s.Sources {
			p.totals[src.Name] = src.ScrollTotal
			parts = append(parts, fmt.Sprintf("%s(gain=%d dz=%d active=%t total=%d)",
				src.Name, src.Gain, src.DeadZoneSq, src.Active, src.ScrollTotal))
		}
		return "[STATE] " + strings.Join(parts, " ")

	case "scroll":
		var s scrollData
		if err := json.Unmarshal(m.Data, &s); err != nil {
			return fmt.Sprintf("[SCROLL] undecodable: %v", err)
		}
		p.totals[s.Source] += int64(s.Value)
		return fmt.Sprintf("[SCROLL] %-10s %+6d (delta %+5d, %d frames) total %d",
			s.Source, s.Value, s.Delta, s.Frames, p.totals[s.Source])

	case "tracker_state":
		var s trackerStateData
		if err := json.Unmarshal(m.Data, &s); err != nil {
			return fmt.Sprintf("[TRACKER] undecodable: %v", err)
		}
		state := "INACTIVE"
		if s.Active {
			state = "ACTIVE"
		}
		return fmt.Sprintf("[TRACKER] %-10s %s", s.Source, state)

	default:
		return fmt.Sprintf("[%s] %s", strings.ToUpper(m.Type), m.Data)
	}
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws", "circscroll state websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON messages")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Protects concurrent writes (pings vs. close).
	var writeMu sync.Mutex

	// The daemon pings every 20s; answer with pongs and keep our own deadline.
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	p := newPrinter()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(msg))
				continue
			}
			if *raw {
				fmt.Println(string(msg))
				continue
			}
			fmt.Println(p.format(msg))
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}
