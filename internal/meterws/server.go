// ABOUTME: WebSocket fan-out of subscribed Atlas parameter updates
// ABOUTME: Leases device connections and streams update frames to metering displays

package meterws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harper/atlas-control/internal/atlas"
	"github.com/harper/atlas-control/internal/jsonrpc"
	"github.com/harper/atlas-control/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // metering frames are read-only telemetry
	},
}

// UpdateFrame is one parameter change pushed to the browser.
type UpdateFrame struct {
	Device string      `json:"device"`
	Param  string      `json:"param"`
	Format string      `json:"format"`
	Value  interface{} `json:"value"`
	At     time.Time   `json:"at"`
}

// Server streams subscribed parameter updates over WebSocket. Clients
// connect with ?device=<name>&params=ZoneGain_0,ZoneGain_1[&fmt=pct].
type Server struct {
	manager  *atlas.Manager
	registry *registry.Registry
}

func NewServer(mgr *atlas.Manager, reg *registry.Registry) *Server {
	return &Server{manager: mgr, registry: reg}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("device")
	dev, ok := s.registry.Lookup(name)
	if !ok {
		http.Error(w, "unknown device", http.StatusNotFound)
		return
	}

	params := splitParams(r.URL.Query().Get("params"))
	if len(params) == 0 {
		http.Error(w, "params query parameter is required", http.StatusBadRequest)
		return
	}

	format := jsonrpc.Format(r.URL.Query().Get("fmt"))
	if format == "" {
		format = jsonrpc.FormatVal
	}
	if !format.Valid() {
		http.Error(w, "fmt must be val, pct, or str", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	s.handleConnection(conn, dev, params, format)
}

//nolint:funlen // subscription lifecycle is one linear flow
func (s *Server) handleConnection(conn *websocket.Conn, dev registry.Device, params []string, format jsonrpc.Format) {
	defer conn.Close()

	clientID := uuid.New().String()[:8]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := s.manager.Acquire(ctx, dev.Host, dev.TCPPort)
	if err != nil {
		log.Printf("[WS:%s] device %s unreachable: %v", clientID, dev.Name, err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "device unreachable"),
			time.Now().Add(time.Second))
		return
	}
	defer s.manager.Release(dev.Host, dev.TCPPort)

	updates := make(chan UpdateFrame, 64)
	subs := make([]*atlas.Subscription, 0, len(params))
	for _, p := range params {
		sub, err := client.Subscribe(ctx, p, format, func(param string, value interface{}, _ jsonrpc.Params) {
			frame := UpdateFrame{
				Device: dev.Name,
				Param:  param,
				Format: string(format),
				Value:  value,
				At:     time.Now(),
			}
			select {
			case updates <- frame:
			default:
				// Slow consumer: drop rather than stall the dispatch path.
			}
		})
		if sub != nil {
			subs = append(subs, sub)
		}
		if err != nil {
			log.Printf("[WS:%s] subscribe %s on %s: %v", clientID, p, dev.Name, err)
		}
	}
	defer func() {
		for _, sub := range subs {
			if err := client.Unsubscribe(context.Background(), sub); err != nil {
				log.Printf("[WS:%s] unsubscribe %s: %v", clientID, sub.Param(), err)
			}
		}
	}()

	log.Printf("[WS:%s] streaming %d params from %s (%d total leases)",
		clientID, len(subs), dev.Name, s.manager.Len())

	// Goroutine: updates channel -> WebSocket
	go func() {
		for {
			select {
			case frame := <-updates:
				if err := conn.WriteJSON(frame); err != nil {
					log.Printf("[WS:%s] write error: %v", clientID, err)
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Main loop: consume the WebSocket read side to detect close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("[WS:%s] client gone: %v", clientID, err)
			return
		}
	}
}

func splitParams(raw string) []string {
	out := make([]string, 0, 4)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
