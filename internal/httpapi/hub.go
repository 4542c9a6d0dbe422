package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/events"
)

// wsChannels is the fixed set of channels a websocket client may subscribe to.
var wsChannels = map[string]bool{
	"metrics": true,
	"packets": true,
	"alerts":  true,
	"devices": true,
}

// wsMessage is the envelope every channel's payload travels in.
type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// hub fans channel messages out to connected WebSocket clients, each
// subscribed to a subset of wsChannels. One hub serves the whole process;
// per-client state lives in wsClient.
type hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub(log *zap.Logger) *hub {
	return &hub{log: log, clients: make(map[*wsClient]struct{})}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

func (h *hub) broadcast(channel string, msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(channel) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// slow client: drop rather than block the publisher, matching
			// capture.Bus's own slow-subscriber-drops-for-itself policy.
		}
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage

	mu   sync.Mutex
	subs map[string]bool
}

func newWSClient(conn *websocket.Conn, channels []string) *wsClient {
	subs := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if wsChannels[ch] {
			subs[ch] = true
		}
	}
	if len(subs) == 0 {
		for ch := range wsChannels {
			subs[ch] = true
		}
	}
	return &wsClient{conn: conn, send: make(chan wsMessage, 64), subs: subs}
}

func (c *wsClient) wants(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[channel]
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound frames beyond the initial subscription (the
// client's pongs and any stray text frames) until the connection closes.
func (c *wsClient) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	channels := r.URL.Query()["channel"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWSClient(conn, channels)
	s.hub.add(client)
	defer func() {
		s.hub.remove(client)
		_ = conn.Close()
	}()

	go client.writeLoop()
	client.readLoop()
}

// bridgeBusesToHub subscribes the hub to the packet bus and event bus so
// every WebSocket client receives live packets/alerts/metrics/devices
// without the REST handlers needing to know about WebSocket at all.
// It returns a function that tears both subscriptions down.
func (s *Server) bridgeBusesToHub() func() {
	packetCh, unsubPackets := s.ctx.PacketBus.Subscribe(256)
	go func() {
		for evt := range packetCh {
			s.hub.broadcast("packets", wsMessage{Type: "packet", Payload: packetEventView(evt)})
		}
	}()

	unsubAlerts, _ := s.ctx.EventBus.Subscribe("alert", events.PriorityNormal, func(evt events.Event) {
		s.hub.broadcast("alerts", wsMessage{Type: "alert", Payload: evt})
	})
	unsubDeviceEvt, _ := s.ctx.EventBus.Subscribe("device_state_changed", events.PriorityNormal, func(evt events.Event) {
		s.hub.broadcast("devices", wsMessage{Type: "device_state_changed", Payload: evt})
	})

	stopMetrics := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopMetrics:
				return
			case <-ticker.C:
				s.hub.broadcast("metrics", wsMessage{Type: "metrics", Payload: s.metricsSnapshot()})
			}
		}
	}()

	return func() {
		unsubPackets()
		if unsubAlerts != nil {
			unsubAlerts()
		}
		if unsubDeviceEvt != nil {
			unsubDeviceEvt()
		}
		close(stopMetrics)
	}
}

func packetEventView(evt capture.PacketEvent) map[string]interface{} {
	return map[string]interface{}{
		"seq":       evt.Seq,
		"timestamp": evt.Timestamp,
		"direction": evt.Direction,
		"src_addr":  evt.SrcAddr,
		"src_port":  evt.SrcPort,
		"dst_addr":  evt.DstAddr,
		"dst_port":  evt.DstPort,
		"protocol":  evt.Protocol,
		"info":      evt.Info,
	}
}
