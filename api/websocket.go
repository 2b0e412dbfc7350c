package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one item on the /live feed: a region transition or a LOS
// lifecycle change, the operational signals spec.md §4.4 and §4.7 produce.
type Event struct {
	Kind string      `json:"kind"` // "region_transition" or "los"
	Data interface{} `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only telemetry consumed by operator tooling, not a
	// browser page served cross-origin from untrusted sites.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// hub fans Event values out to every connected /live client. A slow or
// dead client is dropped rather than allowed to block the broadcast.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
	logger  *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{clients: make(map[*websocket.Conn]chan Event), logger: logger}
}

func (h *hub) add(conn *websocket.Conn) chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast delivers ev to every connected client, dropping it for any
// client whose outgoing buffer is already full.
func (h *hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.logger.Printf("api: dropping event for slow /live client %s", conn.RemoteAddr())
		}
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("api: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := h.add(conn)
	defer h.remove(conn)

	// Drain and discard client reads so a closed/broken connection is
	// detected promptly (gorilla/websocket requires reads to notice close
	// frames and respect read deadlines).
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
