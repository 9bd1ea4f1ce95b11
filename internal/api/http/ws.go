package httpapi

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
)

// Hub tracks open viewer sockets per venue and nudges them to re-fetch when
// the menu changes. Viewers never send anything meaningful; the socket is a
// one-way refresh hint.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) add(venueSlug string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[venueSlug] == nil {
		h.clients[venueSlug] = make(map[*websocket.Conn]struct{})
	}
	h.clients[venueSlug][conn] = struct{}{}
}

func (h *Hub) remove(venueSlug string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[venueSlug], conn)
	if len(h.clients[venueSlug]) == 0 {
		delete(h.clients, venueSlug)
	}
}

// NotifyMenuUpdated implements service.RefreshNotifier.
func (h *Hub) NotifyMenuUpdated(venueSlug string) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[venueSlug]))
	for conn := range h.clients[venueSlug] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"menu_updated"}`)); err != nil {
			log.Printf("[menuforge] dropping slow viewer socket: %v", err)
			h.remove(venueSlug, conn)
			conn.Close(websocket.StatusPolicyViolation, "write timeout")
		}
		cancel()
	}
}

func (h *Handler) menuSocket(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	h.Hub.add(slug, conn)
	defer func() {
		h.Hub.remove(slug, conn)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// Drain until the viewer goes away; control frames are handled inside Read.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			return
		}
	}
}
