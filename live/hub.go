// Package live pushes slot changes to browsers watching a restaurant.
package live

import (
	"log"
	"net/http"
	"sync"
	"time"

	"tablebook/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const writeWait = 5 * time.Second

type Hub struct {
	upgrader    websocket.Upgrader
	mu          sync.Mutex
	subscribers map[string][]*websocket.Conn
}

// NewHub accepts websocket upgrades from the given origins; "*" allows any.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		subscribers: make(map[string][]*websocket.Conn),
	}
}

// GET /ws/restaurants/:id
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Printf("[Live] upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.subscribers[key] = append(h.subscribers[key], conn)
	h.mu.Unlock()
	if username := utils.GetUsernameFromRequest(r); username != "" {
		log.Printf("[Live] %s watching restaurant=%s", username, key)
	}

	for {
		// keeps the connection alive until the client disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(key, conn)
	conn.Close()
}

func (h *Hub) remove(key string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.subscribers[key]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	if len(newList) == 0 {
		delete(h.subscribers, key)
		return
	}
	h.subscribers[key] = newList
}

// Broadcast sends payload to every subscriber of the restaurant, dropping
// connections that fail.
func (h *Hub) Broadcast(restaurantID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.subscribers[restaurantID]
	newList := conns[:0]
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}
	h.subscribers[restaurantID] = newList
}

// Subscribers reports how many connections watch the restaurant.
func (h *Hub) Subscribers(restaurantID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[restaurantID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, conns := range h.subscribers {
		for _, conn := range conns {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			conn.Close()
		}
		delete(h.subscribers, key)
	}
}
