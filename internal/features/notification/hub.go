package notification

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Hub tracks open websocket connections per user and pushes freshly created
// notifications to them. Delivery is best effort; a dead connection is
// dropped on the first failed write.
type Hub struct {
	mu      sync.RWMutex
	clients map[string][]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string][]*websocket.Conn),
	}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = append(h.clients[userID], conn)
}

func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.clients[userID]
	for i, c := range conns {
		if c == conn {
			h.clients[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Push sends the notification to every open connection for the user.
func (h *Hub) Push(userID string, notification *Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.Unregister(userID, conn)
		}
	}
}
