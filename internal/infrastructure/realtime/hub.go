package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Message types pushed to gallery viewers
const (
	MsgPhotoAdded    = "photo.added"
	MsgPhotoDeleted  = "photo.deleted"
	MsgUploadsClosed = "uploads.closed"

	// event đã bị xóa, hub ngắt mọi viewer sau khi gửi message này
	MsgEventExpired = "event.expired"
)

// Message là payload gửi tới websocket clients của một event
type Message struct {
	Type      string          `json:"type"`
	EventCode string          `json:"event_code"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Hub giữ danh sách clients theo guest code và broadcast messages tới họ
type Hub struct {
	clients    map[string]map[*Client]struct{} // guest code -> clients
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed khi Run return
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run xử lý register/unregister/broadcast cho tới khi ctx bị cancel
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.eventCode] == nil {
				h.clients[client.eventCode] = make(map[*Client]struct{})
			}
			h.clients[client.eventCode][client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			payload, err := json.Marshal(message)
			if err != nil {
				log.Error().Err(err).Str("type", message.Type).Msg("[REALTIME] Failed to marshal message")
				continue
			}

			h.mu.Lock()
			for client := range h.clients[message.EventCode] {
				select {
				case client.send <- payload:
				default:
					// client quá chậm, ngắt kết nối
					h.removeLocked(client)
				}
			}
			if message.Type == MsgEventExpired {
				// writePump gửi hết message còn trong buffer rồi mới gửi close frame
				for client := range h.clients[message.EventCode] {
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// removeLocked yêu cầu h.mu đang được giữ
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.eventCode]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.eventCode)
	}
}

// Publish không block: message bị drop khi buffer đầy
func (h *Hub) Publish(eventCode, msgType string, payload any) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("type", msgType).Msg("[REALTIME] Failed to marshal payload")
			return
		}
		data = b
	}

	msg := &Message{Type: msgType, EventCode: eventCode, Data: data, Timestamp: time.Now().UTC()}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Str("type", msgType).Str("event_code", eventCode).Msg("[REALTIME] Broadcast buffer full, message dropped")
	}
}

// ClientCount trả về số viewer đang kết nối vào một event
func (h *Hub) ClientCount(eventCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventCode])
}
