package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"donation-platform/internal/models"
)

type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	PayerID string
}

// Hub fans notifications out to every open connection of a payer.
// Only the Run goroutine touches the clients map.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	notify     chan models.Notification
	done       chan struct{}
	stopOnce   sync.Once
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		notify:     make(chan models.Notification, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Notify queues n for delivery. It never blocks a request handler: when the
// queue is full or the hub is stopped the notification is dropped.
func (h *Hub) Notify(n models.Notification) {
	select {
	case h.notify <- n:
	case <-h.done:
	default:
		h.log.Warn("Notification queue full, dropping", zap.String("payer_id", n.PayerID))
	}
}

// Join registers c. It returns false once the hub is stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters c; a no-op after Stop.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Stop ends Run and closes every client's send channel.
// Calling it again is a no-op.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			set, ok := h.clients[client.PayerID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.PayerID] = set
			}
			set[client] = struct{}{}
			h.log.Debug("WebSocket client registered", zap.String("payer_id", client.PayerID))

		case client := <-h.Unregister:
			h.remove(client)

		case n := <-h.notify:
			set := h.clients[n.PayerID]
			if len(set) == 0 {
				continue
			}
			jsonData, err := json.Marshal(n)
			if err != nil {
				h.log.Error("Failed to marshal notification", zap.Error(err))
				continue
			}
			for client := range set {
				select {
				case client.Send <- jsonData:
				default:
					h.remove(client)
				}
			}

		case <-h.done:
			for _, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
			}
			h.clients = map[string]map[*Client]struct{}{}
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.PayerID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.PayerID)
	}
	h.log.Debug("WebSocket client unregistered", zap.String("payer_id", client.PayerID))
}
