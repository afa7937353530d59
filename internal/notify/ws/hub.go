package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"maintenance-cloud/internal/notify"
)

type outbound struct {
	equipmentID int // 0 broadcasts to every client
	payload     []byte
}

// Hub maintains the set of connected dashboard clients and pushes
// notification messages to them. Clients may subscribe to a single
// equipment id; equipment-scoped messages only reach that group.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	send       chan outbound
	logger     *zap.Logger
}

// NewHub constructs a hub. Run must be started for delivery to happen.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		send:       make(chan outbound, 256),
		logger:     logger,
	}
}

// Run pumps registrations and outbound messages until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.send:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message outbound) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if message.equipmentID != 0 && client.equipmentID != message.equipmentID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.outbox <- message.payload:
		default:
			// Slow consumer; disconnect rather than block the hub.
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.outbox)
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		close(client.outbox)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
}

func (h *Hub) enqueue(equipmentID int, message notify.Message) {
	payload, err := json.Marshal(map[string]any{"type": message.Type, "payload": message})
	if err != nil {
		h.logger.Warn("websocket payload marshal failed", zap.Error(err))
		return
	}
	select {
	case h.send <- outbound{equipmentID: equipmentID, payload: payload}:
	default:
		h.logger.Warn("websocket hub backlog full, dropping message")
	}
}

// Broadcast implements notify.Notifier.
func (h *Hub) Broadcast(_ context.Context, message notify.Message) {
	if h == nil {
		return
	}
	h.enqueue(0, message)
}

// BroadcastToEquipment implements notify.Notifier.
func (h *Hub) BroadcastToEquipment(_ context.Context, equipmentID int, message notify.Message) {
	if h == nil {
		return
	}
	h.enqueue(equipmentID, message)
}
