package notify

import (
	"context"
	"time"
)

// Message is a notification pushed to dashboard/alerting subscribers.
type Message struct {
	Type        string    `json:"type"`
	EquipmentID int       `json:"equipment_id,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier delivers messages to subscribers. Delivery is best-effort and
// fire-and-forget; implementations log failures instead of returning them.
type Notifier interface {
	Broadcast(ctx context.Context, message Message)
	BroadcastToEquipment(ctx context.Context, equipmentID int, message Message)
}

// MultiNotifier fans a message out to several notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier constructs a fan-out notifier, skipping nil entries.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	var kept []Notifier
	for _, notifier := range notifiers {
		if notifier != nil {
			kept = append(kept, notifier)
		}
	}
	return &MultiNotifier{notifiers: kept}
}

// Broadcast implements Notifier.
func (m *MultiNotifier) Broadcast(ctx context.Context, message Message) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		notifier.Broadcast(ctx, message)
	}
}

// BroadcastToEquipment implements Notifier.
func (m *MultiNotifier) BroadcastToEquipment(ctx context.Context, equipmentID int, message Message) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		notifier.BroadcastToEquipment(ctx, equipmentID, message)
	}
}

// NopNotifier discards all messages.
type NopNotifier struct{}

// Broadcast implements Notifier.
func (NopNotifier) Broadcast(context.Context, Message) {}

// BroadcastToEquipment implements Notifier.
func (NopNotifier) BroadcastToEquipment(context.Context, int, Message) {}
