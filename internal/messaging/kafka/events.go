package kafka

import "time"

// EventType определяет тип события стока
type EventType string

const (
	// EventTypeStockChanged — агрегатный сток товара изменился.
	EventTypeStockChanged EventType = "stock.changed"
	// EventTypeStockDepleted — агрегатный сток товара достиг нуля.
	EventTypeStockDepleted EventType = "stock.depleted"
)

// Topics для Kafka
const (
	// TopicStockEvents — основной поток событий стока (low-stock алерты, аналитика).
	TopicStockEvents = "wf.stock.events"
)

// StockEvent представляет доменное событие стока
type StockEvent struct {
	EventType EventType `json:"event_type"`
	SKU       string    `json:"sku"`
	Aggregate int       `json:"aggregate"`
	// Source помечает инициатора мутации: pos, admin, checkout, import.
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStockChangedEvent создаёт событие изменения агрегатного стока
func NewStockChangedEvent(sku string, aggregate int, source string) *StockEvent {
	return &StockEvent{
		EventType: EventTypeStockChanged,
		SKU:       sku,
		Aggregate: aggregate,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// NewStockDepletedEvent создаёт событие исчерпания стока
func NewStockDepletedEvent(sku string, source string) *StockEvent {
	return &StockEvent{
		EventType: EventTypeStockDepleted,
		SKU:       sku,
		Aggregate: 0,
		Source:    source,
		Timestamp: time.Now(),
	}
}
