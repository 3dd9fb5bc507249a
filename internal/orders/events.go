package orders

import (
	"encoding/json"
	"time"
)

const (
	EventFulfillmentCompleted = "FulfillmentCompleted"
	EventStockInsufficient    = "StockInsufficient"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type StockShortDetail struct {
	InventoryItemID string `json:"inventory_item_id"`
	Requested       string `json:"requested"`
	Available       string `json:"available"`
}

type StockInsufficientPayload struct {
	OrderID   string             `json:"order_id"`
	Reference string             `json:"reference"`
	Reason    string             `json:"reason"` // OUT_OF_STOCK
	Details   []StockShortDetail `json:"details,omitempty"`
}
