package model

import (
	"time"

	"github.com/google/uuid"
)

// StatusChangedEvent is emitted once per committed payment transition.
type StatusChangedEvent struct {
	EventID       uuid.UUID   `json:"event_id"`
	PaymentID     uuid.UUID   `json:"payment_id"`
	OrderID       uuid.UUID   `json:"order_id"`
	FromState     LocalState  `json:"from_state"`
	ToState       LocalState  `json:"to_state"`
	RemoteStatus  *StatusCode `json:"remote_status,omitempty"`
	TransactionID *string     `json:"transaction_id,omitempty"`
	Channel       Channel     `json:"channel"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
