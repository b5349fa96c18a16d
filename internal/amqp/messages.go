package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
)

// TransactionEvent announces a committed change to one transaction.
// It carries identifiers only; consumers read the record from the store.
type TransactionEvent struct {
	Kind      EventKind `json:"kind"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, id, userID string) *TransactionEvent {
	return &TransactionEvent{
		Kind:      kind,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks a message body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &msg, nil
}
