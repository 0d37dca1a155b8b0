package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/ledger"
)

// LedgerChangeMessage announces that a user's ledger changed. Receivers
// reload from the store; the message carries no record payload.
type LedgerChangeMessage struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	ID        string    `json:"id,omitempty"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangeMessage(c ledger.Change) *LedgerChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerChangeMessage{
		UserID:    c.UserID,
		Kind:      string(c.Kind),
		Op:        string(c.Op),
		ID:        c.ID,
		Origin:    c.Origin,
		Timestamp: ts,
	}
}

// Change converts the message back into a ledger change.
func (m *LedgerChangeMessage) Change() ledger.Change {
	return ledger.Change{
		UserID: m.UserID,
		Kind:   ledger.Kind(m.Kind),
		Op:     ledger.Op(m.Op),
		ID:     m.ID,
		Origin: m.Origin,
		At:     m.Timestamp,
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
