package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Ledger operations carried by LedgerChangedMessage.
const (
	OpAppend = "append"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerChangedMessage announces a committed ledger mutation. It carries
// no transaction data: consumers reload the ledger and use Version to
// skip stale notifications. Versions restart with each server process,
// so they only compare within one Source.
type LedgerChangedMessage struct {
	Source    string    `json:"source"`
	Op        string    `json:"op"`
	Seq       int       `json:"seq"`
	Count     int       `json:"count"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(source, op string, seq, count int, version uint64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Source:    source,
		Op:        op,
		Seq:       seq,
		Count:     count,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and sanity-checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case OpAppend, OpUpdate, OpDelete:
	default:
		return nil, errors.New("unknown ledger operation " + msg.Op)
	}
	return &msg, nil
}
