package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried on the sync queue.
const (
	TypeSync   = "sync"
	TypeDelete = "delete"
)

// MonthSyncMessage asks the worker to export (or remove) one month. It
// carries no budget data; the worker reads the month from the database and
// skips messages older than the stored version.
type MonthSyncMessage struct {
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthSyncMessage(key string, version int64) *MonthSyncMessage {
	return &MonthSyncMessage{Type: TypeSync, Key: key, Version: version, Timestamp: time.Now()}
}

func NewMonthDeleteMessage(key string, version int64) *MonthSyncMessage {
	return &MonthSyncMessage{Type: TypeDelete, Key: key, Version: version, Timestamp: time.Now()}
}

func (m *MonthSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthSyncMessageFromJSON decodes and validates a queue payload.
func MonthSyncMessageFromJSON(data []byte) (*MonthSyncMessage, error) {
	var msg MonthSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		msg.Type = TypeSync
	}
	if msg.Type != TypeSync && msg.Type != TypeDelete {
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.Key == "" {
		return nil, fmt.Errorf("message without month key")
	}
	return &msg, nil
}
