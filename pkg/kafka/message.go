package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is a Kafka message plus the headers shared by all publishers.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSchemaVersion = "schema-version"
	HeaderSource        = "source"
	HeaderTimestamp     = "timestamp"
)

// NewMessage builds a message with a JSON-encoded payload, keyed for
// partition ordering (booking events key by car id so per-car order holds).
func NewMessage(key string, eventType string, payload any) (Message, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	now := time.Now()
	return Message{
		Key:       key,
		Value:     value,
		Timestamp: now,
		Headers: map[string]string{
			HeaderEventID:   uuid.NewString(),
			HeaderEventType: eventType,
			HeaderTimestamp: now.Format(time.RFC3339),
		},
	}, nil
}

func (m *Message) WithHeader(key, value string) *Message {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
	return m
}
