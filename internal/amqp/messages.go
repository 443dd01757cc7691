package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SnapshotMessage announces that a session's table reached a new version.
// The worker loads the snapshot itself; the message carries no table data.
type SnapshotMessage struct {
	SessionID string    `json:"session_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotMessage creates a message stamped with the current time
func NewSnapshotMessage(sessionID string, version int64) *SnapshotMessage {
	return &SnapshotMessage{
		SessionID: sessionID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotMessageFromJSON decodes and validates a message body
func SnapshotMessageFromJSON(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SessionID == "" || msg.Version < 1 {
		return nil, errors.New("snapshot message requires session_id and a positive version")
	}
	return &msg, nil
}
