package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageVersion identifies the work-item schema for forward compatibility.
const MessageVersion = 1

// Message is one unit of analysis work handed from the API to the worker.
type Message struct {
	ReportID   string    `json:"report_id"`
	RequestID  string    `json:"request_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Version    int       `json:"version"`
}

// Encode serializes a message for transport.
func Encode(msg Message) (string, error) {
	if strings.TrimSpace(msg.ReportID) == "" {
		return "", fmt.Errorf("report_id is required")
	}
	if msg.Version == 0 {
		msg.Version = MessageVersion
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a transported message and validates its shape.
func Decode(body string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return Message{}, fmt.Errorf("decode queue message: %w", err)
	}
	if strings.TrimSpace(msg.ReportID) == "" {
		return Message{}, fmt.Errorf("queue message missing report_id")
	}
	return msg, nil
}
