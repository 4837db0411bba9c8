// Package domain contains core concepts of the messaging relay.
// This file defines Message events and related rules.
// Messages are immutable after creation; the Delivered flag is fixed
// at send time from the receiver's presence and never mutated afterwards.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one direct message between two users.
type Message struct {
	ID        uuid.UUID // unique identifier
	Sender    string
	Receiver  string
	Content   string
	Timestamp time.Time
	Delivered bool
}

// NewMessage builds a Message for a fresh relay attempt. The sender is the
// authenticated identity of the connection, never taken from the payload.
func NewMessage(sender, receiver, content string, delivered bool) Message {
	return Message{
		ID:        uuid.New(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Delivered: delivered,
	}
}
