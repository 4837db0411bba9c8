package domain

import (
	"time"
)

// WireMessage is the JSON document exchanged with clients over the
// websocket and the REST history endpoint. Field names are part of the
// public contract and must not change.
//
// On the inbound path only Receiver and Content are honored; Sender and
// Timestamp are always overwritten by the relay.
type WireMessage struct {
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver" validate:"required"`
	Content       string `json:"content" validate:"required"`
	Timestamp     string `json:"timestamp"`
	ReceiveStatus bool   `json:"receive_status"`
}

// ToWire converts a Message to its wire document. Timestamps travel as
// RFC 3339 strings in UTC.
func ToWire(m Message) WireMessage {
	return WireMessage{
		Sender:        m.Sender,
		Receiver:      m.Receiver,
		Content:       m.Content,
		Timestamp:     m.Timestamp.UTC().Format(time.RFC3339Nano),
		ReceiveStatus: m.Delivered,
	}
}
