// Package channel models the communication fabric between agents: typed
// channels with per-channel delivery latency, per-agent phones holding
// inboxes and contacts, and a router that owns end-to-end message flow.
package channel

import (
	"github.com/google/uuid"
)

// Message is one unit of communication. DeliveredStep stays nil while the
// message sits in a channel's pending queue.
type Message struct {
	ID            string            `json:"id"`
	SenderID      string            `json:"sender_id"`
	RecipientID   string            `json:"recipient_id"`
	Channel       string            `json:"channel"`
	Subject       string            `json:"subject,omitempty"`
	Content       string            `json:"content"`
	SentStep      int               `json:"sent_step"`
	DeliveredStep *int              `json:"delivered_step,omitempty"`
	Read          bool              `json:"read"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewMessage builds an undelivered message with a short unique id.
func NewMessage(senderID, recipientID, channelName, subject, content string, step int) *Message {
	return &Message{
		ID:          uuid.NewString()[:8],
		SenderID:    senderID,
		RecipientID: recipientID,
		Channel:     channelName,
		Subject:     subject,
		Content:     content,
		SentStep:    step,
	}
}

// Delivered reports whether the message has reached its recipient.
func (m *Message) Delivered() bool { return m.DeliveredStep != nil }

func (m *Message) markDelivered(step int) {
	s := step
	m.DeliveredStep = &s
}
