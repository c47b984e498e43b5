package facebook

import "encoding/json"

// Webhook delivery wire format. Only the fields the relay consumes are
// modelled; everything else in the batch is ignored.

// WebhookPayload is one POSTed event batch.
type WebhookPayload struct {
	Object string         `json:"object"` // "page" for page subscriptions
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the messaging events of one page.
type WebhookEntry struct {
	ID        string           `json:"id"` // pageId
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single message, delivery receipt, or read receipt.
type MessagingEvent struct {
	Sender    Participant     `json:"sender"`
	Recipient Participant     `json:"recipient"`
	Timestamp int64           `json:"timestamp"` // Unix millis
	Message   *EventMessage   `json:"message,omitempty"`
	Delivery  json.RawMessage `json:"delivery,omitempty"`
	Read      json.RawMessage `json:"read,omitempty"`
}

// Participant identifies one side of a messaging event.
type Participant struct {
	ID string `json:"id"`
}

// EventMessage is the message part of a messaging event. IsEcho marks
// messages sent by the page itself, which the relay must not re-ingest.
type EventMessage struct {
	MID      string `json:"mid"`
	Text     string `json:"text"`
	IsEcho   bool   `json:"is_echo"`
	ThreadID string `json:"thread_id,omitempty"`
}
