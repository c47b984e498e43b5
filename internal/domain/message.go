package domain

import "time"

// PlatformFacebook tags records relayed from the Facebook messaging platform.
const PlatformFacebook = "Facebook"

// Message is one relayed inbound chat message. Append-only:
// exactly one record is written per inbound webhook event.
// PK: account_id, SK: message_id (ULID, sortable by arrival time).
type Message struct {
	AccountID         string    `json:"account_id" dynamodbav:"account_id"`
	MessageID         string    `json:"id" dynamodbav:"message_id"`
	ConversationID    string    `json:"conversation_id" dynamodbav:"conversation_id"`
	Text              string    `json:"text" dynamodbav:"text"`
	// IsFromUser is true for messages authored by the end user, false for
	// the page's own replies.
	IsFromUser        bool      `json:"is_from_user" dynamodbav:"is_from_user"`
	Platform          string    `json:"platform" dynamodbav:"platform"`
	SenderID          string    `json:"sender_id" dynamodbav:"sender_id"`
	SenderName        string    `json:"sender_name" dynamodbav:"sender_name"`
	FacebookMessageID string    `json:"facebook_message_id,omitempty" dynamodbav:"facebook_message_id"`
	PageID            string    `json:"page_id" dynamodbav:"page_id"`
	CreatedAt         time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Conversation is the aggregate state of one thread, merged on every inbound
// message. UnreadCount only grows here — resetting it is the chat client's
// concern, not this system's.
// PK: account_id, SK: conversation_id.
type Conversation struct {
	AccountID      string    `json:"account_id" dynamodbav:"account_id"`
	ConversationID string    `json:"conversation_id" dynamodbav:"conversation_id"`
	ContactName    string    `json:"contact_name" dynamodbav:"contact_name"`
	LastMessage    string    `json:"last_message" dynamodbav:"last_message"`
	UnreadCount    int       `json:"unread_count" dynamodbav:"unread_count"`
	LastUpdate     time.Time `json:"last_update" dynamodbav:"last_update"`
	Platform       string    `json:"platform" dynamodbav:"platform"`
	PageID         string    `json:"page_id" dynamodbav:"page_id"`
	SenderID       string    `json:"sender_id" dynamodbav:"sender_id"`
	Archived       bool      `json:"archived" dynamodbav:"archived"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
