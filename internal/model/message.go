package model

import (
	"time"
)

// Message is a single message within a conversation. MessageID is the
// platform message identifier (unique across all messages); outbound
// agent messages get a locally synthesized one.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Text           string    `json:"message_text"`
	IsFromCustomer bool      `json:"is_from_customer"`
	Timestamp      time.Time `json:"timestamp"`
}

// SendMessageRequest is the request to post an agent reply.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse is the response after posting an agent reply.
type SendMessageResponse struct {
	Message     string   `json:"message"`
	MessageData *Message `json:"messageData"`
}
