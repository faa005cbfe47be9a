package model

import (
	"time"
)

// EventDirection indicates which side of the conversation produced a message.
type EventDirection string

const (
	DirectionInbound  EventDirection = "inbound"
	DirectionOutbound EventDirection = "outbound"
)

// MessageEvent is published to the event stream whenever a message is
// persisted, for downstream consumers (notifications, analytics).
type MessageEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	PageID         string         `json:"page_id"`
	Direction      EventDirection `json:"direction"`
	Message        *Message       `json:"message"`
	CreatedAt      time.Time      `json:"created_at"`
}
