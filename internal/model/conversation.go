package model

import (
	"time"
)

// Conversation is a support thread between a page and a customer.
// PageID matches Page.PageID (the platform identifier), not Page.ID.
type Conversation struct {
	ID            string    `json:"id"`
	PageID        string    `json:"page_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`

	// Computed at list time, never stored.
	LastMessage  string `json:"last_message,omitempty"`
	MessageCount int    `json:"message_count"`
}
