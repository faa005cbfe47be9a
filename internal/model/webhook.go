package model

// WebhookPayload is a platform webhook delivery. Object discriminates the
// delivery kind; page deliveries carry one or more entries.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one page entry within a delivery.
type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is a single messaging event. Message is nil for
// non-message events such as delivery receipts and postbacks.
type MessagingEvent struct {
	Sender    Participant     `json:"sender"`
	Recipient Participant     `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *MessagePayload `json:"message,omitempty"`
}

// Participant identifies a messaging event party by platform id.
type Participant struct {
	ID string `json:"id"`
}

// MessagePayload is the message body of a messaging event.
type MessagePayload struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}
