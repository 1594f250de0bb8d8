package domain

import "time"

type InboxMessageStatus string

const (
	InboxStatusNew       InboxMessageStatus = "NEW"
	InboxStatusProcessed InboxMessageStatus = "PROCESSED"
	InboxStatusFailed    InboxMessageStatus = "FAILED"
)

// InboxMessage records a consumed event so a redelivery is applied at most once.
type InboxMessage struct {
	ID          string
	Topic       string
	Payload     []byte
	Status      InboxMessageStatus
	Error       string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}
