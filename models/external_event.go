package models

import (
	"time"
)

// EventSource identifies the channel an external event arrived on
type EventSource string

const (
	EventSourceTerminalWebhook EventSource = "terminal_webhook"
	EventSourceQueueMessage    EventSource = "queue_message"
)

// ProcessingStatus is the lifecycle of an external event row
type ProcessingStatus string

const (
	ProcessingStatusPending  ProcessingStatus = "pending"
	ProcessingStatusApplied  ProcessingStatus = "applied"
	ProcessingStatusRejected ProcessingStatus = "rejected"
)

// Rejection reasons persisted on external events
const (
	RejectionInvalidSignature = "invalid_signature"
	RejectionMalformedPayload = "malformed_payload"
)

// ExternalEvent is a received terminal notification. (Source, ExternalID)
// is unique.
type ExternalEvent struct {
	ID                   int64            `db:"id"`
	Source               EventSource      `db:"source"`
	ExternalID           string           `db:"external_id"`
	RawPayload           []byte           `db:"raw_payload"`
	ProcessingStatus     ProcessingStatus `db:"processing_status"`
	RejectionReason      *string          `db:"rejection_reason"`
	AppliedTransactionID *int64           `db:"applied_transaction_id"`
	ReceivedAt           time.Time        `db:"received_at"`
	ProcessedAt          *time.Time       `db:"processed_at"`
}

// TerminalPayload is the body a payment terminal reports
type TerminalPayload struct {
	TransactionID string `json:"transaction_id" validate:"required,max=128"`
	MachineID     string `json:"machine_id" validate:"required_without=AccountID,max=128"`
	AccountID     *int64 `json:"account_id,omitempty" validate:"omitempty,gt=0"`
	Amount        int64  `json:"amount" validate:"gt=0,lte=1000000000000"`
	Coins         *int64 `json:"coins,omitempty" validate:"omitempty,gt=0,lte=1000000000000"`
}

// TerminalBinding maps a terminal machine to the account it credits
type TerminalBinding struct {
	MachineID string    `db:"machine_id"`
	AccountID int64     `db:"account_id"`
	CreatedAt time.Time `db:"created_at"`
}

// IngestStatus is the result of processing one external event
type IngestStatus string

const (
	IngestStatusApplied   IngestStatus = "applied"
	IngestStatusDuplicate IngestStatus = "duplicate"
	IngestStatusRejected  IngestStatus = "rejected"
)

// IngestResult is returned to the webhook caller or the queue poller
type IngestResult struct {
	Status        IngestStatus `json:"status"`
	EventID       int64        `json:"event_id,omitempty"`
	TransactionID *int64       `json:"transaction_id,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// PollResult summarises one queue poll cycle
type PollResult struct {
	MessagesReceived  int `json:"messages_received"`
	MessagesProcessed int `json:"messages_processed"`
}
