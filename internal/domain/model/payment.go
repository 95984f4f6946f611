package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCompleted    PaymentStatus = "completed"     // processor confirmed the charge
	PaymentStatusFailed       PaymentStatus = "failed"        // charge failed, no retry scheduled
	PaymentStatusPendingRetry PaymentStatus = "pending_retry" // charge failed, processor will retry
)

// PaymentRecord is the ledger entry for one processor transaction.
// TransactionID is the processor's id and the natural dedup key: a webhook
// replay for an id already in the ledger must be a no-op.
type PaymentRecord struct {
	ID             string
	TransactionID  string
	SubscriberID   string
	SubscriptionID *string
	Amount         int64 // minor units
	Currency       string
	Status         PaymentStatus
	RetryCount     int
	NextRetryAt    *time.Time
	RawPayload     []byte // processor payload as delivered
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
