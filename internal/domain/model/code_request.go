package model

import (
	"time"
)

type CodeRequestStatus string

const (
	CodeStatusPending CodeRequestStatus = "pending"
	CodeStatusIssued  CodeRequestStatus = "issued"
	CodeStatusUsed    CodeRequestStatus = "used"
	CodeStatusExpired CodeRequestStatus = "expired"
)

// IsTerminal reports whether no further status transition is allowed.
func (s CodeRequestStatus) IsTerminal() bool {
	return s == CodeStatusUsed || s == CodeStatusExpired
}

// CodeRequest tracks one subscription code from a client's request in chat
// through seller issuance to redemption or expiry.
type CodeRequest struct {
	ID            string
	ChatID        int64 // originating conversation
	ClientID      string
	SellerID      string
	Code          *string // nil while pending
	Status        CodeRequestStatus
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
	IssuedAt      *time.Time
	ExpiresAt     *time.Time
	RedeemedAt    *time.Time
	RedeemedBy    *string
}

// IsExpired reports lazy expiry: an issued code past its deadline is
// treated as expired even before the sweeper flips it.
func (c *CodeRequest) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
