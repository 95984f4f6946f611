package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Code lifecycle errors
	ErrMalformedCode       = errors.New("malformed code")
	ErrCodeNotFound        = errors.New("code not found")
	ErrCodeWrongState      = errors.New("code is not redeemable")
	ErrCodeExpired         = errors.New("code has expired")
	ErrCodeAlreadyRedeemed = errors.New("code already redeemed")
	ErrCodeNotYours        = errors.New("code belongs to another client")
	ErrAlreadyFinalized    = errors.New("code is in a terminal state")
	ErrGenerationExhausted = errors.New("code generation exhausted retries")

	// Redemption / rate limiting
	ErrRateLimited      = errors.New("too many attempts")
	ErrRedemptionFailed = errors.New("redemption failed, try again")

	// Webhook reconciliation
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrAmountMismatch   = errors.New("charged amount does not match plan price")

	// Store-layer errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
