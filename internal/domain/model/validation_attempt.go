package model

import "time"

type AttemptOutcome string

const (
	AttemptOutcomeSuccess     AttemptOutcome = "success"
	AttemptOutcomeInvalid     AttemptOutcome = "invalid"
	AttemptOutcomeExpired     AttemptOutcome = "expired"
	AttemptOutcomeAlreadyUsed AttemptOutcome = "already_used"
)

type ActorType string

const (
	ActorTypeClient ActorType = "client"
	ActorTypeSeller ActorType = "seller"
)

// ValidationAttempt is the insert-only audit row behind the sliding-window
// rate limit. Rows are never updated; the sweeper prunes old ones.
type ValidationAttempt struct {
	ID        string
	ActorID   string
	ActorType ActorType
	Code      string
	Outcome   AttemptOutcome
	CreatedAt time.Time
}
