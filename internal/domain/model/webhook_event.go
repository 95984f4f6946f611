package model

import (
	"encoding/json"

	"storefront-billing/internal/domain"
)

// Webhook events arrive as loosely-typed JSON tagged by "event". Known
// event types get a strict schema; anything else becomes UnknownEvent and
// is never routed into business logic.

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
)

// WebhookEvent is the decoded tagged union.
type WebhookEvent interface {
	EventType() string
}

type PaymentCompletedEvent struct {
	TransactionID string `json:"transaction_id"`
	SubscriberID  string `json:"subscriber_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Raw           []byte `json:"-"`
}

func (PaymentCompletedEvent) EventType() string { return EventPaymentCompleted }

type PaymentFailedEvent struct {
	TransactionID string `json:"transaction_id"`
	SubscriberID  string `json:"subscriber_id"`
	Reason        string `json:"reason"`
	Raw           []byte `json:"-"`
}

func (PaymentFailedEvent) EventType() string { return EventPaymentFailed }

type UnknownEvent struct {
	Event string
	Raw   []byte
}

func (e UnknownEvent) EventType() string { return e.Event }

// ParseWebhookEvent decodes one raw webhook body into the union.
// Malformed JSON or a missing/empty required field is ErrInvalidArgument;
// an unrecognized event tag is not an error.
func ParseWebhookEvent(raw []byte) (WebhookEvent, error) {
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, domain.ErrInvalidArgument
	}

	switch envelope.Event {
	case EventPaymentCompleted:
		var ev PaymentCompletedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, domain.ErrInvalidArgument
		}
		if ev.TransactionID == "" || ev.SubscriberID == "" || ev.Amount <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		ev.Raw = raw
		return ev, nil
	case EventPaymentFailed:
		var ev PaymentFailedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, domain.ErrInvalidArgument
		}
		if ev.TransactionID == "" || ev.SubscriberID == "" {
			return nil, domain.ErrInvalidArgument
		}
		ev.Raw = raw
		return ev, nil
	default:
		return UnknownEvent{Event: envelope.Event, Raw: raw}, nil
	}
}
