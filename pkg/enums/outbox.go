package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePayment,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate types.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPaymentCreated       OutboxEventType = "payment_created"
	EventPaymentUpdated       OutboxEventType = "payment_updated"
	EventPaymentStatusChanged OutboxEventType = "payment_status_changed"
	EventPaymentRefunded      OutboxEventType = "payment_refunded"
	EventPaymentDeleted       OutboxEventType = "payment_deleted"
	EventNotificationCreated  OutboxEventType = "notification_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentCreated,
	EventPaymentUpdated,
	EventPaymentStatusChanged,
	EventPaymentRefunded,
	EventPaymentDeleted,
	EventNotificationCreated,
}

// IsValid reports whether the value matches the canonical event types.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
