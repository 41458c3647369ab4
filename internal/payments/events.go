package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/outbox"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/payloads"
)

const eventVersion = 1

func paymentEvent(eventType enums.OutboxEventType, payment *models.Payment, data any, now time.Time) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data:          data,
		Version:       eventVersion,
		OccurredAt:    now,
	}
}

func createdEvent(payment *models.Payment, now time.Time) outbox.DomainEvent {
	return paymentEvent(enums.EventPaymentCreated, payment, payloads.PaymentCreatedEvent{
		PaymentID:     payment.ID,
		TenantID:      payment.TenantID,
		PaymentNumber: payment.PaymentNumber,
		CustomerID:    payment.CustomerID,
		CustomerName:  payment.CustomerName,
		Amount:        payment.Amount,
		Method:        payment.Method,
		Status:        payment.Status,
	}, now)
}

func updatedEvent(payment *models.Payment, fields []string, now time.Time) outbox.DomainEvent {
	return paymentEvent(enums.EventPaymentUpdated, payment, payloads.PaymentUpdatedEvent{
		PaymentID:     payment.ID,
		TenantID:      payment.TenantID,
		PaymentNumber: payment.PaymentNumber,
		Fields:        fields,
	}, now)
}

func statusChangedEvent(payment *models.Payment, previous enums.PaymentStatus, now time.Time) outbox.DomainEvent {
	return paymentEvent(enums.EventPaymentStatusChanged, payment, payloads.PaymentStatusChangedEvent{
		PaymentID:      payment.ID,
		TenantID:       payment.TenantID,
		PaymentNumber:  payment.PaymentNumber,
		CustomerName:   payment.CustomerName,
		Amount:         payment.Amount,
		PreviousStatus: previous,
		Status:         payment.Status,
	}, now)
}

func refundedEvent(original *models.Payment, amount decimal.Decimal, offset *models.Payment, now time.Time) outbox.DomainEvent {
	data := payloads.PaymentRefundedEvent{
		PaymentID:     original.ID,
		TenantID:      original.TenantID,
		PaymentNumber: original.PaymentNumber,
		RefundAmount:  amount,
		Full:          offset == nil,
		RefundedAt:    now,
	}
	if offset != nil {
		id := offset.ID
		data.RefundPaymentID = &id
	}
	return paymentEvent(enums.EventPaymentRefunded, original, data, now)
}

func deletedEvent(payment *models.Payment, now time.Time) outbox.DomainEvent {
	return paymentEvent(enums.EventPaymentDeleted, payment, payloads.PaymentDeletedEvent{
		PaymentID:     payment.ID,
		TenantID:      payment.TenantID,
		PaymentNumber: payment.PaymentNumber,
	}, now)
}
