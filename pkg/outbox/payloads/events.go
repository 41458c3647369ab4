package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

// PaymentCreatedEvent is emitted after a payment row is inserted.
type PaymentCreatedEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	PaymentNumber string              `json:"payment_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	CustomerName  *string             `json:"customer_name,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
}

// PaymentUpdatedEvent lists the fields a generic update actually changed.
type PaymentUpdatedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	PaymentNumber string    `json:"payment_number"`
	Fields        []string  `json:"fields"`
}

// PaymentStatusChangedEvent captures a status transition.
type PaymentStatusChangedEvent struct {
	PaymentID      uuid.UUID           `json:"payment_id"`
	TenantID       uuid.UUID           `json:"tenant_id"`
	PaymentNumber  string              `json:"payment_number"`
	CustomerName   *string             `json:"customer_name,omitempty"`
	Amount         decimal.Decimal     `json:"amount"`
	PreviousStatus enums.PaymentStatus `json:"previous_status"`
	Status         enums.PaymentStatus `json:"status"`
}

// PaymentRefundedEvent is emitted for full and partial refunds. RefundPaymentID
// is set only for partial refunds, which produce an offset record.
type PaymentRefundedEvent struct {
	PaymentID       uuid.UUID       `json:"payment_id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	PaymentNumber   string          `json:"payment_number"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	Full            bool            `json:"full"`
	RefundPaymentID *uuid.UUID      `json:"refund_payment_id,omitempty"`
	RefundedAt      time.Time       `json:"refunded_at"`
}

// PaymentDeletedEvent is emitted when a pending payment is removed.
type PaymentDeletedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	PaymentNumber string    `json:"payment_number"`
}

// NotificationCreatedEvent is emitted when a notification is stored.
type NotificationCreatedEvent struct {
	NotificationID uuid.UUID                  `json:"notification_id"`
	TenantID       uuid.UUID                  `json:"tenant_id"`
	UserID         *uuid.UUID                 `json:"user_id,omitempty"`
	Type           enums.NotificationType     `json:"type"`
	Priority       enums.NotificationPriority `json:"priority"`
}
