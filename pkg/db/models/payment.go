package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

// Payment records money received against an invoice. Partial refunds are
// stored as separate rows with a negative amount pointing back at the
// original through OriginalPaymentID.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID          uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenantId"`
	PaymentNumber     string              `gorm:"column:payment_number;type:text;not null;uniqueIndex:ux_payments_payment_number" json:"paymentNumber"`
	InvoiceID         uuid.UUID           `gorm:"column:invoice_id;type:uuid;not null" json:"invoiceId"`
	CustomerID        uuid.UUID           `gorm:"column:customer_id;type:uuid;not null" json:"customerId"`
	CustomerName      *string             `gorm:"column:customer_name;type:text" json:"customerName,omitempty"`
	InvoiceNumber     *string             `gorm:"column:invoice_number;type:text" json:"invoiceNumber,omitempty"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Method            enums.PaymentMethod `gorm:"column:method;type:text;not null" json:"method"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null" json:"status"`
	PaymentDate       time.Time           `gorm:"column:payment_date;type:timestamptz;not null" json:"paymentDate"`
	ReferenceNumber   *string             `gorm:"column:reference_number;type:text" json:"referenceNumber,omitempty"`
	Notes             *string             `gorm:"column:notes;type:text" json:"notes,omitempty"`
	RefundAmount      *decimal.Decimal    `gorm:"column:refund_amount;type:numeric(14,2)" json:"refundAmount,omitempty"`
	RefundedAt        *time.Time          `gorm:"column:refunded_at;type:timestamptz" json:"refundedAt,omitempty"`
	OriginalPaymentID *uuid.UUID          `gorm:"column:original_payment_id;type:uuid" json:"originalPaymentId,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps gorm pointed at the payments table.
func (Payment) TableName() string { return "payments" }
