package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/money"
)

const (
	fullRefundNote     = "Reembolso completo procesado"
	partialRefundLabel = "Reembolso parcial: "
	noteSeparator      = " | "
	refundRefPrefix    = "REF-"
)

type refundPlan struct {
	amount decimal.Decimal
	full   bool
}

// planRefund validates a refund request against the payment. A nil
// requested amount means a full refund. Full and partial are told apart
// only by numeric equality with the payment amount.
func planRefund(payment models.Payment, requested *decimal.Decimal) (refundPlan, error) {
	if payment.Status != enums.PaymentStatusCompleted {
		return refundPlan{}, pkgerrors.New(pkgerrors.CodeInvalidState, msgRefundRequiresDone)
	}
	amount := payment.Amount
	if requested != nil {
		amount = *requested
	}
	if !amount.IsPositive() {
		return refundPlan{}, pkgerrors.New(pkgerrors.CodeValidation, msgRefundNotPositive)
	}
	if amount.GreaterThan(payment.Amount) {
		return refundPlan{}, pkgerrors.New(pkgerrors.CodeValidation, msgRefundExceedsAmount).
			WithDetails(map[string]any{"amount": payment.Amount.String(), "refundAmount": amount.String()})
	}
	return refundPlan{amount: amount, full: amount.Equal(payment.Amount)}, nil
}

func partialRefundNote(amount decimal.Decimal) string {
	return partialRefundLabel + money.Format(amount)
}

func appendNote(existing *string, note string) *string {
	if existing == nil || *existing == "" {
		out := note
		return &out
	}
	out := *existing + noteSeparator + note
	return &out
}

// applyFullRefund mutates the original in place.
func applyFullRefund(payment *models.Payment, amount decimal.Decimal, now time.Time) {
	refunded := amount
	refundedAt := now
	payment.Status = enums.PaymentStatusRefunded
	payment.RefundAmount = &refunded
	payment.RefundedAt = &refundedAt
	payment.Notes = appendNote(payment.Notes, fullRefundNote)
	payment.UpdatedAt = now
}

// buildOffsetRecord creates the negative record that represents a partial refund.
func buildOffsetRecord(original models.Payment, amount decimal.Decimal, number string, now time.Time) models.Payment {
	refunded := amount
	refundedAt := now
	originalID := original.ID
	reference := refundRefPrefix + original.PaymentNumber
	return models.Payment{
		ID:                uuid.New(),
		TenantID:          original.TenantID,
		PaymentNumber:     number,
		InvoiceID:         original.InvoiceID,
		CustomerID:        original.CustomerID,
		CustomerName:      original.CustomerName,
		InvoiceNumber:     original.InvoiceNumber,
		Amount:            amount.Neg(),
		Method:            original.Method,
		Status:            enums.PaymentStatusRefunded,
		PaymentDate:       now,
		ReferenceNumber:   &reference,
		RefundAmount:      &refunded,
		RefundedAt:        &refundedAt,
		OriginalPaymentID: &originalID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
