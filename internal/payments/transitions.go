package payments

import (
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
)

// ValidateTransition checks whether a payment in status from may move to to.
func ValidateTransition(from, to enums.PaymentStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, msgInvalidStatus).
			WithDetails(map[string]any{"status": to})
	}
	switch from {
	case enums.PaymentStatusRefunded:
		return pkgerrors.New(pkgerrors.CodeInvalidState, msgRefundedImmutable)
	case enums.PaymentStatusCancelled:
		return pkgerrors.New(pkgerrors.CodeInvalidState, msgCancelledImmutable)
	case enums.PaymentStatusCompleted:
		if to != enums.PaymentStatusRefunded && to != enums.PaymentStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeInvalidState, msgCompletedTransition)
		}
	}
	return nil
}

// onlyNotesEditable reports whether generic updates are restricted to notes.
func onlyNotesEditable(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusCompleted || status.IsTerminal()
}
