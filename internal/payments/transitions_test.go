package payments

import (
	"testing"

	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
)

func TestValidateTransitionFromTerminalStates(t *testing.T) {
	for _, target := range enums.PaymentStatuses() {
		err := ValidateTransition(enums.PaymentStatusRefunded, target)
		assertTypedError(t, err, pkgerrors.CodeInvalidState, msgRefundedImmutable)

		err = ValidateTransition(enums.PaymentStatusCancelled, target)
		assertTypedError(t, err, pkgerrors.CodeInvalidState, msgCancelledImmutable)
	}
}

func TestValidateTransitionFromCompleted(t *testing.T) {
	allowed := map[enums.PaymentStatus]bool{
		enums.PaymentStatusRefunded:  true,
		enums.PaymentStatusCancelled: true,
	}
	for _, target := range enums.PaymentStatuses() {
		err := ValidateTransition(enums.PaymentStatusCompleted, target)
		if allowed[target] {
			if err != nil {
				t.Fatalf("COMPLETED -> %s should be allowed: %v", target, err)
			}
			continue
		}
		assertTypedError(t, err, pkgerrors.CodeInvalidState, msgCompletedTransition)
	}
}

func TestValidateTransitionFromOpenStates(t *testing.T) {
	for _, from := range []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusProcessing, enums.PaymentStatusFailed} {
		for _, target := range enums.PaymentStatuses() {
			if err := ValidateTransition(from, target); err != nil {
				t.Fatalf("%s -> %s should be allowed: %v", from, target, err)
			}
		}
	}
}

func TestValidateTransitionRejectsUnknownTarget(t *testing.T) {
	err := ValidateTransition(enums.PaymentStatusPending, enums.PaymentStatus("SETTLED"))
	assertTypedError(t, err, pkgerrors.CodeValidation, msgInvalidStatus)
}

func TestOnlyNotesEditable(t *testing.T) {
	cases := map[enums.PaymentStatus]bool{
		enums.PaymentStatusPending:    false,
		enums.PaymentStatusProcessing: false,
		enums.PaymentStatusFailed:     false,
		enums.PaymentStatusCompleted:  true,
		enums.PaymentStatusRefunded:   true,
		enums.PaymentStatusCancelled:  true,
	}
	for status, want := range cases {
		if got := onlyNotesEditable(status); got != want {
			t.Fatalf("onlyNotesEditable(%s) = %v, want %v", status, got, want)
		}
	}
}

func assertTypedError(t *testing.T, err error, code pkgerrors.Code, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %T: %v", err, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
	if message != "" && typed.Message() != message {
		t.Fatalf("expected message %q, got %q", message, typed.Message())
	}
}
