package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/outbox"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/registry"
)

type fakeGuard struct {
	processed map[uuid.UUID]bool
	deleted   []uuid.UUID
	err       error
}

func (g *fakeGuard) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.processed == nil {
		g.processed = map[uuid.UUID]bool{}
	}
	if g.processed[eventID] {
		return true, nil
	}
	g.processed[eventID] = true
	return false, nil
}

func (g *fakeGuard) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	g.deleted = append(g.deleted, eventID)
	delete(g.processed, eventID)
	return nil
}

func resolvedEvent(eventType enums.OutboxEventType, payload any) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: eventType, AggregateType: enums.AggregatePayment},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		Payload: payload,
	}
}

func newTestHandler(t *testing.T, repo Repository, guard *fakeGuard) *PaymentEventHandler {
	t.Helper()
	handler, err := NewPaymentEventHandler(repo, &recordingOutbox{}, guard, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestPaymentEventHandlerPartialRefund(t *testing.T) {
	var created []*models.Notification
	repo := &fakeRepository{
		createFn: func(ctx context.Context, n *models.Notification) error {
			created = append(created, n)
			return nil
		},
	}
	guard := &fakeGuard{}
	handler := newTestHandler(t, repo, guard)
	tenantID := uuid.New()
	offsetID := uuid.New()

	event := resolvedEvent(enums.EventPaymentRefunded, &payloads.PaymentRefundedEvent{
		PaymentID:       uuid.New(),
		TenantID:        tenantID,
		PaymentNumber:   "PAG-2026-0007",
		RefundAmount:    decimal.NewFromInt(500000),
		RefundPaymentID: &offsetID,
	})

	if err := handler.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one notification, got %d", len(created))
	}
	n := created[0]
	if n.Type != enums.NotificationTypePaymentRefunded || n.TenantID != tenantID || n.UserID != nil {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !strings.Contains(n.Message, "$500,000") || !strings.Contains(n.Message, "PAG-2026-0007") {
		t.Fatalf("unexpected message %q", n.Message)
	}
	if !n.CreatedAt.Equal(event.Envelope.OccurredAt) {
		t.Fatal("notification should carry the event time")
	}

	if err := handler.Handle(context.Background(), nil, event); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if len(created) != 1 {
		t.Fatal("replayed event must not create a second notification")
	}
}

func TestPaymentEventHandlerStatusChanges(t *testing.T) {
	cases := []struct {
		status   enums.PaymentStatus
		wantType enums.NotificationType
		priority enums.NotificationPriority
	}{
		{enums.PaymentStatusCompleted, enums.NotificationTypePaymentReceived, enums.NotificationPriorityLow},
		{enums.PaymentStatusFailed, enums.NotificationTypePaymentFailed, enums.NotificationPriorityHigh},
		{enums.PaymentStatusProcessing, "", ""},
		{enums.PaymentStatusCancelled, "", ""},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			var created []*models.Notification
			repo := &fakeRepository{
				createFn: func(ctx context.Context, n *models.Notification) error {
					created = append(created, n)
					return nil
				},
			}
			guard := &fakeGuard{}
			handler := newTestHandler(t, repo, guard)
			name := "Distribuidora Andina"
			event := resolvedEvent(enums.EventPaymentStatusChanged, &payloads.PaymentStatusChangedEvent{
				PaymentID:      uuid.New(),
				TenantID:       uuid.New(),
				PaymentNumber:  "PAG-2026-0001",
				CustomerName:   &name,
				Amount:         decimal.NewFromInt(1250000),
				PreviousStatus: enums.PaymentStatusPending,
				Status:         tc.status,
			})

			if err := handler.Handle(context.Background(), nil, event); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if tc.wantType == "" {
				if len(created) != 0 || len(guard.processed) != 0 {
					t.Fatal("status should not notify or mark the event")
				}
				return
			}
			if len(created) != 1 {
				t.Fatalf("expected a notification, got %d", len(created))
			}
			if created[0].Type != tc.wantType || created[0].Priority != tc.priority {
				t.Fatalf("unexpected notification %+v", created[0])
			}
			if !strings.Contains(created[0].Message, name) || !strings.Contains(created[0].Message, "$1,250,000") {
				t.Fatalf("unexpected message %q", created[0].Message)
			}
		})
	}
}

func TestPaymentEventHandlerReleasesGuardOnFailure(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, n *models.Notification) error {
			return errors.New("insert failed")
		},
	}
	guard := &fakeGuard{}
	handler := newTestHandler(t, repo, guard)
	event := resolvedEvent(enums.EventPaymentRefunded, &payloads.PaymentRefundedEvent{
		PaymentID:    uuid.New(),
		TenantID:     uuid.New(),
		RefundAmount: decimal.NewFromInt(10),
		Full:         true,
	})

	if err := handler.Handle(context.Background(), nil, event); err == nil {
		t.Fatal("expected error")
	}
	if len(guard.deleted) != 1 {
		t.Fatal("idempotency key must be released so the retry can run")
	}
}

func TestPaymentEventHandlerRejectsUnexpectedPayload(t *testing.T) {
	handler := newTestHandler(t, &fakeRepository{}, &fakeGuard{})
	event := resolvedEvent(enums.EventPaymentDeleted, &payloads.PaymentDeletedEvent{PaymentID: uuid.New()})

	err := handler.Handle(context.Background(), nil, event)
	var nonRetry registry.NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}
