package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/money"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/registry"
)

const paymentNotificationConsumer = "payment-notifications"

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

var _ processedGuard = (*idempotency.Manager)(nil)

// PaymentEventHandler turns payment outbox events into tenant-wide
// notifications. It runs inside the dispatcher transaction.
type PaymentEventHandler struct {
	repo        Repository
	outbox      outboxPublisher
	idempotency processedGuard
	logg        *logger.Logger
}

// NewPaymentEventHandler builds the handler the outbox dispatcher calls.
func NewPaymentEventHandler(repo Repository, publisher outboxPublisher, guard processedGuard, logg *logger.Logger) (*PaymentEventHandler, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PaymentEventHandler{
		repo:        repo,
		outbox:      publisher,
		idempotency: guard,
		logg:        logg,
	}, nil
}

// EventTypes lists the events this handler subscribes to.
func (h *PaymentEventHandler) EventTypes() []enums.OutboxEventType {
	return []enums.OutboxEventType{
		enums.EventPaymentStatusChanged,
		enums.EventPaymentRefunded,
	}
}

// Handle creates at most one notification per event id.
func (h *PaymentEventHandler) Handle(ctx context.Context, tx *gorm.DB, event *registry.ResolvedEvent) error {
	eventID, err := uuid.Parse(event.Envelope.EventID)
	if err != nil {
		return registry.NewNonRetryableError(fmt.Errorf("invalid event id: %w", err))
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_id":   eventID.String(),
		"event_type": event.Descriptor.EventType,
	})

	notification, err := buildPaymentNotification(event)
	if err != nil {
		return err
	}
	if notification == nil {
		h.logg.Debug(logCtx, "payment event does not notify")
		return nil
	}

	already, err := h.idempotency.CheckAndMarkProcessed(ctx, paymentNotificationConsumer, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		h.logg.Info(logCtx, "event already processed")
		return nil
	}

	if err := insertNotification(ctx, h.repo.WithTx(tx), h.outbox, tx, notification); err != nil {
		_ = h.idempotency.Delete(ctx, paymentNotificationConsumer, eventID)
		return err
	}

	logCtx = h.logg.WithFields(h.logg.WithTenantID(logCtx, notification.TenantID.String()), map[string]any{
		"notification_id":   notification.ID.String(),
		"notification_type": notification.Type,
	})
	h.logg.Info(logCtx, "payment notification created")
	return nil
}

func buildPaymentNotification(event *registry.ResolvedEvent) (*models.Notification, error) {
	occurredAt := event.Envelope.OccurredAt.UTC()
	base := func(tenantID, paymentID uuid.UUID, number string) *models.Notification {
		link := "/payments/" + paymentID.String()
		metadata, _ := json.Marshal(map[string]string{
			"paymentId":     paymentID.String(),
			"paymentNumber": number,
		})
		return &models.Notification{
			ID:        uuid.New(),
			TenantID:  tenantID,
			Link:      &link,
			Metadata:  metadata,
			CreatedAt: occurredAt,
			UpdatedAt: occurredAt,
		}
	}

	switch payload := event.Payload.(type) {
	case *payloads.PaymentRefundedEvent:
		n := base(payload.TenantID, payload.PaymentID, payload.PaymentNumber)
		n.Type = enums.NotificationTypePaymentRefunded
		n.Priority = enums.NotificationPriorityMedium
		if payload.Full {
			n.Title = "Reembolso completo"
			n.Message = fmt.Sprintf("Se reembolsó el pago %s por %s", payload.PaymentNumber, money.Format(payload.RefundAmount))
		} else {
			n.Title = "Reembolso parcial"
			n.Message = fmt.Sprintf("Se reembolsaron %s del pago %s", money.Format(payload.RefundAmount), payload.PaymentNumber)
		}
		return n, nil
	case *payloads.PaymentStatusChangedEvent:
		customer := "cliente"
		if payload.CustomerName != nil && *payload.CustomerName != "" {
			customer = *payload.CustomerName
		}
		switch payload.Status {
		case enums.PaymentStatusCompleted:
			n := base(payload.TenantID, payload.PaymentID, payload.PaymentNumber)
			n.Type = enums.NotificationTypePaymentReceived
			n.Priority = enums.NotificationPriorityLow
			n.Title = "Pago recibido"
			n.Message = fmt.Sprintf("Pago %s de %s por %s completado", payload.PaymentNumber, customer, money.Format(payload.Amount))
			return n, nil
		case enums.PaymentStatusFailed:
			n := base(payload.TenantID, payload.PaymentID, payload.PaymentNumber)
			n.Type = enums.NotificationTypePaymentFailed
			n.Priority = enums.NotificationPriorityHigh
			n.Title = "Pago fallido"
			n.Message = fmt.Sprintf("El pago %s de %s por %s falló", payload.PaymentNumber, customer, money.Format(payload.Amount))
			return n, nil
		}
		return nil, nil
	default:
		return nil, registry.NewNonRetryableError(fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Descriptor.EventType))
	}
}
