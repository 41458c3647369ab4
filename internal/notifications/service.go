package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/outbox"
	"github.com/angelmondragon/comercio-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

const msgNotFound = "Notificación no encontrada"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines notification list/read operations.
type Service interface {
	List(ctx context.Context, audience Audience, params ListParams) (*ListResult, error)
	Recent(ctx context.Context, audience Audience, limit int) ([]models.Notification, error)
	Get(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error)
	UnreadCount(ctx context.Context, audience Audience) (*UnreadCount, error)
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Notification, error)
	MarkRead(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error)
	MarkUnread(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, audience Audience) (*MarkAllResult, error)
	Delete(ctx context.Context, audience Audience, id uuid.UUID) error
	DeleteAllRead(ctx context.Context, audience Audience) (*DeleteResult, error)
}

// ServiceParams wires the notifications service. Clock is optional.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repository,
		tx:     params.TxRunner,
		outbox: params.Outbox,
		logg:   params.Logger,
		now:    func() time.Time { return clock().UTC() },
	}, nil
}

func validateAudience(audience Audience) error {
	if audience.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	return nil
}

func (s *service) List(ctx context.Context, audience Audience, params ListParams) (*ListResult, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, audience, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return &ListResult{
		Data: rows,
		Meta: pagination.NewMeta(params.Page, total),
	}, nil
}

func (s *service) Recent(ctx context.Context, audience Audience, limit int) ([]models.Notification, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := s.repo.Recent(ctx, audience, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	notification, err := s.repo.FindByID(ctx, audience, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	return notification, nil
}

func (s *service) UnreadCount(ctx context.Context, audience Audience) (*UnreadCount, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	count, err := s.repo.UnreadCount(ctx, audience)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return &count, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Notification, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.NotificationPriorityMedium
	}
	if !priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification priority")
	}
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if title == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}

	now := s.now()
	notification := &models.Notification{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     title,
		Message:   message,
		Priority:  priority,
		Link:      input.Link,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return insertNotification(ctx, s.repo.WithTx(tx), s.outbox, tx, notification)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, nil
}

// insertNotification stores the row and queues notification_created in the
// same transaction.
func insertNotification(ctx context.Context, repo Repository, publisher outboxPublisher, tx *gorm.DB, notification *models.Notification) error {
	if err := repo.Create(ctx, notification); err != nil {
		return err
	}
	return publisher.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationCreated,
		AggregateType: enums.AggregateNotification,
		AggregateID:   notification.ID,
		Data: payloads.NotificationCreatedEvent{
			NotificationID: notification.ID,
			TenantID:       notification.TenantID,
			UserID:         notification.UserID,
			Type:           notification.Type,
			Priority:       notification.Priority,
		},
		Version:    1,
		OccurredAt: notification.CreatedAt,
	})
}

func (s *service) MarkRead(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error) {
	return s.setRead(ctx, audience, id, true)
}

func (s *service) MarkUnread(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error) {
	return s.setRead(ctx, audience, id, false)
}

func (s *service) setRead(ctx context.Context, audience Audience, id uuid.UUID, read bool) (*models.Notification, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	found, err := s.repo.SetRead(ctx, audience, id, read, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notification read state")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgNotFound)
	}
	return s.Get(ctx, audience, id)
}

func (s *service) MarkAllRead(ctx context.Context, audience Audience) (*MarkAllResult, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	count, err := s.repo.MarkAllRead(ctx, audience, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return &MarkAllResult{Success: true, UpdatedCount: count}, nil
}

func (s *service) Delete(ctx context.Context, audience Audience, id uuid.UUID) error {
	if err := validateAudience(audience); err != nil {
		return err
	}
	found, err := s.repo.Delete(ctx, audience, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgNotFound)
	}
	return nil
}

func (s *service) DeleteAllRead(ctx context.Context, audience Audience) (*DeleteResult, error) {
	if err := validateAudience(audience); err != nil {
		return nil, err
	}
	count, err := s.repo.DeleteRead(ctx, audience)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete read notifications")
	}
	logCtx := s.logg.WithFields(s.logg.WithTenantID(ctx, audience.TenantID.String()), map[string]any{
		"deleted_count": count,
	})
	s.logg.Info(logCtx, "read notifications deleted")
	return &DeleteResult{DeletedCount: count}, nil
}
