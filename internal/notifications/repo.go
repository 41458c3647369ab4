package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, audience Audience, params ListParams) ([]models.Notification, int64, error)
	Recent(ctx context.Context, audience Audience, limit int) ([]models.Notification, error)
	FindByID(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error)
	UnreadCount(ctx context.Context, audience Audience) (UnreadCount, error)
	SetRead(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, audience Audience, now time.Time) (int64, error)
	Delete(ctx context.Context, audience Audience, id uuid.UUID) (bool, error)
	DeleteRead(ctx context.Context, audience Audience) (int64, error)
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// visible scopes a query to what the audience may see.
func (r *repositoryImpl) visible(ctx context.Context, audience Audience) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("tenant_id = ?", audience.TenantID).
		Where("(user_id IS NULL OR user_id = ?)", audience.UserID)
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) List(ctx context.Context, audience Audience, params ListParams) ([]models.Notification, int64, error) {
	base := func() *gorm.DB {
		query := r.visible(ctx, audience)
		if params.Filters.Read != nil {
			query = query.Where("read = ?", *params.Filters.Read)
		}
		if params.Filters.Type != nil {
			query = query.Where("type = ?", *params.Filters.Type)
		}
		if params.Filters.Priority != nil {
			query = query.Where("priority = ?", *params.Filters.Priority)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page.Normalize()
	var rows []models.Notification
	err := base().
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repositoryImpl) Recent(ctx context.Context, audience Audience, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.visible(ctx, audience).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindByID(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.visible(ctx, audience).Where("id = ?", id).First(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

type unreadBucket struct {
	Type     enums.NotificationType
	Priority enums.NotificationPriority
	Total    int64
}

func (r *repositoryImpl) UnreadCount(ctx context.Context, audience Audience) (UnreadCount, error) {
	var buckets []unreadBucket
	err := r.visible(ctx, audience).
		Select("type, priority, COUNT(*) AS total").
		Where("read = ?", false).
		Group("type, priority").
		Scan(&buckets).Error
	if err != nil {
		return UnreadCount{}, err
	}

	count := newUnreadCount()
	for _, bucket := range buckets {
		count.Count += bucket.Total
		count.ByType[bucket.Type] += bucket.Total
		count.ByPriority[bucket.Priority] += bucket.Total
	}
	return count, nil
}

// SetRead flips read and read_at together. It reports whether the row exists
// for the audience, independent of whether anything changed.
func (r *repositoryImpl) SetRead(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error) {
	var readAt any
	if read {
		readAt = now
	}
	result := r.visible(ctx, audience).
		Where("id = ?", id).
		Updates(map[string]any{
			"read":       read,
			"read_at":    readAt,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, audience Audience, now time.Time) (int64, error) {
	result := r.visible(ctx, audience).
		Where("read = ?", false).
		Updates(map[string]any{
			"read":       true,
			"read_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, audience Audience, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND (user_id IS NULL OR user_id = ?)", audience.TenantID, audience.UserID).
		Where("id = ?", id).
		Delete(&models.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) DeleteRead(ctx context.Context, audience Audience) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND (user_id IS NULL OR user_id = ?)", audience.TenantID, audience.UserID).
		Where("read = ?", true).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteReadOlderThan purges read notifications across tenants. Unread ones
// are never removed.
func (r *repositoryImpl) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read = ? AND read_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
