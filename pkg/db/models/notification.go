package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to tenants.
// A nil UserID marks a tenant-wide notification.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID                  `gorm:"column:tenant_id;type:uuid;not null;index" json:"tenantId"`
	UserID    *uuid.UUID                 `gorm:"column:user_id;type:uuid" json:"userId,omitempty"`
	Type      enums.NotificationType     `gorm:"column:type;type:text;not null" json:"type"`
	Title     string                     `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                     `gorm:"column:message;type:text;not null" json:"message"`
	Priority  enums.NotificationPriority `gorm:"column:priority;type:text;not null" json:"priority"`
	Read      bool                       `gorm:"column:read;not null;default:false" json:"read"`
	ReadAt    *time.Time                 `gorm:"column:read_at;type:timestamptz" json:"readAt"`
	Link      *string                    `gorm:"column:link;type:text" json:"link,omitempty"`
	Metadata  json.RawMessage            `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps gorm pointed at the notifications table.
func (Notification) TableName() string { return "notifications" }
