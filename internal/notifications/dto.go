package notifications

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 20
)

// Audience identifies who is reading. Notifications addressed to another
// user stay hidden; tenant-wide ones (nil user) are visible to everyone.
type Audience struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// ListFilters narrows a notifications listing.
type ListFilters struct {
	Read     *bool
	Type     *enums.NotificationType
	Priority *enums.NotificationPriority
}

// ListParams combines filters with page pagination.
type ListParams struct {
	Filters ListFilters
	Page    pagination.Params
}

// ListResult is the {data, meta} page returned to callers.
type ListResult struct {
	Data []models.Notification `json:"data"`
	Meta pagination.Meta       `json:"meta"`
}

// UnreadCount aggregates unread notifications. Buckets are pre-filled with
// every known type and priority.
type UnreadCount struct {
	Count      int64                                `json:"count"`
	ByType     map[enums.NotificationType]int64     `json:"byType"`
	ByPriority map[enums.NotificationPriority]int64 `json:"byPriority"`
}

// CreateInput carries a new notification. A nil UserID makes it tenant-wide.
type CreateInput struct {
	UserID   *uuid.UUID
	Type     enums.NotificationType
	Title    string
	Message  string
	Priority enums.NotificationPriority
	Link     *string
	Metadata json.RawMessage
}

// MarkAllResult reports how many notifications were flipped to read.
type MarkAllResult struct {
	Success      bool  `json:"success"`
	UpdatedCount int64 `json:"updatedCount"`
}

// DeleteResult reports how many notifications were removed.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

func newUnreadCount() UnreadCount {
	count := UnreadCount{
		ByType:     make(map[enums.NotificationType]int64),
		ByPriority: make(map[enums.NotificationPriority]int64),
	}
	for _, t := range enums.NotificationTypes() {
		count.ByType[t] = 0
	}
	for _, p := range enums.NotificationPriorities() {
		count.ByPriority[p] = 0
	}
	return count
}
