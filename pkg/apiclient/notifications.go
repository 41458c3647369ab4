package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

const notificationsPath = "/notifications"

// NotificationFilters are the query parameters of the notifications listing.
type NotificationFilters struct {
	Read     *bool
	Type     *enums.NotificationType
	Priority *enums.NotificationPriority
	Page     int
	Limit    int
}

// Values encodes the filters as URL query parameters.
func (f NotificationFilters) Values() url.Values {
	q := url.Values{}
	if f.Read != nil {
		q.Set("read", strconv.FormatBool(*f.Read))
	}
	if f.Type != nil {
		q.Set("type", string(*f.Type))
	}
	if f.Priority != nil {
		q.Set("priority", string(*f.Priority))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// NotificationPage is one page of notifications.
type NotificationPage struct {
	Data []models.Notification `json:"data"`
	Meta pagination.Meta       `json:"meta"`
}

// UnreadCount is the unread summary for the caller.
type UnreadCount struct {
	Count      int64                                `json:"count"`
	ByType     map[enums.NotificationType]int64     `json:"byType"`
	ByPriority map[enums.NotificationPriority]int64 `json:"byPriority"`
}

// Clone returns a deep copy so cached values can be snapshotted safely.
func (u UnreadCount) Clone() UnreadCount {
	out := UnreadCount{
		Count:      u.Count,
		ByType:     make(map[enums.NotificationType]int64, len(u.ByType)),
		ByPriority: make(map[enums.NotificationPriority]int64, len(u.ByPriority)),
	}
	for k, v := range u.ByType {
		out.ByType[k] = v
	}
	for k, v := range u.ByPriority {
		out.ByPriority[k] = v
	}
	return out
}

// CreateNotificationRequest is the body of POST /notifications.
type CreateNotificationRequest struct {
	UserID   *uuid.UUID                  `json:"userId,omitempty"`
	Type     enums.NotificationType      `json:"type"`
	Title    string                      `json:"title"`
	Message  string                      `json:"message"`
	Priority *enums.NotificationPriority `json:"priority,omitempty"`
	Link     *string                     `json:"link,omitempty"`
	Metadata json.RawMessage             `json:"metadata,omitempty"`
}

// MarkAllResult is returned by PATCH /notifications/read-all.
type MarkAllResult struct {
	Success      bool  `json:"success"`
	UpdatedCount int64 `json:"updatedCount"`
}

// DeleteResult is returned by DELETE /notifications/read.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// ListNotifications calls GET /notifications.
func (c *Client) ListNotifications(ctx context.Context, filters NotificationFilters) (*NotificationPage, error) {
	var page NotificationPage
	if err := c.do(ctx, http.MethodGet, notificationsPath, filters.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RecentNotifications calls GET /notifications/recent.
func (c *Client) RecentNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rows []models.Notification
	if err := c.do(ctx, http.MethodGet, notificationsPath+"/recent", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UnreadCount calls GET /notifications/unread-count.
func (c *Client) UnreadCount(ctx context.Context) (*UnreadCount, error) {
	var count UnreadCount
	if err := c.do(ctx, http.MethodGet, notificationsPath+"/unread-count", nil, nil, &count); err != nil {
		return nil, err
	}
	return &count, nil
}

// GetNotification calls GET /notifications/{id}.
func (c *Client) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := c.do(ctx, http.MethodGet, pathID(notificationsPath, id), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNotification calls POST /notifications.
func (c *Client) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*models.Notification, error) {
	var n models.Notification
	if err := c.do(ctx, http.MethodPost, notificationsPath, nil, req, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAsRead calls PATCH /notifications/{id}/read.
func (c *Client) MarkAsRead(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := c.do(ctx, http.MethodPatch, pathID(notificationsPath, id, "read"), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAsUnread calls PATCH /notifications/{id}/unread.
func (c *Client) MarkAsUnread(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := c.do(ctx, http.MethodPatch, pathID(notificationsPath, id, "unread"), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllAsRead calls PATCH /notifications/read-all.
func (c *Client) MarkAllAsRead(ctx context.Context) (*MarkAllResult, error) {
	var result MarkAllResult
	if err := c.do(ctx, http.MethodPatch, notificationsPath+"/read-all", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteNotification calls DELETE /notifications/{id}.
func (c *Client) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, pathID(notificationsPath, id), nil, nil, nil)
}

// DeleteAllRead calls DELETE /notifications/read.
func (c *Client) DeleteAllRead(ctx context.Context) (*DeleteResult, error) {
	var result DeleteResult
	if err := c.do(ctx, http.MethodDelete, notificationsPath+"/read", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
