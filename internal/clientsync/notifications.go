package clientsync

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/pkg/apiclient"
	"github.com/angelmondragon/comercio-backend/pkg/db/models"
)

const (
	notificationsResource = "notifications"
	viewRecent            = "recent"
	viewUnreadCount       = "unread-count"
)

const (
	msgMarkReadFailed      = "Error al marcar la notificación como leída"
	msgMarkUnreadFailed    = "Error al marcar la notificación como no leída"
	msgMarkAllReadFailed   = "Error al marcar todas las notificaciones como leídas"
	msgDeleteFailed        = "Error al eliminar la notificación"
	msgDeleteAllReadFailed = "Error al eliminar las notificaciones leídas"
)

// NotificationsAPI is the subset of apiclient.Client used for notifications.
type NotificationsAPI interface {
	ListNotifications(ctx context.Context, filters apiclient.NotificationFilters) (*apiclient.NotificationPage, error)
	RecentNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context) (*apiclient.UnreadCount, error)
	GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkAsUnread(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context) (*apiclient.MarkAllResult, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
	DeleteAllRead(ctx context.Context) (*apiclient.DeleteResult, error)
}

// NotificationSync caches notification views and runs optimistic mutations.
type NotificationSync struct {
	api    NotificationsAPI
	syncer *Syncer
	now    func() time.Time
}

// NewNotificationSync builds the notifications synchronizer.
func NewNotificationSync(api NotificationsAPI, syncer *Syncer) (*NotificationSync, error) {
	if api == nil {
		return nil, errors.New("notifications api is required")
	}
	if syncer == nil {
		return nil, errors.New("syncer is required")
	}
	return &NotificationSync{api: api, syncer: syncer, now: time.Now}, nil
}

func notificationKey(id uuid.UUID) Key {
	return DetailKey(notificationsResource, id)
}

func unreadCountKey() Key {
	return Key{Resource: notificationsResource, View: viewUnreadCount}
}

func notificationViews() Matcher {
	return AnyOf(
		ResourceView(notificationsResource, ViewList),
		ResourceView(notificationsResource, viewRecent),
		ResourceView(notificationsResource, viewUnreadCount),
	)
}

// List returns a page of notifications.
func (s *NotificationSync) List(ctx context.Context, filters apiclient.NotificationFilters) (apiclient.NotificationPage, error) {
	return fetchAs(ctx, s.syncer.cache, ViewKey(notificationsResource, ViewList, filters), func(ctx context.Context) (apiclient.NotificationPage, error) {
		page, err := s.api.ListNotifications(ctx, filters)
		if err != nil {
			return apiclient.NotificationPage{}, err
		}
		return *page, nil
	})
}

// Recent returns the latest notifications.
func (s *NotificationSync) Recent(ctx context.Context, limit int) ([]models.Notification, error) {
	key := Key{Resource: notificationsResource, View: viewRecent, Param: strconv.Itoa(limit)}
	return fetchAs(ctx, s.syncer.cache, key, func(ctx context.Context) ([]models.Notification, error) {
		return s.api.RecentNotifications(ctx, limit)
	})
}

// Get returns one notification.
func (s *NotificationSync) Get(ctx context.Context, id uuid.UUID) (models.Notification, error) {
	return fetchAs(ctx, s.syncer.cache, notificationKey(id), func(ctx context.Context) (models.Notification, error) {
		n, err := s.api.GetNotification(ctx, id)
		if err != nil {
			return models.Notification{}, err
		}
		return *n, nil
	})
}

// UnreadCount returns the unread summary.
func (s *NotificationSync) UnreadCount(ctx context.Context) (apiclient.UnreadCount, error) {
	return fetchAs(ctx, s.syncer.cache, unreadCountKey(), func(ctx context.Context) (apiclient.UnreadCount, error) {
		count, err := s.api.UnreadCount(ctx)
		if err != nil {
			return apiclient.UnreadCount{}, err
		}
		return *count, nil
	})
}

// MarkAsRead marks a notification read. The unread count only drops when
// the cached notification was unread.
func (s *NotificationSync) MarkAsRead(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return Run(ctx, s.syncer, Mutation[*models.Notification]{
		Name:     "notifications.mark_read",
		Resource: notificationsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(notificationKey(id)), notificationViews()),
		Optimistic: func(c *Cache) {
			prev, found := s.lookup(id)
			readAt := s.now().UTC()
			s.replaceEverywhere(c, id, func(n models.Notification) models.Notification {
				n.Read = true
				n.ReadAt = &readAt
				return n
			})
			if found && !prev.Read {
				adjustUnread(c, prev, -1)
			}
		},
		Call: func(ctx context.Context) (*models.Notification, error) {
			return s.api.MarkAsRead(ctx, id)
		},
		Apply: func(c *Cache, result *models.Notification) {
			s.applyAuthoritative(c, result)
		},
		Invalidate: notificationViews(),
		Fallback:   msgMarkReadFailed,
	})
}

// MarkAsUnread marks a notification unread. The unread count only grows
// when the cached notification was read.
func (s *NotificationSync) MarkAsUnread(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return Run(ctx, s.syncer, Mutation[*models.Notification]{
		Name:     "notifications.mark_unread",
		Resource: notificationsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(notificationKey(id)), notificationViews()),
		Optimistic: func(c *Cache) {
			prev, found := s.lookup(id)
			s.replaceEverywhere(c, id, func(n models.Notification) models.Notification {
				n.Read = false
				n.ReadAt = nil
				return n
			})
			if found && prev.Read {
				adjustUnread(c, prev, 1)
			}
		},
		Call: func(ctx context.Context) (*models.Notification, error) {
			return s.api.MarkAsUnread(ctx, id)
		},
		Apply: func(c *Cache, result *models.Notification) {
			s.applyAuthoritative(c, result)
		},
		Invalidate: notificationViews(),
		Fallback:   msgMarkUnreadFailed,
	})
}

// MarkAllAsRead marks every visible notification read.
func (s *NotificationSync) MarkAllAsRead(ctx context.Context) (*apiclient.MarkAllResult, error) {
	return Run(ctx, s.syncer, Mutation[*apiclient.MarkAllResult]{
		Name:     "notifications.mark_all_read",
		Resource: notificationsResource,
		Affected: Resource(notificationsResource),
		Optimistic: func(c *Cache) {
			readAt := s.now().UTC()
			markRead := func(n models.Notification) (models.Notification, bool) {
				if n.Read {
					return n, false
				}
				n.Read = true
				n.ReadAt = &readAt
				return n, true
			}
			c.UpdateMatching(Resource(notificationsResource), func(key Key, current any) (any, bool) {
				switch v := current.(type) {
				case models.Notification:
					return markRead(v)
				case apiclient.NotificationPage:
					return mapPage(v, markRead)
				case []models.Notification:
					return mapSlice(v, markRead)
				case apiclient.UnreadCount:
					return zeroUnread(v), true
				}
				return nil, false
			})
		},
		Call: func(ctx context.Context) (*apiclient.MarkAllResult, error) {
			return s.api.MarkAllAsRead(ctx)
		},
		Invalidate: Resource(notificationsResource),
		Fallback:   msgMarkAllReadFailed,
	})
}

// Delete removes a notification.
func (s *NotificationSync) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := Run(ctx, s.syncer, Mutation[struct{}]{
		Name:     "notifications.delete",
		Resource: notificationsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(notificationKey(id)), notificationViews()),
		Optimistic: func(c *Cache) {
			prev, found := s.lookup(id)
			c.Delete(Exact(notificationKey(id)))
			s.removeFromViews(c, func(n models.Notification) bool { return n.ID == id })
			if found && !prev.Read {
				adjustUnread(c, prev, -1)
			}
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteNotification(ctx, id)
		},
		Invalidate: notificationViews(),
		Fallback:   msgDeleteFailed,
	})
	return err
}

// DeleteAllRead removes every read notification. The unread count is
// unaffected.
func (s *NotificationSync) DeleteAllRead(ctx context.Context) (*apiclient.DeleteResult, error) {
	return Run(ctx, s.syncer, Mutation[*apiclient.DeleteResult]{
		Name:     "notifications.delete_all_read",
		Resource: notificationsResource,
		Affected: Resource(notificationsResource),
		Optimistic: func(c *Cache) {
			c.DeleteIf(func(k Key, value any) bool {
				if k.Resource != notificationsResource || k.View != ViewDetail {
					return false
				}
				n, ok := value.(models.Notification)
				return ok && n.Read
			})
			s.removeFromViews(c, func(n models.Notification) bool { return n.Read })
		},
		Call: func(ctx context.Context) (*apiclient.DeleteResult, error) {
			return s.api.DeleteAllRead(ctx)
		},
		Invalidate: Resource(notificationsResource),
		Fallback:   msgDeleteAllReadFailed,
	})
}

// lookup finds the cached state of a notification in the detail entry or
// any list view.
func (s *NotificationSync) lookup(id uuid.UUID) (models.Notification, bool) {
	c := s.syncer.cache
	if value, _, ok := c.Get(notificationKey(id)); ok {
		if n, ok := value.(models.Notification); ok {
			return n, true
		}
	}
	var found models.Notification
	var ok bool
	c.Range(notificationViews(), func(_ Key, current any) bool {
		var rows []models.Notification
		switch v := current.(type) {
		case apiclient.NotificationPage:
			rows = v.Data
		case []models.Notification:
			rows = v
		}
		for _, n := range rows {
			if n.ID == id {
				found, ok = n, true
				return false
			}
		}
		return true
	})
	return found, ok
}

func (s *NotificationSync) replaceEverywhere(c *Cache, id uuid.UUID, fn func(models.Notification) models.Notification) {
	apply := func(n models.Notification) (models.Notification, bool) {
		if n.ID != id {
			return n, false
		}
		return fn(n), true
	}
	c.UpdateMatching(AnyOf(Exact(notificationKey(id)), notificationViews()), func(_ Key, current any) (any, bool) {
		switch v := current.(type) {
		case models.Notification:
			return apply(v)
		case apiclient.NotificationPage:
			return mapPage(v, apply)
		case []models.Notification:
			return mapSlice(v, apply)
		}
		return nil, false
	})
}

func (s *NotificationSync) applyAuthoritative(c *Cache, result *models.Notification) {
	if result == nil {
		return
	}
	c.Set(notificationKey(result.ID), *result)
	s.replaceEverywhere(c, result.ID, func(models.Notification) models.Notification { return *result })
}

func (s *NotificationSync) removeFromViews(c *Cache, drop func(models.Notification) bool) {
	c.UpdateMatching(AnyOf(ResourceView(notificationsResource, ViewList), ResourceView(notificationsResource, viewRecent)), func(_ Key, current any) (any, bool) {
		switch v := current.(type) {
		case apiclient.NotificationPage:
			kept, removed := filterSlice(v.Data, drop)
			if removed == 0 {
				return nil, false
			}
			v.Data = kept
			v.Meta.Total = clampSub(v.Meta.Total, int64(removed))
			return v, true
		case []models.Notification:
			kept, removed := filterSlice(v, drop)
			if removed == 0 {
				return nil, false
			}
			return kept, true
		}
		return nil, false
	})
}

// adjustUnread moves the cached unread count by delta for n's buckets.
// Decrements are skipped when the bucket is already zero.
func adjustUnread(c *Cache, n models.Notification, delta int64) {
	c.Update(unreadCountKey(), func(current any) (any, bool) {
		count, ok := current.(apiclient.UnreadCount)
		if !ok {
			return nil, false
		}
		if delta < 0 && count.Count <= 0 {
			return nil, false
		}
		next := count.Clone()
		next.Count = clampAdd(next.Count, delta)
		next.ByType[n.Type] = clampAdd(next.ByType[n.Type], delta)
		next.ByPriority[n.Priority] = clampAdd(next.ByPriority[n.Priority], delta)
		return next, true
	})
}

func zeroUnread(count apiclient.UnreadCount) apiclient.UnreadCount {
	next := count.Clone()
	next.Count = 0
	for k := range next.ByType {
		next.ByType[k] = 0
	}
	for k := range next.ByPriority {
		next.ByPriority[k] = 0
	}
	return next
}

func clampAdd(value, delta int64) int64 {
	if value+delta < 0 {
		return 0
	}
	return value + delta
}

func clampSub(value, delta int64) int64 {
	return clampAdd(value, -delta)
}

func mapPage(page apiclient.NotificationPage, fn func(models.Notification) (models.Notification, bool)) (any, bool) {
	rows, changed := mapRows(page.Data, fn)
	if !changed {
		return nil, false
	}
	page.Data = rows
	return page, true
}

func mapSlice(rows []models.Notification, fn func(models.Notification) (models.Notification, bool)) (any, bool) {
	next, changed := mapRows(rows, fn)
	if !changed {
		return nil, false
	}
	return next, true
}

func mapRows[T any](rows []T, fn func(T) (T, bool)) ([]T, bool) {
	var out []T
	for i, row := range rows {
		next, changed := fn(row)
		if !changed {
			continue
		}
		if out == nil {
			out = make([]T, len(rows))
			copy(out, rows)
		}
		out[i] = next
	}
	if out == nil {
		return rows, false
	}
	return out, true
}

func filterSlice[T any](rows []T, drop func(T) bool) ([]T, int) {
	kept := make([]T, 0, len(rows))
	for _, row := range rows {
		if !drop(row) {
			kept = append(kept, row)
		}
	}
	return kept, len(rows) - len(kept)
}

func fetchAs[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	value, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, errors.New("cached value has unexpected type for " + key.String())
	}
	return typed, nil
}
