package notifications

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	notifications := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  user_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  priority TEXT NOT NULL,
  read BOOLEAN NOT NULL DEFAULT 0,
  read_at DATETIME,
  link TEXT,
  metadata BLOB,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(notifications).Error)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedNotification(t *testing.T, repo Repository, tenantID uuid.UUID, userID *uuid.UUID, mutate func(*models.Notification)) models.Notification {
	t.Helper()
	n := models.Notification{
		TenantID:  tenantID,
		UserID:    userID,
		Type:      enums.NotificationTypeInfo,
		Title:     "Aviso",
		Message:   "Mensaje",
		Priority:  enums.NotificationPriorityMedium,
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&n)
	}
	require.NoError(t, repo.Create(context.Background(), &n))
	return n
}

func TestRepositoryVisibility(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	me := uuid.New()
	someoneElse := uuid.New()

	broadcast := seedNotification(t, repo, tenantID, nil, nil)
	mine := seedNotification(t, repo, tenantID, &me, nil)
	theirs := seedNotification(t, repo, tenantID, &someoneElse, nil)
	seedNotification(t, repo, uuid.New(), nil, nil)

	audience := Audience{TenantID: tenantID, UserID: me}
	rows, total, err := repo.List(ctx, audience, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	ids := []uuid.UUID{rows[0].ID, rows[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{broadcast.ID, mine.ID}, ids)

	_, err = repo.FindByID(ctx, audience, theirs.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.SetRead(ctx, audience, theirs.ID, true, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, found)

	deleted, err := repo.Delete(ctx, audience, theirs.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepositorySetReadKeepsReadAtInSync(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	audience := Audience{TenantID: uuid.New(), UserID: uuid.New()}
	n := seedNotification(t, repo, audience.TenantID, nil, nil)
	now := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

	found, err := repo.SetRead(ctx, audience, n.ID, true, now)
	require.NoError(t, err)
	assert.True(t, found)

	stored, err := repo.FindByID(ctx, audience, n.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)
	require.NotNil(t, stored.ReadAt)
	assert.True(t, stored.ReadAt.Equal(now))

	found, err = repo.SetRead(ctx, audience, n.ID, true, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, found, "marking an already read notification still finds it")

	_, err = repo.SetRead(ctx, audience, n.ID, false, now)
	require.NoError(t, err)
	stored, err = repo.FindByID(ctx, audience, n.ID)
	require.NoError(t, err)
	assert.False(t, stored.Read)
	assert.Nil(t, stored.ReadAt)
}

func TestRepositoryUnreadCountAndFilters(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	audience := Audience{TenantID: uuid.New(), UserID: uuid.New()}

	seedNotification(t, repo, audience.TenantID, nil, func(n *models.Notification) {
		n.Type = enums.NotificationTypePaymentReceived
		n.Priority = enums.NotificationPriorityLow
	})
	seedNotification(t, repo, audience.TenantID, nil, func(n *models.Notification) {
		n.Type = enums.NotificationTypePaymentFailed
		n.Priority = enums.NotificationPriorityHigh
	})
	seedNotification(t, repo, audience.TenantID, &audience.UserID, func(n *models.Notification) {
		n.Type = enums.NotificationTypePaymentFailed
		n.Priority = enums.NotificationPriorityHigh
	})
	read := seedNotification(t, repo, audience.TenantID, nil, nil)
	_, err := repo.SetRead(ctx, audience, read.ID, true, time.Now().UTC())
	require.NoError(t, err)

	count, err := repo.UnreadCount(ctx, audience)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Count)
	assert.Equal(t, int64(2), count.ByType[enums.NotificationTypePaymentFailed])
	assert.Equal(t, int64(1), count.ByType[enums.NotificationTypePaymentReceived])
	assert.Equal(t, int64(0), count.ByType[enums.NotificationTypeInfo])
	assert.Equal(t, int64(2), count.ByPriority[enums.NotificationPriorityHigh])
	assert.Equal(t, int64(0), count.ByPriority[enums.NotificationPriorityUrgent])

	failed := enums.NotificationTypePaymentFailed
	rows, total, err := repo.List(ctx, audience, ListParams{Filters: ListFilters{Type: &failed}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rows, 2)

	isRead := true
	rows, total, err = repo.List(ctx, audience, ListParams{Filters: ListFilters{Read: &isRead}, Page: pagination.Params{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rows, 1)
	assert.Equal(t, read.ID, rows[0].ID)
}

func TestRepositoryMarkAllReadAndDeleteRead(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	audience := Audience{TenantID: uuid.New(), UserID: uuid.New()}
	other := uuid.New()

	seedNotification(t, repo, audience.TenantID, nil, nil)
	seedNotification(t, repo, audience.TenantID, &audience.UserID, nil)
	hidden := seedNotification(t, repo, audience.TenantID, &other, nil)

	updated, err := repo.MarkAllRead(ctx, audience, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = repo.MarkAllRead(ctx, audience, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	deleted, err := repo.DeleteRead(ctx, audience)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	otherAudience := Audience{TenantID: audience.TenantID, UserID: other}
	stillThere, err := repo.FindByID(ctx, otherAudience, hidden.ID)
	require.NoError(t, err)
	assert.False(t, stillThere.Read)
}

func TestRepositoryDeleteReadOlderThan(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	ctx := context.Background()
	audience := Audience{TenantID: uuid.New(), UserID: uuid.New()}
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	old := seedNotification(t, repo, audience.TenantID, nil, nil)
	recent := seedNotification(t, repo, audience.TenantID, nil, nil)
	unread := seedNotification(t, repo, audience.TenantID, nil, func(n *models.Notification) {
		n.CreatedAt = now.AddDate(0, -6, 0)
	})

	_, err := repo.SetRead(ctx, audience, old.ID, true, now.AddDate(0, 0, -40))
	require.NoError(t, err)
	_, err = repo.SetRead(ctx, audience, recent.ID, true, now.AddDate(0, 0, -1))
	require.NoError(t, err)

	deleted, err := repo.DeleteReadOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, audience, old.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByID(ctx, audience, recent.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, audience, unread.ID)
	assert.NoError(t, err)
}
