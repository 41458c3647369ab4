package notifications

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/outbox"
	paginationpkg "github.com/angelmondragon/comercio-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, notification *models.Notification) error
	listFn        func(ctx context.Context, audience Audience, params ListParams) ([]models.Notification, int64, error)
	recentFn      func(ctx context.Context, audience Audience, limit int) ([]models.Notification, error)
	findFn        func(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error)
	unreadFn      func(ctx context.Context, audience Audience) (UnreadCount, error)
	setReadFn     func(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error)
	markAllReadFn func(ctx context.Context, audience Audience, now time.Time) (int64, error)
	deleteFn      func(ctx context.Context, audience Audience, id uuid.UUID) (bool, error)
	deleteReadFn  func(ctx context.Context, audience Audience) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, notification)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, audience Audience, params ListParams) ([]models.Notification, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, audience, params)
	}
	return nil, 0, nil
}

func (f *fakeRepository) Recent(ctx context.Context, audience Audience, limit int) ([]models.Notification, error) {
	if f.recentFn != nil {
		return f.recentFn(ctx, audience, limit)
	}
	return nil, nil
}

func (f *fakeRepository) FindByID(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error) {
	if f.findFn != nil {
		return f.findFn(ctx, audience, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UnreadCount(ctx context.Context, audience Audience) (UnreadCount, error) {
	if f.unreadFn != nil {
		return f.unreadFn(ctx, audience)
	}
	return newUnreadCount(), nil
}

func (f *fakeRepository) SetRead(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error) {
	if f.setReadFn != nil {
		return f.setReadFn(ctx, audience, id, read, now)
	}
	return false, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, audience Audience, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, audience, now)
	}
	return 0, nil
}

func (f *fakeRepository) Delete(ctx context.Context, audience Audience, id uuid.UUID) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, audience, id)
	}
	return false, nil
}

func (f *fakeRepository) DeleteRead(ctx context.Context, audience Audience) (int64, error) {
	if f.deleteReadFn != nil {
		return f.deleteReadFn(ctx, audience)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newServiceWithRepo(t *testing.T, repo Repository, emitter *recordingOutbox) Service {
	t.Helper()
	if emitter == nil {
		emitter = &recordingOutbox{}
	}
	svc, err := NewService(ServiceParams{
		Repository: repo,
		TxRunner:   passthroughTx{},
		Outbox:     emitter,
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func testAudience() Audience {
	return Audience{TenantID: uuid.New(), UserID: uuid.New()}
}

func TestService_ListNotifications(t *testing.T) {
	audience := testAudience()
	unread := false
	repo := &fakeRepository{
		listFn: func(ctx context.Context, got Audience, params ListParams) ([]models.Notification, int64, error) {
			if got != audience {
				t.Fatalf("unexpected audience %+v", got)
			}
			if params.Filters.Read == nil || *params.Filters.Read {
				t.Fatalf("expected read=false filter")
			}
			return []models.Notification{{ID: uuid.New()}}, 11, nil
		},
	}

	svc := newServiceWithRepo(t, repo, nil)
	result, err := svc.List(context.Background(), audience, ListParams{
		Filters: ListFilters{Read: &unread},
		Page:    paginationpkg.Params{Page: 2, Limit: 5},
	})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Data))
	}
	if result.Meta.Total != 11 || result.Meta.TotalPages != 3 || result.Meta.Page != 2 {
		t.Fatalf("unexpected meta %+v", result.Meta)
	}
}

func TestService_ListRequiresTenant(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{}, nil)
	_, err := svc.List(context.Background(), Audience{}, ListParams{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_RecentClampsLimit(t *testing.T) {
	var seen []int
	repo := &fakeRepository{
		recentFn: func(ctx context.Context, audience Audience, limit int) ([]models.Notification, error) {
			seen = append(seen, limit)
			return nil, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)
	for _, limit := range []int{0, 3, 500} {
		rows, err := svc.Recent(context.Background(), testAudience(), limit)
		if err != nil {
			t.Fatalf("recent: %v", err)
		}
		if rows == nil {
			t.Fatal("expected empty slice, got nil")
		}
	}
	if seen[0] != defaultRecentLimit || seen[1] != 3 || seen[2] != maxRecentLimit {
		t.Fatalf("unexpected limits %v", seen)
	}
}

func TestService_MarkReadReturnsEntity(t *testing.T) {
	audience := testAudience()
	id := uuid.New()
	readAt := time.Now().UTC()
	repo := &fakeRepository{
		setReadFn: func(ctx context.Context, got Audience, gotID uuid.UUID, read bool, now time.Time) (bool, error) {
			if gotID != id || !read {
				t.Fatalf("unexpected mark read call id=%s read=%v", gotID, read)
			}
			return true, nil
		},
		findFn: func(ctx context.Context, got Audience, gotID uuid.UUID) (*models.Notification, error) {
			return &models.Notification{ID: gotID, Read: true, ReadAt: &readAt}, nil
		},
	}

	svc := newServiceWithRepo(t, repo, nil)
	notification, err := svc.MarkRead(context.Background(), audience, id)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !notification.Read || notification.ReadAt == nil {
		t.Fatalf("expected read notification, got %+v", notification)
	}
}

func TestService_MarkUnreadPassesFalse(t *testing.T) {
	repo := &fakeRepository{
		setReadFn: func(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error) {
			if read {
				t.Fatal("expected read=false")
			}
			return true, nil
		},
		findFn: func(ctx context.Context, audience Audience, id uuid.UUID) (*models.Notification, error) {
			return &models.Notification{ID: id}, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)
	if _, err := svc.MarkUnread(context.Background(), testAudience(), uuid.New()); err != nil {
		t.Fatalf("mark unread: %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		setReadFn: func(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error) {
			return false, nil
		},
	}

	svc := newServiceWithRepo(t, repo, nil)
	_, err := svc.MarkRead(context.Background(), testAudience(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound || typed.Message() != msgNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_MarkReadRepoError(t *testing.T) {
	repo := &fakeRepository{
		setReadFn: func(ctx context.Context, audience Audience, id uuid.UUID, read bool, now time.Time) (bool, error) {
			return false, errors.New("db down")
		},
	}

	svc := newServiceWithRepo(t, repo, nil)
	_, err := svc.MarkRead(context.Background(), testAudience(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, audience Audience, now time.Time) (int64, error) {
			return 3, nil
		},
	}

	svc := newServiceWithRepo(t, repo, nil)
	result, err := svc.MarkAllRead(context.Background(), testAudience())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.UpdatedCount != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestService_DeleteAndDeleteAllRead(t *testing.T) {
	repo := &fakeRepository{
		deleteFn: func(ctx context.Context, audience Audience, id uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteReadFn: func(ctx context.Context, audience Audience) (int64, error) {
			return 4, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	err := svc.Delete(context.Background(), testAudience(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	result, err := svc.DeleteAllRead(context.Background(), testAudience())
	if err != nil {
		t.Fatalf("delete all read: %v", err)
	}
	if result.DeletedCount != 4 {
		t.Fatalf("unexpected deleted count %d", result.DeletedCount)
	}
}

func TestService_CreateEmitsEvent(t *testing.T) {
	var stored *models.Notification
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			stored = notification
			return nil
		},
	}
	emitter := &recordingOutbox{}
	svc := newServiceWithRepo(t, repo, emitter)
	tenantID := uuid.New()

	created, err := svc.Create(context.Background(), tenantID, CreateInput{
		Type:    enums.NotificationTypeSystem,
		Title:   "  Mantenimiento ",
		Message: "El sistema se reinicia a las 22:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stored == nil || stored.ID != created.ID {
		t.Fatal("expected notification to be stored")
	}
	if created.Priority != enums.NotificationPriorityMedium || created.Title != "Mantenimiento" {
		t.Fatalf("unexpected defaults %+v", created)
	}
	if created.Read || created.ReadAt != nil {
		t.Fatal("new notifications start unread")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventNotificationCreated {
		t.Fatalf("expected notification_created event, got %+v", emitter.events)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{}, nil)
	cases := []CreateInput{
		{Type: "BOGUS", Title: "t", Message: "m"},
		{Type: enums.NotificationTypeInfo, Title: "t", Message: "m", Priority: "EXTREME"},
		{Type: enums.NotificationTypeInfo, Title: " ", Message: "m"},
	}
	for i, input := range cases {
		if _, err := svc.Create(context.Background(), uuid.New(), input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}
