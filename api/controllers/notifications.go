package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/api/responses"
	"github.com/angelmondragon/comercio-backend/api/validators"
	"github.com/angelmondragon/comercio-backend/internal/notifications"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

type createNotificationRequest struct {
	UserID   *uuid.UUID                  `json:"userId"`
	Type     enums.NotificationType      `json:"type" validate:"required,enum"`
	Title    string                      `json:"title" validate:"required,max=200"`
	Message  string                      `json:"message" validate:"required,max=2000"`
	Priority *enums.NotificationPriority `json:"priority" validate:"omitempty,enum"`
	Link     *string                     `json:"link" validate:"omitempty,max=500"`
	Metadata json.RawMessage             `json:"metadata"`
}

// ListNotifications returns a filtered page of the caller's notifications.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parseNotificationListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), audience, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func parseNotificationListParams(r *http.Request) (notifications.ListParams, error) {
	var params notifications.ListParams
	query := r.URL.Query()

	var err error
	if params.Filters.Read, err = validators.ParseQueryBool(r, "read"); err != nil {
		return params, err
	}
	if raw := query.Get("type"); raw != "" {
		value, err := enums.ParseNotificationType(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		params.Filters.Type = &value
	}
	if raw := query.Get("priority"); raw != "" {
		value, err := enums.ParseNotificationPriority(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority filter")
		}
		params.Filters.Priority = &value
	}
	if params.Page.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 100000); err != nil {
		return params, err
	}
	if params.Page.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return params, err
	}
	return params, nil
}

// RecentNotifications returns the newest notifications for the header dropdown.
func RecentNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.Recent(r.Context(), audience, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.UnreadCount(r.Context(), audience)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, count)
	}
}

func GetNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		n, err := svc.Get(r.Context(), audience, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, n)
	}
}

// CreateNotification posts a notification to the tenant or to one user.
func CreateNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createNotificationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := notifications.CreateInput{
			UserID:   body.UserID,
			Type:     body.Type,
			Title:    validators.SanitizeString(body.Title, 200),
			Message:  validators.SanitizeString(body.Message, 2000),
			Link:     trimmed(body.Link, 500),
			Metadata: body.Metadata,
		}
		if body.Priority != nil {
			input.Priority = *body.Priority
		}

		n, err := svc.Create(r.Context(), tenantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, n)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return setNotificationRead(svc, logg, true)
}

func MarkNotificationUnread(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return setNotificationRead(svc, logg, false)
}

func setNotificationRead(svc notifications.Service, logg *logger.Logger, read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mark := svc.MarkUnread
		if read {
			mark = svc.MarkRead
		}
		n, err := mark(r.Context(), audience, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, n)
	}
}

// MarkAllNotificationsRead flips every visible unread notification to read.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkAllRead(r.Context(), audience)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DeleteNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), audience, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteReadNotifications removes every visible read notification.
func DeleteReadNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audience, err := audienceFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DeleteAllRead(r.Context(), audience)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
