package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/comercio-backend/api/middleware"
	"github.com/angelmondragon/comercio-backend/internal/notifications"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
)

func tenantFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.TenantIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant id")
	}
	return tenantID, nil
}

func audienceFromRequest(r *http.Request) (notifications.Audience, error) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		return notifications.Audience{}, err
	}
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return notifications.Audience{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return notifications.Audience{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return notifications.Audience{TenantID: tenantID, UserID: userID}, nil
}

func actorRole(r *http.Request) enums.MemberRole {
	return enums.MemberRole(middleware.RoleFromContext(r.Context()))
}
