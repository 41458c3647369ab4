package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

// CreatePaymentInput carries the fields accepted on creation. Status
// defaults to PENDING and PaymentDate to now.
type CreatePaymentInput struct {
	InvoiceID       uuid.UUID
	CustomerID      uuid.UUID
	CustomerName    *string
	InvoiceNumber   *string
	Amount          decimal.Decimal
	Method          enums.PaymentMethod
	Status          *enums.PaymentStatus
	PaymentDate     *time.Time
	ReferenceNumber *string
	Notes           *string
}

// UpdatePaymentInput is a partial update; nil fields are left untouched.
type UpdatePaymentInput struct {
	Amount          *decimal.Decimal
	Method          *enums.PaymentMethod
	Notes           *string
	ReferenceNumber *string
	PaymentDate     *time.Time
}

// ListFilters narrows a payments listing.
type ListFilters struct {
	Status     *enums.PaymentStatus
	Method     *enums.PaymentMethod
	CustomerID *uuid.UUID
	InvoiceID  *uuid.UUID
	From       *time.Time
	To         *time.Time
	Search     string
}

// ListParams combines filters with page pagination.
type ListParams struct {
	Filters ListFilters
	Page    pagination.Params
}

// ListResult is the {data, meta} page returned to callers.
type ListResult struct {
	Data []models.Payment `json:"data"`
	Meta pagination.Meta  `json:"meta"`
}
