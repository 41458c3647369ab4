package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

const paymentsPath = "/payments"

// PaymentFilters are the query parameters accepted by the payments listing.
type PaymentFilters struct {
	Status     *enums.PaymentStatus
	Method     *enums.PaymentMethod
	CustomerID *uuid.UUID
	InvoiceID  *uuid.UUID
	From       *time.Time
	To         *time.Time
	Search     string
	Page       int
	Limit      int
}

// Values encodes the filters as URL query parameters.
func (f PaymentFilters) Values() url.Values {
	q := url.Values{}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Method != nil {
		q.Set("method", string(*f.Method))
	}
	if f.CustomerID != nil {
		q.Set("customerId", f.CustomerID.String())
	}
	if f.InvoiceID != nil {
		q.Set("invoiceId", f.InvoiceID.String())
	}
	if f.From != nil {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// PaymentPage is one page of payments.
type PaymentPage struct {
	Data []models.Payment `json:"data"`
	Meta pagination.Meta  `json:"meta"`
}

// PaymentStats mirrors the /payments/stats response.
type PaymentStats struct {
	TotalPayments       int64                         `json:"totalPayments"`
	TotalReceived       decimal.Decimal               `json:"totalReceived"`
	TotalPending        decimal.Decimal               `json:"totalPending"`
	TotalRefunded       decimal.Decimal               `json:"totalRefunded"`
	TotalProcessing     decimal.Decimal               `json:"totalProcessing"`
	AveragePaymentValue decimal.Decimal               `json:"averagePaymentValue"`
	PaymentsByStatus    map[enums.PaymentStatus]int64 `json:"paymentsByStatus"`
	PaymentsByMethod    map[enums.PaymentMethod]int64 `json:"paymentsByMethod"`
	TodayPayments       int64                         `json:"todayPayments"`
	TodayTotal          decimal.Decimal               `json:"todayTotal"`
	WeekPayments        int64                         `json:"weekPayments"`
	WeekTotal           decimal.Decimal               `json:"weekTotal"`
}

// CreatePaymentRequest is the body of POST /payments.
type CreatePaymentRequest struct {
	InvoiceID       uuid.UUID            `json:"invoiceId"`
	CustomerID      uuid.UUID            `json:"customerId"`
	CustomerName    *string              `json:"customerName,omitempty"`
	InvoiceNumber   *string              `json:"invoiceNumber,omitempty"`
	Amount          decimal.Decimal      `json:"amount"`
	Method          enums.PaymentMethod  `json:"method"`
	Status          *enums.PaymentStatus `json:"status,omitempty"`
	PaymentDate     *time.Time           `json:"paymentDate,omitempty"`
	ReferenceNumber *string              `json:"referenceNumber,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
}

// UpdatePaymentRequest is the body of PATCH /payments/{id}.
type UpdatePaymentRequest struct {
	Amount          *decimal.Decimal     `json:"amount,omitempty"`
	Method          *enums.PaymentMethod `json:"method,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	ReferenceNumber *string              `json:"referenceNumber,omitempty"`
	PaymentDate     *time.Time           `json:"paymentDate,omitempty"`
}

type updateStatusRequest struct {
	Status enums.PaymentStatus `json:"status"`
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// ListPayments calls GET /payments.
func (c *Client) ListPayments(ctx context.Context, filters PaymentFilters) (*PaymentPage, error) {
	var page PaymentPage
	if err := c.do(ctx, http.MethodGet, paymentsPath, filters.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPayment calls GET /payments/{id}.
func (c *Client) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodGet, pathID(paymentsPath, id), nil, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePayment calls POST /payments.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest, opts ...CallOption) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPost, paymentsPath, nil, req, &payment, opts...); err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePayment calls PATCH /payments/{id}.
func (c *Client) UpdatePayment(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPatch, pathID(paymentsPath, id), nil, req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePaymentStatus calls PATCH /payments/{id}/status.
func (c *Client) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPatch, pathID(paymentsPath, id, "status"), nil, updateStatusRequest{Status: status}, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RefundPayment calls POST /payments/{id}/refund. A nil amount refunds the
// whole payment. The result is the refunded original or the offset record.
func (c *Client) RefundPayment(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, opts ...CallOption) (*models.Payment, error) {
	var payment models.Payment
	if err := c.do(ctx, http.MethodPost, pathID(paymentsPath, id, "refund"), nil, refundRequest{Amount: amount}, &payment, opts...); err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeletePayment calls DELETE /payments/{id}.
func (c *Client) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, pathID(paymentsPath, id), nil, nil, nil)
}

// PaymentStats calls GET /payments/stats.
func (c *Client) PaymentStats(ctx context.Context) (*PaymentStats, error) {
	var stats PaymentStats
	if err := c.do(ctx, http.MethodGet, paymentsPath+"/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
