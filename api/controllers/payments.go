package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/api/responses"
	"github.com/angelmondragon/comercio-backend/api/validators"
	"github.com/angelmondragon/comercio-backend/internal/payments"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

type createPaymentRequest struct {
	InvoiceID       uuid.UUID            `json:"invoiceId" validate:"required"`
	CustomerID      uuid.UUID            `json:"customerId" validate:"required"`
	CustomerName    *string              `json:"customerName" validate:"omitempty,max=200"`
	InvoiceNumber   *string              `json:"invoiceNumber" validate:"omitempty,max=64"`
	Amount          decimal.Decimal      `json:"amount"`
	Method          enums.PaymentMethod  `json:"method" validate:"required,enum"`
	Status          *enums.PaymentStatus `json:"status" validate:"omitempty,enum"`
	PaymentDate     *time.Time           `json:"paymentDate"`
	ReferenceNumber *string              `json:"referenceNumber" validate:"omitempty,max=128"`
	Notes           *string              `json:"notes" validate:"omitempty,max=2000"`
}

type updatePaymentRequest struct {
	Amount          *decimal.Decimal     `json:"amount"`
	Method          *enums.PaymentMethod `json:"method" validate:"omitempty,enum"`
	Notes           *string              `json:"notes" validate:"omitempty,max=2000"`
	ReferenceNumber *string              `json:"referenceNumber" validate:"omitempty,max=128"`
	PaymentDate     *time.Time           `json:"paymentDate"`
}

type updatePaymentStatusRequest struct {
	Status enums.PaymentStatus `json:"status" validate:"required,enum"`
}

type refundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

func paymentsUnavailable(svc payments.Service) error {
	if svc == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable")
	}
	return nil
}

// ListPayments returns a filtered page of the tenant's payments.
func ListPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parsePaymentListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), tenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parsePaymentListParams(r *http.Request) (payments.ListParams, error) {
	var params payments.ListParams
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Filters.Status = &status
	}
	if raw := query.Get("method"); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method filter")
		}
		params.Filters.Method = &method
	}

	var err error
	if params.Filters.CustomerID, err = validators.ParseQueryUUID(r, "customerId"); err != nil {
		return params, err
	}
	if params.Filters.InvoiceID, err = validators.ParseQueryUUID(r, "invoiceId"); err != nil {
		return params, err
	}
	if params.Filters.From, err = validators.ParseQueryTime(r, "from"); err != nil {
		return params, err
	}
	if params.Filters.To, err = validators.ParseQueryTime(r, "to"); err != nil {
		return params, err
	}
	params.Filters.Search = validators.SanitizeString(query.Get("search"), 100)

	if params.Page.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 100000); err != nil {
		return params, err
	}
	if params.Page.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return params, err
	}
	return params, nil
}

// GetPayment returns one payment.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), tenantID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// CreatePayment records a new payment and returns it with its number.
func CreatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Create(r.Context(), tenantID, payments.CreatePaymentInput{
			InvoiceID:       body.InvoiceID,
			CustomerID:      body.CustomerID,
			CustomerName:    trimmed(body.CustomerName, 200),
			InvoiceNumber:   trimmed(body.InvoiceNumber, 64),
			Amount:          body.Amount,
			Method:          body.Method,
			Status:          body.Status,
			PaymentDate:     body.PaymentDate,
			ReferenceNumber: trimmed(body.ReferenceNumber, 128),
			Notes:           body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// UpdatePayment applies a partial field update.
func UpdatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updatePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Update(r.Context(), tenantID, id, payments.UpdatePaymentInput{
			Amount:          body.Amount,
			Method:          body.Method,
			Notes:           body.Notes,
			ReferenceNumber: trimmed(body.ReferenceNumber, 128),
			PaymentDate:     body.PaymentDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// UpdatePaymentStatus moves a payment through the status state machine.
func UpdatePaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updatePaymentStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.Status == enums.PaymentStatusCancelled && !actorRole(r).CanManagePayments() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
			return
		}

		payment, err := svc.UpdateStatus(r.Context(), tenantID, id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// RefundPayment refunds a completed payment. Omitting the amount refunds it in full.
func RefundPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body refundPaymentRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		payment, err := svc.Refund(r.Context(), tenantID, id, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// DeletePayment removes a pending payment.
func DeletePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), tenantID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PaymentStats returns the tenant's aggregated payment figures.
func PaymentStats(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := paymentsUnavailable(svc); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func trimmed(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	clean := validators.SanitizeString(*value, maxLen)
	if clean == "" {
		return nil
	}
	return &clean
}
