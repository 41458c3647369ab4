package clientsync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/apiclient"
	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

const (
	paymentsResource = "payments"
	viewStats        = "stats"
)

const (
	msgCreatePaymentFailed = "Error al crear el pago"
	msgUpdatePaymentFailed = "Error al actualizar el pago"
	msgUpdateStatusFailed  = "Error al actualizar el estado del pago"
	msgRefundFailed        = "Error al procesar el reembolso"
	msgDeletePaymentFailed = "Error al eliminar el pago"
)

// PaymentsAPI is the subset of apiclient.Client used for payments.
type PaymentsAPI interface {
	ListPayments(ctx context.Context, filters apiclient.PaymentFilters) (*apiclient.PaymentPage, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	PaymentStats(ctx context.Context) (*apiclient.PaymentStats, error)
	CreatePayment(ctx context.Context, req apiclient.CreatePaymentRequest, opts ...apiclient.CallOption) (*models.Payment, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, req apiclient.UpdatePaymentRequest) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	RefundPayment(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, opts ...apiclient.CallOption) (*models.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
}

// PaymentSync caches payment views and runs payment mutations.
type PaymentSync struct {
	api    PaymentsAPI
	syncer *Syncer
}

// NewPaymentSync builds the payments synchronizer.
func NewPaymentSync(api PaymentsAPI, syncer *Syncer) (*PaymentSync, error) {
	if api == nil {
		return nil, errors.New("payments api is required")
	}
	if syncer == nil {
		return nil, errors.New("syncer is required")
	}
	return &PaymentSync{api: api, syncer: syncer}, nil
}

func paymentKey(id uuid.UUID) Key {
	return DetailKey(paymentsResource, id)
}

func paymentViews() Matcher {
	return AnyOf(
		ResourceView(paymentsResource, ViewList),
		ResourceView(paymentsResource, viewStats),
	)
}

// List returns a page of payments.
func (s *PaymentSync) List(ctx context.Context, filters apiclient.PaymentFilters) (apiclient.PaymentPage, error) {
	return fetchAs(ctx, s.syncer.cache, ViewKey(paymentsResource, ViewList, filters), func(ctx context.Context) (apiclient.PaymentPage, error) {
		page, err := s.api.ListPayments(ctx, filters)
		if err != nil {
			return apiclient.PaymentPage{}, err
		}
		return *page, nil
	})
}

// Get returns one payment.
func (s *PaymentSync) Get(ctx context.Context, id uuid.UUID) (models.Payment, error) {
	return fetchAs(ctx, s.syncer.cache, paymentKey(id), func(ctx context.Context) (models.Payment, error) {
		p, err := s.api.GetPayment(ctx, id)
		if err != nil {
			return models.Payment{}, err
		}
		return *p, nil
	})
}

// Stats returns the tenant payment summary.
func (s *PaymentSync) Stats(ctx context.Context) (apiclient.PaymentStats, error) {
	return fetchAs(ctx, s.syncer.cache, Key{Resource: paymentsResource, View: viewStats}, func(ctx context.Context) (apiclient.PaymentStats, error) {
		stats, err := s.api.PaymentStats(ctx)
		if err != nil {
			return apiclient.PaymentStats{}, err
		}
		return *stats, nil
	})
}

// Create records a new payment. The id is unknown until the server answers,
// so nothing is applied optimistically.
func (s *PaymentSync) Create(ctx context.Context, req apiclient.CreatePaymentRequest, opts ...apiclient.CallOption) (*models.Payment, error) {
	return Run(ctx, s.syncer, Mutation[*models.Payment]{
		Name:     "payments.create",
		Resource: paymentsResource,
		Affected: paymentViews(),
		Call: func(ctx context.Context) (*models.Payment, error) {
			return s.api.CreatePayment(ctx, req, opts...)
		},
		Apply:      s.applyAuthoritative,
		Invalidate: paymentViews(),
		Fallback:   msgCreatePaymentFailed,
	})
}

// Update edits payment fields.
func (s *PaymentSync) Update(ctx context.Context, id uuid.UUID, req apiclient.UpdatePaymentRequest) (*models.Payment, error) {
	return Run(ctx, s.syncer, Mutation[*models.Payment]{
		Name:     "payments.update",
		Resource: paymentsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(paymentKey(id)), paymentViews()),
		Call: func(ctx context.Context) (*models.Payment, error) {
			return s.api.UpdatePayment(ctx, id, req)
		},
		Apply:      s.applyAuthoritative,
		Invalidate: paymentViews(),
		Fallback:   msgUpdatePaymentFailed,
	})
}

// UpdateStatus moves a payment to status, showing the new status at once.
func (s *PaymentSync) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	return Run(ctx, s.syncer, Mutation[*models.Payment]{
		Name:     "payments.update_status",
		Resource: paymentsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(paymentKey(id)), paymentViews()),
		Optimistic: func(c *Cache) {
			replacePayment(c, id, func(p models.Payment) models.Payment {
				p.Status = status
				return p
			})
		},
		Call: func(ctx context.Context) (*models.Payment, error) {
			return s.api.UpdatePaymentStatus(ctx, id, status)
		},
		Apply:      s.applyAuthoritative,
		Invalidate: paymentViews(),
		Fallback:   msgUpdateStatusFailed,
	})
}

// Refund refunds a payment in full (nil amount) or in part. The server
// decides which record changes, so the cache is only invalidated.
func (s *PaymentSync) Refund(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, opts ...apiclient.CallOption) (*models.Payment, error) {
	return Run(ctx, s.syncer, Mutation[*models.Payment]{
		Name:     "payments.refund",
		Resource: paymentsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(paymentKey(id)), paymentViews()),
		Call: func(ctx context.Context) (*models.Payment, error) {
			return s.api.RefundPayment(ctx, id, amount, opts...)
		},
		Invalidate: AnyOf(Exact(paymentKey(id)), paymentViews()),
		Fallback:   msgRefundFailed,
	})
}

// Delete removes a pending payment, hiding it from lists at once.
func (s *PaymentSync) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := Run(ctx, s.syncer, Mutation[struct{}]{
		Name:     "payments.delete",
		Resource: paymentsResource,
		Entity:   id.String(),
		Affected: AnyOf(Exact(paymentKey(id)), paymentViews()),
		Optimistic: func(c *Cache) {
			c.Delete(Exact(paymentKey(id)))
			c.UpdateMatching(ResourceView(paymentsResource, ViewList), func(_ Key, current any) (any, bool) {
				page, ok := current.(apiclient.PaymentPage)
				if !ok {
					return nil, false
				}
				kept, removed := filterSlice(page.Data, func(p models.Payment) bool { return p.ID == id })
				if removed == 0 {
					return nil, false
				}
				page.Data = kept
				page.Meta.Total = clampSub(page.Meta.Total, int64(removed))
				return page, true
			})
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeletePayment(ctx, id)
		},
		Invalidate: paymentViews(),
		Fallback:   msgDeletePaymentFailed,
	})
	return err
}

func (s *PaymentSync) applyAuthoritative(c *Cache, result *models.Payment) {
	if result == nil {
		return
	}
	c.Set(paymentKey(result.ID), *result)
	replacePayment(c, result.ID, func(models.Payment) models.Payment { return *result })
}

func replacePayment(c *Cache, id uuid.UUID, fn func(models.Payment) models.Payment) {
	apply := func(p models.Payment) (models.Payment, bool) {
		if p.ID != id {
			return p, false
		}
		return fn(p), true
	}
	c.UpdateMatching(AnyOf(Exact(paymentKey(id)), ResourceView(paymentsResource, ViewList)), func(_ Key, current any) (any, bool) {
		switch v := current.(type) {
		case models.Payment:
			return apply(v)
		case apiclient.PaymentPage:
			rows, changed := mapRows(v.Data, apply)
			if !changed {
				return nil, false
			}
			v.Data = rows
			return v, true
		}
		return nil, false
	})
}
